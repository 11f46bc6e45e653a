package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/scripthub-inc/scripthub/internal/domain/user"
	"github.com/scripthub-inc/scripthub/internal/shared/clock"
	apperrors "github.com/scripthub-inc/scripthub/internal/shared/errors"
	"github.com/scripthub-inc/scripthub/internal/shared/logger"
)

// SessionService establishes and revokes device sessions. Authentication of
// the principal happens upstream in the marketplace core; this service is
// reached over the service-token surface and trusts the user identity it is
// handed.
type SessionService struct {
	jwt            *JWTService
	store          SessionStore
	hasher         *RefreshTokenHasher
	userRepo       user.Repository
	clock          clock.Clock
	refreshExpDays int
	logger         logger.Interface
}

func NewSessionService(
	jwtService *JWTService,
	store SessionStore,
	hasher *RefreshTokenHasher,
	userRepo user.Repository,
	clk clock.Clock,
	refreshExpDays int,
	log logger.Interface,
) *SessionService {
	if refreshExpDays <= 0 {
		refreshExpDays = 30
	}
	return &SessionService{
		jwt:            jwtService,
		store:          store,
		hasher:         hasher,
		userRepo:       userRepo,
		clock:          clk,
		refreshExpDays: refreshExpDays,
		logger:         log,
	}
}

// Establish creates a session for a known user and returns the initial token
// pair. The session row is created first so its ID can be embedded in the
// token claims, then the refresh hash is attached.
func (s *SessionService) Establish(ctx context.Context, userSID string) (*TokenPair, error) {
	u, err := s.userRepo.GetBySID(ctx, userSID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if u == nil {
		return nil, apperrors.NewNotFoundError("user not found")
	}

	now := s.clock.Now()
	session := &Session{
		UserID:    u.ID(),
		ExpiresAt: now.Add(time.Duration(s.refreshExpDays) * 24 * time.Hour),
	}
	if err := s.store.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	pair, err := s.jwt.Generate(userSID, strconv.FormatUint(uint64(session.ID), 10))
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	hash, err := s.hasher.Hash(pair.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to hash refresh token: %w", err)
	}
	if err := s.store.RotateRefreshHash(ctx, session.ID, hash, now); err != nil {
		return nil, fmt.Errorf("failed to store refresh token hash: %w", err)
	}

	s.logger.Infow("session established", "user_id", u.ID(), "session_id", session.ID)
	return pair, nil
}

// RevokeSession tears a session down (logout). Revoking an already-revoked
// session is a no-op.
func (s *SessionService) RevokeSession(ctx context.Context, sessionID string) error {
	id, err := strconv.ParseUint(sessionID, 10, 64)
	if err != nil {
		return apperrors.NewValidationError("malformed session ID")
	}
	if err := s.store.Revoke(ctx, uint(id), s.clock.Now()); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	s.logger.Infow("session revoked", "session_id", id)
	return nil
}
