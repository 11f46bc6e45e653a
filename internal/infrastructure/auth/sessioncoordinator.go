package auth

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/scripthub-inc/scripthub/internal/shared/clock"
	apperrors "github.com/scripthub-inc/scripthub/internal/shared/errors"
	"github.com/scripthub-inc/scripthub/internal/shared/logger"
)

// SessionTokenCoordinator serializes refresh-token renewal per session.
//
// Renewal rotates the refresh token, so two concurrent renewals racing each
// other would invalidate one another's result. The coordinator collapses
// concurrent renewals for the same session into a single flight; every caller
// waiting on that flight receives the same rotated pair.
type SessionTokenCoordinator struct {
	jwt     *JWTService
	store   SessionStore
	hasher  *RefreshTokenHasher
	clock   clock.Clock
	timeout time.Duration
	flight  singleflight.Group
	logger  logger.Interface
}

func NewSessionTokenCoordinator(
	jwtService *JWTService,
	store SessionStore,
	hasher *RefreshTokenHasher,
	clk clock.Clock,
	timeoutSeconds int,
	log logger.Interface,
) *SessionTokenCoordinator {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 10
	}
	return &SessionTokenCoordinator{
		jwt:     jwtService,
		store:   store,
		hasher:  hasher,
		clock:   clk,
		timeout: time.Duration(timeoutSeconds) * time.Second,
		logger:  log,
	}
}

// Renew exchanges a refresh token for a rotated token pair. Concurrent calls
// for the same session share one renewal; the whole operation is bounded by
// the configured timeout and a failed renewal tears the session down rather
// than leaving it half-rotated.
func (c *SessionTokenCoordinator) Renew(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := c.jwt.Verify(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeRefresh {
		return nil, apperrors.NewTokenInvalidError("token is not a refresh token")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ch := c.flight.DoChan(claims.SessionID, func() (any, error) {
		return c.renew(ctx, claims, refreshToken)
	})

	select {
	case <-ctx.Done():
		c.logger.Warnw("token renewal timed out", "session_id", claims.SessionID)
		return nil, apperrors.NewRenewalTimeoutError()
	case result := <-ch:
		if result.Err != nil {
			return nil, result.Err
		}
		return result.Val.(*TokenPair), nil
	}
}

func (c *SessionTokenCoordinator) renew(ctx context.Context, claims *Claims, refreshToken string) (*TokenPair, error) {
	sessionID, err := strconv.ParseUint(claims.SessionID, 10, 64)
	if err != nil {
		return nil, apperrors.NewTokenInvalidError("malformed session ID")
	}

	session, err := c.store.GetByID(ctx, uint(sessionID))
	if err != nil {
		return nil, apperrors.NewRenewalFailedError(err.Error())
	}
	if session == nil || !session.Active(c.clock.Now()) {
		return nil, apperrors.NewSessionExpiredError()
	}

	if err := c.hasher.Verify(refreshToken, session.RefreshTokenHash); err != nil {
		// A well-formed token that fails the hash check was already rotated
		// away: either a replay or a stolen token. Tear the session down.
		c.teardown(ctx, session.ID, "refresh token hash mismatch")
		return nil, apperrors.NewTokenInvalidError("refresh token not recognized")
	}

	pair, err := c.jwt.Generate(claims.UserSID, claims.SessionID)
	if err != nil {
		c.teardown(ctx, session.ID, "token generation failed")
		return nil, apperrors.NewRenewalFailedError(err.Error())
	}

	newHash, err := c.hasher.Hash(pair.RefreshToken)
	if err != nil {
		c.teardown(ctx, session.ID, "refresh token hashing failed")
		return nil, apperrors.NewRenewalFailedError(err.Error())
	}

	if err := c.store.RotateRefreshHash(ctx, session.ID, newHash, c.clock.Now()); err != nil {
		// The rotation did not commit, so the pair we just minted must not
		// reach the caller; the session is no longer trustworthy either way.
		c.teardown(ctx, session.ID, "refresh hash rotation failed")
		return nil, apperrors.NewRenewalFailedError(err.Error())
	}

	c.logger.Debugw("session tokens renewed", "session_id", session.ID)
	return pair, nil
}

// teardown revokes the session on a best-effort basis. The caller already has
// a terminal error to return; a teardown failure only gets logged.
func (c *SessionTokenCoordinator) teardown(ctx context.Context, sessionID uint, reason string) {
	if err := c.store.Revoke(ctx, sessionID, c.clock.Now()); err != nil {
		c.logger.Errorw("failed to tear down session",
			"session_id", sessionID,
			"reason", reason,
			"error", err)
		return
	}
	c.logger.Warnw("session torn down", "session_id", sessionID, "reason", reason)
}
