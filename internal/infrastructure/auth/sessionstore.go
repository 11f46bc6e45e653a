package auth

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Session is one authenticated device session. Only the bcrypt hash of the
// refresh token is stored; the plaintext lives with the client.
type Session struct {
	ID               uint
	UserID           uint
	RefreshTokenHash string
	ExpiresAt        time.Time
	RevokedAt        *time.Time
}

// Active reports whether the session is usable at the given instant.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// SessionStore persists device sessions. Lookup methods return (nil, nil)
// when no record exists.
type SessionStore interface {
	Create(ctx context.Context, session *Session) error
	GetByID(ctx context.Context, id uint) (*Session, error)

	// RotateRefreshHash replaces the stored refresh token hash after rotation
	RotateRefreshHash(ctx context.Context, id uint, newHash string, updatedAt time.Time) error

	// Revoke tears the session down; renewal against it fails afterwards
	Revoke(ctx context.Context, id uint, revokedAt time.Time) error
}

// RefreshTokenHasher hashes refresh tokens before they reach the store.
type RefreshTokenHasher struct {
	cost int
}

func NewRefreshTokenHasher(cost int) *RefreshTokenHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &RefreshTokenHasher{cost: cost}
}

func (h *RefreshTokenHasher) Hash(token string) (string, error) {
	// bcrypt caps input at 72 bytes and a signed JWT is far longer, so the
	// token is digested first.
	digest := sha256.Sum256([]byte(token))
	hash, err := bcrypt.GenerateFromPassword(digest[:], h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash refresh token: %w", err)
	}
	return string(hash), nil
}

// Verify returns a generic error regardless of cause so callers cannot
// distinguish a wrong token from a corrupt hash.
func (h *RefreshTokenHasher) Verify(token, hash string) error {
	digest := sha256.Sum256([]byte(token))
	if err := bcrypt.CompareHashAndPassword([]byte(hash), digest[:]); err != nil {
		return fmt.Errorf("refresh token verification failed")
	}
	return nil
}
