package auth

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/scripthub-inc/scripthub/internal/shared/clock"
	apperrors "github.com/scripthub-inc/scripthub/internal/shared/errors"
	"github.com/scripthub-inc/scripthub/internal/shared/logger"
)

// TokenStore persists a session's token pair across restarts. Load returns
// (nil, nil) when nothing is stored.
type TokenStore interface {
	Load(ctx context.Context) (*TokenPair, error)
	Save(ctx context.Context, pair *TokenPair) error
	Clear(ctx context.Context) error
}

// Renewer exchanges a refresh token for a rotated token pair.
// SessionTokenCoordinator is the production implementation.
type Renewer interface {
	Renew(ctx context.Context, refreshToken string) (*TokenPair, error)
}

// SessionHandle keeps one principal's bearer credential valid. It holds the
// current token pair plus an expiry estimate decoded from the access token's
// claims, renews proactively inside the renewal window, and collapses
// concurrent renewals into a single flight so one caller's rotation cannot
// invalidate another's.
//
// Renewal failure is terminal for the session: tokens and store are cleared
// and the caller must re-authenticate. There is no silent retry.
type SessionHandle struct {
	renewer Renewer
	store   TokenStore
	clock   clock.Clock
	window  time.Duration
	logger  logger.Interface

	mu        sync.Mutex
	pair      *TokenPair
	expiresAt time.Time

	flight singleflight.Group
}

func NewSessionHandle(
	renewer Renewer,
	store TokenStore,
	clk clock.Clock,
	renewalWindowMinutes int,
	log logger.Interface,
) *SessionHandle {
	if renewalWindowMinutes <= 0 {
		renewalWindowMinutes = 5
	}
	return &SessionHandle{
		renewer: renewer,
		store:   store,
		clock:   clk,
		window:  time.Duration(renewalWindowMinutes) * time.Minute,
		logger:  log,
	}
}

// Restore loads a previously persisted pair from the store. A handle with
// nothing to restore stays empty; EnsureToken then reports an expired session.
func (h *SessionHandle) Restore(ctx context.Context) error {
	pair, err := h.store.Load(ctx)
	if err != nil {
		return err
	}
	if pair == nil {
		return nil
	}
	return h.install(ctx, pair, false)
}

// Set installs a freshly authenticated pair and persists it.
func (h *SessionHandle) Set(ctx context.Context, pair *TokenPair) error {
	return h.install(ctx, pair, true)
}

func (h *SessionHandle) install(ctx context.Context, pair *TokenPair, persist bool) error {
	expiresAt, err := accessTokenExpiry(pair.AccessToken)
	if err != nil {
		return apperrors.NewTokenInvalidError(err.Error())
	}

	h.mu.Lock()
	h.pair = pair
	h.expiresAt = expiresAt
	h.mu.Unlock()

	if persist {
		if err := h.store.Save(ctx, pair); err != nil {
			h.logger.Warnw("failed to persist session tokens", "error", err)
		}
	}
	return nil
}

// EnsureToken returns a valid access token, renewing first when the current
// one is expired or inside the renewal window. Concurrent callers that all
// observe an expiring token share one renewal.
func (h *SessionHandle) EnsureToken(ctx context.Context) (string, error) {
	h.mu.Lock()
	pair, expiresAt := h.pair, h.expiresAt
	h.mu.Unlock()

	if pair == nil {
		return "", apperrors.NewSessionExpiredError()
	}
	if h.fresh(expiresAt) {
		return pair.AccessToken, nil
	}
	return h.renew(ctx, false)
}

// ForceRenew renews unconditionally. A 401 from the transport means the
// access token is no longer honored regardless of its claimed expiry.
func (h *SessionHandle) ForceRenew(ctx context.Context) (string, error) {
	return h.renew(ctx, true)
}

func (h *SessionHandle) fresh(expiresAt time.Time) bool {
	return h.clock.Now().Add(h.window).Before(expiresAt)
}

func (h *SessionHandle) renew(ctx context.Context, force bool) (string, error) {
	ch := h.flight.DoChan("renew", func() (any, error) {
		h.mu.Lock()
		pair, expiresAt := h.pair, h.expiresAt
		h.mu.Unlock()

		if pair == nil {
			return nil, apperrors.NewSessionExpiredError()
		}
		// A flight that just completed may have left a fresh pair behind;
		// renewing again with the rotated-away refresh token would be treated
		// as a replay. Forced renewal skips this because the transport already
		// rejected the token we hold.
		if !force && h.fresh(expiresAt) {
			return pair, nil
		}

		newPair, err := h.renewer.Renew(ctx, pair.RefreshToken)
		if err != nil {
			h.teardown(ctx)
			return nil, err
		}
		if err := h.install(ctx, newPair, true); err != nil {
			h.teardown(ctx)
			return nil, err
		}
		return newPair, nil
	})

	select {
	case <-ctx.Done():
		return "", apperrors.NewRenewalTimeoutError()
	case result := <-ch:
		if result.Err != nil {
			return "", result.Err
		}
		return result.Val.(*TokenPair).AccessToken, nil
	}
}

// teardown clears the held pair and the store. The session is unusable after
// a failed renewal; keeping stale credentials around only masks that.
func (h *SessionHandle) teardown(ctx context.Context) {
	h.mu.Lock()
	h.pair = nil
	h.expiresAt = time.Time{}
	h.mu.Unlock()

	if err := h.store.Clear(ctx); err != nil {
		h.logger.Errorw("failed to clear stored session tokens", "error", err)
	}
}

// accessTokenExpiry decodes the expiry claim without verifying the signature.
// The handle only needs an estimate of when to renew; the server side verifies
// for real.
func accessTokenExpiry(accessToken string) (time.Time, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, jwt.ErrTokenRequiredClaimMissing
	}
	return claims.ExpiresAt.Time, nil
}
