package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	sharedConfig "github.com/scripthub-inc/scripthub/internal/shared/config"
	apperrors "github.com/scripthub-inc/scripthub/internal/shared/errors"
)

// retryPolicy bounds retries against a transiently failing database.
// Retries live at the store boundary only; the state machine above never
// retries business-rule rejections.
type retryPolicy struct {
	maxAttempts   int
	initialDelay  time.Duration
	maxTotalDelay time.Duration
}

func newRetryPolicy(cfg sharedConfig.StoreRetryConfig) retryPolicy {
	p := retryPolicy{
		maxAttempts:   cfg.MaxAttempts,
		initialDelay:  time.Duration(cfg.InitialDelayMs) * time.Millisecond,
		maxTotalDelay: time.Duration(cfg.MaxTotalDelayMs) * time.Millisecond,
	}
	if p.maxAttempts <= 0 {
		p.maxAttempts = 3
	}
	if p.initialDelay <= 0 {
		p.initialDelay = 50 * time.Millisecond
	}
	if p.maxTotalDelay <= 0 {
		p.maxTotalDelay = 2 * time.Second
	}
	return p
}

// run executes fn with fibonacci backoff on transient errors. Exhausted
// retries surface as StoreUnavailable; non-transient errors pass through
// untouched on the first attempt.
func (p retryPolicy) run(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.NewFibonacci(p.initialDelay)
	backoff = retry.WithMaxRetries(uint64(p.maxAttempts-1), backoff)

	ctx, cancel := context.WithTimeout(ctx, p.maxTotalDelay)
	defer cancel()

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			if isTransientErr(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err == nil {
		return nil
	}
	if isTransientErr(err) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewStoreUnavailableError(err.Error())
	}
	return err
}

// isTransientErr reports whether an error looks like a connection-level or
// lock-contention failure rather than a semantic one. Deadlocks count: the
// engine serializes issuance per subject with row locks, so MySQL can pick a
// victim under concurrent writes (ER 1213) and the aborted transaction is
// safe to retry from scratch.
func isTransientErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, fragment := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"invalid connection",
		"database is locked",
		"database table is locked",
		"i/o timeout",
		"deadlock",
		"try restarting transaction",
	} {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}
