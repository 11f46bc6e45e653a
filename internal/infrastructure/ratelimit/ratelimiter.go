// Package ratelimit throttles hot endpoints, primarily license validation,
// which every installed script calls on startup.
package ratelimit

import (
	"context"
	"time"
)

// Limits is the per-key request budget across sliding windows. A zero or
// negative limit disables that window.
type Limits struct {
	PerMinute int
	PerHour   int
	PerDay    int
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limits Limits) (bool, error)
	Remaining(ctx context.Context, key string, window time.Duration) (int64, error)
	Reset(ctx context.Context, key string) error
}

// NopRateLimiter allows everything. Used when Redis is disabled.
type NopRateLimiter struct{}

func NewNopRateLimiter() RateLimiter { return &NopRateLimiter{} }

func (NopRateLimiter) Allow(context.Context, string, Limits) (bool, error) { return true, nil }

func (NopRateLimiter) Remaining(context.Context, string, time.Duration) (int64, error) {
	return 0, nil
}

func (NopRateLimiter) Reset(context.Context, string) error { return nil }
