// Package ratelimit throttles repeated operations per key using Redis.
//
// The limiter uses a fixed window: the first hit for a key creates a counter
// with a TTL, later hits within the window increment it. Callers decide what
// a key means (an identifier, an IP, a route).
package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLimitExceeded indicates the key has used up its allowance for the
// current window.
var ErrLimitExceeded = errors.New("rate limit exceeded")

// Limiter decides whether an operation keyed by a string may proceed.
type Limiter interface {
	// Allow consumes one unit for key. It returns ErrLimitExceeded when the
	// window allowance is spent, or a transport error from the backend.
	Allow(ctx context.Context, key string) error
}

// FixedWindow is a Limiter backed by a Redis counter per key.
type FixedWindow struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

// Config configures a FixedWindow limiter.
type Config struct {
	// Limit is the number of operations allowed per window.
	Limit int64
	// Window is the duration of the counting window.
	Window time.Duration
}

// NewFixedWindow constructs a FixedWindow limiter.
func NewFixedWindow(client *redis.Client, cfg Config) *FixedWindow {
	if cfg.Limit < 1 {
		cfg.Limit = 1
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}

	return &FixedWindow{
		client: client,
		prefix: "ratelimit:",
		limit:  cfg.Limit,
		window: cfg.Window,
	}
}

// Allow consumes one unit for key within the current window.
func (f *FixedWindow) Allow(ctx context.Context, key string) error {
	fk := f.prefix + key

	count, err := f.client.Incr(ctx, fk).Result()
	if err != nil {
		return err
	}

	// Only the hit that created the counter sets the TTL, so the window
	// starts at the first hit and is not extended by later ones.
	if count == 1 {
		if err := f.client.Expire(ctx, fk, f.window).Err(); err != nil {
			return err
		}
	}

	if count > f.limit {
		return ErrLimitExceeded
	}

	return nil
}
