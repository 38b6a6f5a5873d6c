// Package ratelimit provides a pluggable rate limiting interface.
//
// Ships an in-memory token bucket (MemoryLimiter). Deployments running
// multiple instances can substitute a shared backend; the Limiter
// interface is the contract. Run creation is the main consumer: every
// run provisions a billable sandbox, so unthrottled creation is a cost
// amplifier.
package ratelimit

import "context"

// Limiter decides whether a request identified by key should proceed.
// Implementations must be safe for concurrent use.
type Limiter interface {
	// Allow returns true if the request should proceed. The key is
	// opaque to the limiter; callers construct it (e.g. a client IP).
	// An error signals a limiter malfunction; callers should fail open
	// rather than block traffic.
	Allow(ctx context.Context, key string) (bool, error)

	// Close releases resources (cleanup goroutines, connections).
	Close() error
}

// NoopLimiter permits every request. Used when rate limiting is disabled.
type NoopLimiter struct{}

// Allow always returns true.
func (NoopLimiter) Allow(context.Context, string) (bool, error) { return true, nil }

// Close is a no-op.
func (NoopLimiter) Close() error { return nil }
