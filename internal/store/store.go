// Package store abstracts the process-external key-value store with per-key
// expiry that backs nonces, delegations and rate-limit counters. Two
// implementations exist: Redis for deployed stages and an in-memory store for
// local development and tests.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is absent or its TTL has elapsed. Expired
// keys are indistinguishable from missing ones.
var ErrNotFound = errors.New("store: key not found")

// ErrCeilingReached is returned by IncrementWithCeiling when the counter is
// already at its maximum. The increment does not happen.
var ErrCeilingReached = errors.New("store: counter ceiling reached")

// KV is the narrow store interface the engine depends on. Every operation is
// atomic with respect to concurrent callers; the three compound operations
// (CompareAndDelete, IncrementWithCeiling, IncrementWindow) are single
// round-trips on the Redis implementation.
type KV interface {
	// Get returns the value at key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set writes value at key. A zero ttl means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// CompareAndDelete atomically removes key iff its current value equals
	// expected. Returns true only when the delete happened. A missing or
	// expired key returns false, never an error.
	CompareAndDelete(ctx context.Context, key, expected string) (bool, error)

	// IncrementWithCeiling atomically increments the integer at key, failing
	// with ErrCeilingReached instead of exceeding ceiling. A missing key
	// starts at zero and receives ttl on creation. Returns the new count.
	IncrementWithCeiling(ctx context.Context, key string, ceiling int64, ttl time.Duration) (int64, error)

	// IncrementWindow implements a fixed-window counter: increments the
	// integer at key, setting window as its TTL when the key is created.
	// Returns the new count and the time remaining until the window resets.
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}
