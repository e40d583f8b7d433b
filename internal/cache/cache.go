// Package cache provides the response cache shared by connectors: a
// string-keyed store with TTL and JSON-serializable values, plus a
// compute-if-absent helper.
package cache

import (
	"context"
	"time"
)

// Store is the key/value backend. Values are JSON-serialized. A zero or
// negative TTL stores the value without expiry.
type Store interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// GetOrSet returns the cached value for key when present and not expired.
// Otherwise it invokes compute, stores a non-nil result under the given TTL
// and returns it. A nil compute result is never cached, so a failed fetch
// is retried on the very next call. Store errors are swallowed and treated
// as a miss: the cache must never break the caller.
//
// There is no single-flight guarantee; concurrent callers for the same key
// may compute twice, which is acceptable for this workload.
func GetOrSet[T any](ctx context.Context, store Store, key string, ttl time.Duration, compute func(context.Context) (*T, error)) (*T, error) {
	var cached T
	if ok, err := store.Get(ctx, key, &cached); err == nil && ok {
		return &cached, nil
	}

	value, err := compute(ctx)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, nil
	}

	// Best effort write; a failed set only costs a recompute next time.
	_ = store.Set(ctx, key, value, ttl)
	return value, nil
}
