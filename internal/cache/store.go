package cache

import (
	"context"
	"time"
)

// Store represents a shared cache interface used across the application.
//
// TakeDelete is the synchronisation point for single-use token records: it
// must atomically return-and-remove the value so two concurrent callers can
// never both observe the key.
type Store interface {
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	TakeDelete(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
}
