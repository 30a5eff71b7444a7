// Package store keeps session datasets and cached model responses behind a
// small key/value interface with per-key expiry.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("store closed")

// Store is a byte-oriented key/value store with TTLs.
// Get reports ok=false for missing or expired keys.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DefaultTTL    time.Duration
}

// Open returns a Redis store when RedisAddr is set and an in-process store otherwise.
func Open(ctx context.Context, opts Options) (Store, error) {
	if opts.RedisAddr != "" {
		return NewRedis(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
	}
	return NewMemory(opts.DefaultTTL), nil
}
