package store

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Memory is an in-process Store backed by ttlcache.
type Memory struct {
	cache  *ttlcache.Cache[string, []byte]
	closed atomic.Bool
}

// NewMemory starts the expiry loop; call Close to stop it.
func NewMemory(defaultTTL time.Duration) *Memory {
	c := ttlcache.New[string, []byte](
		ttlcache.WithTTL[string, []byte](defaultTTL),
	)
	go c.Start()
	return &Memory{cache: c}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	if m.closed.Load() {
		return nil, false, ErrClosed
	}
	item := m.cache.Get(key)
	if item == nil {
		return nil, false, nil
	}
	v := item.Value()
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// Set stores a copy of value. A zero ttl uses the cache default.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if ttl <= 0 {
		ttl = ttlcache.DefaultTTL
	}
	v := make([]byte, len(value))
	copy(v, value)
	m.cache.Set(key, v, ttl)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	if m.closed.Load() {
		return ErrClosed
	}
	m.cache.Delete(key)
	return nil
}

// Len reports the number of live entries.
func (m *Memory) Len() int { return m.cache.Len() }

func (m *Memory) Close() error {
	if m.closed.CompareAndSwap(false, true) {
		m.cache.Stop()
	}
	return nil
}
