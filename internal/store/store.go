// Package store defines the key/value contract rule data is persisted behind.
// Every logical table (ducklings, islands, recent bangs, caches) is one JSON blob.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Well-known keys.
const (
	KeyDucklings    = "ducky-ducklings"
	KeyIslands      = "ducky-islands"
	KeyRecentBangs  = "recent-bangs"
	KeyDefaultBang  = "default-bang"
	KeyLastSearch   = "last-search"
	KeySuperCache   = "ducky-super-cache"
	KeySuperCacheOn = "ENABLE_SUPER_CACHE"
)

// Store is the minimal lifecycle interface every backend implements.
type Store interface {
	// Ping verifies the backend is usable.
	Ping(ctx context.Context) error
	// Close releases any resources held by the store.
	Close() error
}

// RuleStore persists raw JSON values by key.
type RuleStore interface {
	Store
	// Get returns the stored bytes or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys lists stored keys in lexical order.
	Keys(ctx context.Context) ([]string, error)
}

// Load decodes the JSON value stored under key into a T.
// The returned value is always usable: def when the key is missing or
// the stored data is malformed. Malformed data also yields a *DecodeError.
func Load[T any](ctx context.Context, s RuleStore, key string, def T) (T, error) {
	raw, err := s.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return def, nil
		}
		return def, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return def, &DecodeError{Key: key, Err: err}
	}
	return v, nil
}

// Save encodes v as JSON and stores it under key.
func Save[T any](ctx context.Context, s RuleStore, key string, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}

// Memory is an in-process RuleStore. Used by tests and by `ducky resolve --ephemeral`.
type Memory struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

var _ RuleStore = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	v, ok := m.data[key]
	if !ok {
		return nil, NewNotFoundError("key", key)
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.data, key)
	return nil
}

func (m *Memory) Keys(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
