// Package cache memoizes derived schema text per type key. Deriving
// the schema for a large type graph is not free, so it is computed at
// most once per process and shared by all concurrent generation calls.
package cache

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Store is the schema cache contract. The first call for a key
// computes and stores; concurrent first calls must not produce two
// divergent cached values: exactly one computed value survives and
// every caller observes it. There is no eviction and no TTL; a process
// restart clears the cache.
type Store interface {
	SchemaFor(ctx context.Context, key string, compute func() (string, error)) (string, error)
}

// MemoryStore is the default process-scoped Store. Reads are lock-free
// once a key is populated; concurrent first computations are collapsed
// through singleflight so the compute function runs effectively once.
type MemoryStore struct {
	entries sync.Map // key → string
	group   singleflight.Group
}

// NewMemoryStore creates an empty in-process schema cache.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// SchemaFor implements Store.
func (s *MemoryStore) SchemaFor(_ context.Context, key string, compute func() (string, error)) (string, error) {
	if v, ok := s.entries.Load(key); ok {
		return v.(string), nil
	}
	v, err, _ := s.group.Do(key, func() (any, error) {
		// Re-check under the flight: a previous flight may have
		// populated the entry between Load and Do.
		if v, ok := s.entries.Load(key); ok {
			return v.(string), nil
		}
		text, err := compute()
		if err != nil {
			return "", err
		}
		actual, _ := s.entries.LoadOrStore(key, text)
		return actual.(string), nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Len returns the number of cached entries. Test helper.
func (s *MemoryStore) Len() int {
	n := 0
	s.entries.Range(func(_, _ any) bool { n++; return true })
	return n
}

var defaultStore = NewMemoryStore()

// Default returns the shared process-wide store used by the package
// facade. Components that want isolation should construct their own
// MemoryStore instead.
func Default() *MemoryStore { return defaultStore }
