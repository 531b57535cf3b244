package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreComputesOnce(t *testing.T) {
	store := NewMemoryStore()
	computes := 0

	for i := 0; i < 5; i++ {
		text, err := store.SchemaFor(context.Background(), "key", func() (string, error) {
			computes++
			return "schema text", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "schema text", text)
	}

	assert.Equal(t, 1, computes)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStoreDistinctKeys(t *testing.T) {
	store := NewMemoryStore()

	a, err := store.SchemaFor(context.Background(), "a", func() (string, error) { return "A", nil })
	require.NoError(t, err)
	b, err := store.SchemaFor(context.Background(), "b", func() (string, error) { return "B", nil })
	require.NoError(t, err)

	assert.Equal(t, "A", a)
	assert.Equal(t, "B", b)
	assert.Equal(t, 2, store.Len())
}

func TestMemoryStoreErrorNotCached(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.SchemaFor(context.Background(), "key", func() (string, error) {
		return "", errors.New("boom")
	})
	require.Error(t, err)

	// A failed computation leaves no entry behind; the next caller
	// recomputes.
	text, err := store.SchemaFor(context.Background(), "key", func() (string, error) {
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", text)
}

func TestMemoryStoreConcurrentFirstCalls(t *testing.T) {
	store := NewMemoryStore()

	var computes atomic.Int64
	var wg sync.WaitGroup
	results := make([]string, 64)

	start := make(chan struct{})
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			text, err := store.SchemaFor(context.Background(), "shared", func() (string, error) {
				computes.Add(1)
				return "the one true schema", nil
			})
			require.NoError(t, err)
			results[i] = text
		}(i)
	}
	close(start)
	wg.Wait()

	// All callers observe the identical cached text and the
	// computation ran effectively once.
	for _, r := range results {
		assert.Equal(t, "the one true schema", r)
	}
	assert.Equal(t, int64(1), computes.Load())
}

func TestDefaultStoreIsShared(t *testing.T) {
	assert.Same(t, Default(), Default())
}
