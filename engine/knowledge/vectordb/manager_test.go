package vectordb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager(t *testing.T) {
	t.Run("Should share a store until the last release", func(t *testing.T) {
		m := NewManager()
		cfg := &Config{ID: "mem", Provider: ProviderMemory, Dimension: 2}
		first, releaseFirst, err := m.AcquireShared(t.Context(), cfg)
		require.NoError(t, err)
		second, releaseSecond, err := m.AcquireShared(t.Context(), cfg)
		require.NoError(t, err)
		assert.Same(t, first, second)

		require.NoError(t, first.Upsert(t.Context(), []Record{{ID: "a", Embedding: []float32{1, 0}}}))
		n, err := second.Count(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		require.NoError(t, releaseFirst(t.Context()))
		require.NoError(t, releaseFirst(t.Context()))
		assert.Len(t, m.leases, 1)
		require.NoError(t, releaseSecond(t.Context()))
		assert.Empty(t, m.leases)

		third, releaseThird, err := m.AcquireShared(t.Context(), cfg)
		require.NoError(t, err)
		defer func() { _ = releaseThird(t.Context()) }()
		n, err = third.Count(t.Context())
		require.NoError(t, err)
		assert.Zero(t, n)
	})
	t.Run("Should reject a conflicting configuration for the same id", func(t *testing.T) {
		m := NewManager()
		_, release, err := m.AcquireShared(t.Context(), &Config{ID: "mem", Provider: ProviderMemory, Dimension: 2})
		require.NoError(t, err)
		defer func() { _ = release(t.Context()) }()
		_, _, err = m.AcquireShared(t.Context(), &Config{ID: "mem", Provider: ProviderMemory, Dimension: 3})
		assert.ErrorContains(t, err, "already open")
	})
	t.Run("Should share filesystem records between holders of one path", func(t *testing.T) {
		m := NewManager()
		cfg := &Config{
			ID:        "fs",
			Provider:  ProviderFilesystem,
			Path:      filepath.Join(t.TempDir(), "store.json"),
			Dimension: 2,
		}
		indexer, releaseIndexer, err := m.AcquireShared(t.Context(), cfg)
		require.NoError(t, err)
		retriever, releaseRetriever, err := m.AcquireShared(t.Context(), cfg)
		require.NoError(t, err)
		defer func() { _ = releaseRetriever(t.Context()) }()

		require.NoError(t, indexer.Upsert(t.Context(), []Record{{ID: "a", Embedding: []float32{1, 0}}}))
		require.NoError(t, releaseIndexer(t.Context()))
		n, err := retriever.Count(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Len(t, m.leases, 1)
	})
}
