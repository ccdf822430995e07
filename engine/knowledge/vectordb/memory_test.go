package vectordb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(&Config{Dimension: 4})

	t.Run("Should upsert and search by cosine", func(t *testing.T) {
		records := []Record{
			{ID: "a", Text: "alpha", Embedding: []float32{1, 0, 0, 0}, Metadata: map[string]any{"kind": "one"}},
			{ID: "b", Text: "bravo", Embedding: []float32{0, 1, 0, 0}, Metadata: map[string]any{"kind": "two"}},
		}
		require.NoError(t, store.Upsert(ctx, records))
		matches, err := store.Search(ctx, []float32{1, 0, 0, 0}, SearchOptions{TopK: 1})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "a", matches[0].ID)
		assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
	})

	t.Run("Should filter by metadata", func(t *testing.T) {
		matches, err := store.Search(
			ctx,
			[]float32{0, 1, 0, 0},
			SearchOptions{TopK: 2, Filters: map[string]string{"kind": "two"}},
		)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "b", matches[0].ID)
	})

	t.Run("Should count records", func(t *testing.T) {
		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("Should delete by id", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, Filter{IDs: []string{"a"}}))
		matches, err := store.Search(ctx, []float32{1, 0, 0, 0}, SearchOptions{TopK: 2, MinScore: 0.1})
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("Should delete by metadata", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, Filter{Metadata: map[string]string{"kind": "two"}}))
		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("Should fail upsert when dimension mismatches", func(t *testing.T) {
		mismatchStore := newMemoryStore(&Config{Dimension: 4})
		err := mismatchStore.Upsert(ctx, []Record{{ID: "bad", Embedding: []float32{1, 1, 1}}})
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("Should reject records without id", func(t *testing.T) {
		err := newMemoryStore(&Config{Dimension: 2}).Upsert(ctx, []Record{{Embedding: []float32{1, 0}}})
		assert.Error(t, err)
	})

	t.Run("Should fail search when query dimension mismatches", func(t *testing.T) {
		otherStore := newMemoryStore(&Config{Dimension: 2})
		require.NoError(t, otherStore.Upsert(ctx, []Record{{ID: "c", Embedding: []float32{1, 0}}}))
		_, err := otherStore.Search(ctx, []float32{1, 0, 0}, SearchOptions{TopK: 1})
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("Should break score ties by id", func(t *testing.T) {
		tied := newMemoryStore(&Config{Dimension: 2})
		require.NoError(t, tied.Upsert(ctx, []Record{
			{ID: "z", Embedding: []float32{1, 0}},
			{ID: "m", Embedding: []float32{2, 0}},
			{ID: "a", Embedding: []float32{3, 0}},
			{ID: "low", Embedding: []float32{1, 1}},
		}))
		matches, err := tied.Search(ctx, []float32{1, 0}, SearchOptions{TopK: 10})
		require.NoError(t, err)
		ids := make([]string, len(matches))
		for i := range matches {
			ids[i] = matches[i].ID
		}
		assert.Equal(t, []string{"a", "m", "z", "low"}, ids)
	})

	t.Run("Should cap results at max top k", func(t *testing.T) {
		capped := newMemoryStore(&Config{Dimension: 2, MaxTopK: 1})
		require.NoError(t, capped.Upsert(ctx, []Record{
			{ID: "d", Embedding: []float32{1, 0}},
			{ID: "e", Embedding: []float32{0, 1}},
		}))
		matches, err := capped.Search(ctx, []float32{1, 0}, SearchOptions{TopK: 10})
		require.NoError(t, err)
		assert.Len(t, matches, 1)
	})

	t.Run("Should score zero vectors as zero", func(t *testing.T) {
		assert.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 0}))
	})

	t.Run("Should not alias caller slices", func(t *testing.T) {
		s := newMemoryStore(&Config{Dimension: 2})
		vec := []float32{1, 0}
		require.NoError(t, s.Upsert(ctx, []Record{{ID: "x", Embedding: vec}}))
		vec[0] = 0
		matches, err := s.Search(ctx, []float32{1, 0}, SearchOptions{TopK: 1})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
	})
}
