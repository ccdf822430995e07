package embedder

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/compozy/docchat/pkg/config"
)

type countingEmbedder struct {
	mu        sync.Mutex
	dimension int
	calls     [][]string
	err       error
}

func (c *countingEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, append([]string(nil), texts...))
	if c.err != nil {
		return nil, c.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = make([]float32, c.dimension)
		out[i][0] = float32(len(text))
	}
	return out, nil
}

func (c *countingEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func testConfig() *Config {
	return &Config{ID: "test", Provider: ProviderHash, Model: "feature-hash", Dimension: 8, BatchSize: 4}
}

func TestNew(t *testing.T) {
	t.Run("Should build the hash embedder with the configured dimension", func(t *testing.T) {
		adapter, err := New(t.Context(), testConfig())
		require.NoError(t, err)
		vectors, err := adapter.EmbedDocuments(t.Context(), []string{"alpha beta", "gamma"})
		require.NoError(t, err)
		require.Len(t, vectors, 2)
		for _, v := range vectors {
			assert.Len(t, v, 8)
		}
	})
	t.Run("Should reject an unknown provider", func(t *testing.T) {
		cfg := testConfig()
		cfg.Provider = "vertex"
		_, err := New(t.Context(), cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not supported")
	})
	t.Run("Should validate required fields", func(t *testing.T) {
		cfg := testConfig()
		cfg.ID = ""
		_, err := New(t.Context(), cfg)
		assert.ErrorIs(t, err, errMissingID)

		cfg = testConfig()
		cfg.Dimension = 0
		_, err = New(t.Context(), cfg)
		assert.ErrorIs(t, err, errInvalidDimension)

		cfg = testConfig()
		cfg.BatchSize = 0
		_, err = New(t.Context(), cfg)
		assert.ErrorIs(t, err, errInvalidBatchSize)
	})
	t.Run("Should map the application config", func(t *testing.T) {
		app := appconfig.Default().Embedder
		cfg := FromAppConfig(&app)
		assert.Equal(t, ProviderHash, cfg.Provider)
		assert.Equal(t, app.Dimension, cfg.Dimension)
		assert.Equal(t, app.CacheSize, cfg.CacheSize)
		_, err := New(t.Context(), cfg)
		require.NoError(t, err)
	})
}

func TestHashEmbedder(t *testing.T) {
	adapter, err := New(t.Context(), testConfig())
	require.NoError(t, err)

	t.Run("Should be deterministic", func(t *testing.T) {
		a, err := adapter.EmbedQuery(t.Context(), "The quick brown fox")
		require.NoError(t, err)
		b, err := adapter.EmbedQuery(t.Context(), "the QUICK brown fox!")
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
	t.Run("Should produce unit length vectors", func(t *testing.T) {
		v, err := adapter.EmbedQuery(t.Context(), "normalize me please")
		require.NoError(t, err)
		var sum float64
		for _, x := range v {
			sum += float64(x) * float64(x)
		}
		assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
	})
	t.Run("Should return a zero vector for text without words", func(t *testing.T) {
		v, err := adapter.EmbedQuery(t.Context(), "  ... ")
		require.NoError(t, err)
		assert.Equal(t, make([]float32, 8), v)
	})
	t.Run("Should stop on a cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		_, err := newHashClient(8).CreateEmbedding(ctx, []string{"x"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestAdapterCache(t *testing.T) {
	t.Run("Should embed each distinct missing text once", func(t *testing.T) {
		impl := &countingEmbedder{dimension: 8}
		adapter, err := Wrap(testConfig(), impl)
		require.NoError(t, err)
		require.NoError(t, adapter.EnableCache(16))

		vectors, err := adapter.EmbedDocuments(t.Context(), []string{"a", "bb", "a"})
		require.NoError(t, err)
		require.Len(t, vectors, 3)
		assert.Equal(t, vectors[0], vectors[2])
		require.Len(t, impl.calls, 1)
		assert.Equal(t, []string{"a", "bb"}, impl.calls[0])

		_, err = adapter.EmbedDocuments(t.Context(), []string{"bb", "ccc"})
		require.NoError(t, err)
		require.Len(t, impl.calls, 2)
		assert.Equal(t, []string{"ccc"}, impl.calls[1])

		_, err = adapter.EmbedQuery(t.Context(), "ccc")
		require.NoError(t, err)
		assert.Len(t, impl.calls, 2)
	})
	t.Run("Should return copies that do not alias the cache", func(t *testing.T) {
		impl := &countingEmbedder{dimension: 8}
		adapter, err := Wrap(testConfig(), impl)
		require.NoError(t, err)
		require.NoError(t, adapter.EnableCache(4))

		first, err := adapter.EmbedQuery(t.Context(), "abc")
		require.NoError(t, err)
		first[0] = 99
		second, err := adapter.EmbedQuery(t.Context(), "abc")
		require.NoError(t, err)
		assert.InDelta(t, 3, second[0], 1e-9)
	})
	t.Run("Should reject a non positive cache size", func(t *testing.T) {
		adapter, err := Wrap(testConfig(), &countingEmbedder{dimension: 8})
		require.NoError(t, err)
		assert.Error(t, adapter.EnableCache(0))
	})
}

func TestAdapterErrors(t *testing.T) {
	t.Run("Should wrap backend errors with the embedder id", func(t *testing.T) {
		boom := errors.New("boom")
		adapter, err := Wrap(testConfig(), &countingEmbedder{dimension: 8, err: boom})
		require.NoError(t, err)
		_, err = adapter.EmbedDocuments(t.Context(), []string{"x"})
		require.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), `embedder "test"`)
	})
	t.Run("Should reject vectors of the wrong dimension", func(t *testing.T) {
		adapter, err := Wrap(testConfig(), &countingEmbedder{dimension: 3})
		require.NoError(t, err)
		_, err = adapter.EmbedQuery(t.Context(), "x")
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})
	t.Run("Should return an empty result for no texts", func(t *testing.T) {
		impl := &countingEmbedder{dimension: 8}
		adapter, err := Wrap(testConfig(), impl)
		require.NoError(t, err)
		vectors, err := adapter.EmbedDocuments(t.Context(), nil)
		require.NoError(t, err)
		assert.Empty(t, vectors)
		assert.Empty(t, impl.calls)
	})
	t.Run("Should require an implementation", func(t *testing.T) {
		_, err := Wrap(testConfig(), nil)
		assert.Error(t, err)
	})
}
