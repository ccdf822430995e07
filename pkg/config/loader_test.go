package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docchat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoader_Load(t *testing.T) {
	t.Run("Should load defaults when no sources are given", func(t *testing.T) {
		cfg, err := NewService().Load(t.Context())
		require.NoError(t, err)
		assert.Equal(t, Default().Processing, cfg.Processing)
	})

	t.Run("Should override defaults from YAML while keeping unset keys", func(t *testing.T) {
		path := writeYAML(t, `
processing:
  chunk_size: 100
  overlap_size: 20
  unicode: fold
batch:
  inputs:
    - a.pdf
    - b.pdf
retrieval:
  retry_backoff: 1s
`)
		cfg, err := NewService().Load(t.Context(), NewYAMLProvider(path))
		require.NoError(t, err)
		assert.Equal(t, 100, cfg.Processing.ChunkSize)
		assert.Equal(t, 20, cfg.Processing.OverlapSize)
		assert.Equal(t, "fold", cfg.Processing.Unicode)
		assert.Equal(t, 20, cfg.Processing.MinChunkLength)
		assert.Equal(t, []string{"a.pdf", "b.pdf"}, cfg.Batch.Inputs)
		assert.Equal(t, time.Second, cfg.Retrieval.RetryBackoff)
	})

	t.Run("Should let CLI flags override YAML", func(t *testing.T) {
		path := writeYAML(t, "processing:\n  chunk_size: 300\n")
		cfg, err := NewService().Load(
			t.Context(),
			NewYAMLProvider(path),
			NewCLIProvider(map[string]any{"chunk-size": 400, "top-k": 7}),
		)
		require.NoError(t, err)
		assert.Equal(t, 400, cfg.Processing.ChunkSize)
		assert.Equal(t, 7, cfg.Retrieval.TopK)
	})

	t.Run("Should let tagged environment variables win", func(t *testing.T) {
		t.Setenv("PROCESSING_CHUNK_SIZE", "512")
		t.Setenv("PROCESSING_REMOVE_NUMBERS", "true")
		t.Setenv("OPENAI_API_KEY", "sk-from-env")
		path := writeYAML(t, "processing:\n  chunk_size: 300\n")

		cfg, err := NewService().Load(t.Context(), NewYAMLProvider(path))
		require.NoError(t, err)
		assert.Equal(t, 512, cfg.Processing.ChunkSize)
		assert.True(t, cfg.Processing.RemoveNumbers)
		assert.Equal(t, "sk-from-env", cfg.Embedder.APIKey.Value())
	})

	t.Run("Should let CLI flags override environment variables", func(t *testing.T) {
		t.Setenv("RETRIEVAL_TOP_K", "9")
		cfg, err := NewService().Load(t.Context(), NewCLIProvider(map[string]any{"top-k": "3"}))
		require.NoError(t, err)
		assert.Equal(t, 3, cfg.Retrieval.TopK)
	})

	t.Run("Should fail when overlap is not smaller than chunk size", func(t *testing.T) {
		path := writeYAML(t, "processing:\n  chunk_size: 100\n  overlap_size: 150\n")
		_, err := NewService().Load(t.Context(), NewYAMLProvider(path))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validation failed")
	})

	t.Run("Should fail on malformed YAML", func(t *testing.T) {
		path := writeYAML(t, "processing: [unclosed\n")
		_, err := NewService().Load(t.Context(), NewYAMLProvider(path))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse YAML file")
	})
}

func TestLoader_GetSource(t *testing.T) {
	t.Run("Should track where each key came from", func(t *testing.T) {
		t.Setenv("RETRIEVAL_TOP_K", "9")
		path := writeYAML(t, "processing:\n  chunk_size: 300\n")
		svc := NewService()

		_, err := svc.Load(t.Context(), NewYAMLProvider(path))
		require.NoError(t, err)

		assert.Equal(t, SourceYAML, svc.GetSource("processing.chunk_size"))
		assert.Equal(t, SourceEnv, svc.GetSource("retrieval.top_k"))
		assert.Equal(t, SourceDefault, svc.GetSource("processing.overlap_size"))
	})
}

func TestFromContext(t *testing.T) {
	t.Run("Should return the attached configuration", func(t *testing.T) {
		cfg := Default()
		cfg.Processing.ChunkSize = 42
		cfg.Processing.OverlapSize = 0
		ctx := ContextWithConfig(t.Context(), cfg)
		assert.Same(t, cfg, FromContext(ctx))
	})

	t.Run("Should fall back to a usable configuration", func(t *testing.T) {
		cfg := FromContext(t.Context())
		require.NotNil(t, cfg)
		assert.Positive(t, cfg.Processing.ChunkSize)
	})
}

func TestServiceFromContext(t *testing.T) {
	t.Run("Should return the attached loader", func(t *testing.T) {
		svc := NewService()
		ctx := ContextWithService(t.Context(), svc)
		assert.Same(t, svc, ServiceFromContext(ctx))
	})

	t.Run("Should return nil when no loader is attached", func(t *testing.T) {
		assert.Nil(t, ServiceFromContext(t.Context()))
	})
}
