package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYAMLProvider_Load(t *testing.T) {
	t.Run("Should return empty map when file does not exist", func(t *testing.T) {
		p := NewYAMLProvider(filepath.Join(t.TempDir(), "missing.yaml"))
		data, err := p.Load()
		require.NoError(t, err)
		assert.Empty(t, data)
		assert.Equal(t, SourceYAML, p.Type())
	})

	t.Run("Should drop nil values", func(t *testing.T) {
		path := writeYAML(t, "processing:\n  chunk_size:\n  unicode: keep\nbatch:\n")
		data, err := NewYAMLProvider(path).Load()
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"processing": map[string]any{"unicode": "keep"}}, data)
	})
}

func TestCLIProvider_Load(t *testing.T) {
	t.Run("Should map known flags to nested paths", func(t *testing.T) {
		p := NewCLIProvider(map[string]any{
			"chunk-size":           250,
			"max-concurrent-files": 3,
			"verbose":              true,
		})
		data, err := p.Load()
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"processing": map[string]any{"chunk_size": 250},
			"batch":      map[string]any{"max_concurrent_files": 3},
		}, data)
		assert.Equal(t, SourceCLI, p.Type())
	})

	t.Run("Should list every supported flag", func(t *testing.T) {
		assert.Contains(t, CLIFlagNames(), "overlap")
		assert.Contains(t, CLIFlagNames(), "store")
	})
}

func TestSetNested(t *testing.T) {
	t.Run("Should create intermediate maps", func(t *testing.T) {
		m := map[string]any{}
		require.NoError(t, setNested(m, "a.b.c", 1))
		assert.Equal(t, map[string]any{"a": map[string]any{"b": map[string]any{"c": 1}}}, m)
	})

	t.Run("Should report conflicts with scalar values", func(t *testing.T) {
		m := map[string]any{"a": 1}
		err := setNested(m, "a.b", 2)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration conflict")
	})
}
