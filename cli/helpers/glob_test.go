package helpers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	return path
}

func TestExpandInputs(t *testing.T) {
	dir := t.TempDir()
	a := touch(t, filepath.Join(dir, "a.pdf"))
	b := touch(t, filepath.Join(dir, "nested", "deep", "b.pdf"))
	notes := touch(t, filepath.Join(dir, "nested", "notes.txt"))
	touch(t, filepath.Join(dir, "image.png"))

	t.Run("Should expand double star patterns in sorted order", func(t *testing.T) {
		got, err := ExpandInputs([]string{filepath.Join(dir, "**", "*.pdf")})
		require.NoError(t, err)
		assert.Equal(t, []string{a, b}, got)
	})
	t.Run("Should search directories for supported documents", func(t *testing.T) {
		got, err := ExpandInputs([]string{filepath.Join(dir, "nested")})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{b, notes}, got)
	})
	t.Run("Should keep literal paths even when missing", func(t *testing.T) {
		missing := filepath.Join(dir, "missing.pdf")
		got, err := ExpandInputs([]string{a, missing, a})
		require.NoError(t, err)
		assert.Equal(t, []string{a, missing}, got)
	})
	t.Run("Should fail when a pattern matches nothing", func(t *testing.T) {
		_, err := ExpandInputs([]string{filepath.Join(dir, "*.docx")})
		assert.ErrorIs(t, err, ErrNoMatches)
	})
	t.Run("Should fail on a malformed pattern", func(t *testing.T) {
		_, err := ExpandInputs([]string{filepath.Join(dir, "[a.pdf")})
		var patternErr *PatternError
		assert.ErrorAs(t, err, &patternErr)
	})
	t.Run("Should require at least one argument", func(t *testing.T) {
		_, err := ExpandInputs(nil)
		assert.ErrorIs(t, err, ErrNoInputs)
	})
}
