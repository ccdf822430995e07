package chunk

import (
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessor(t *testing.T) {
	raw := "  Annual   Report  2023\r\n\r\nRevenue grew by 12 percent, driven by exports.\n" +
		"ok\nOperating costs were flat across all regions this year.\n"
	settings := Settings{ChunkSize: 60, Overlap: 10, MinChunkLength: 5, MaxParallelism: 2}

	t.Run("Should normalize then split with the line window strategy", func(t *testing.T) {
		p, err := NewProcessor(settings)
		require.NoError(t, err)
		assert.Equal(t, StrategyLineWindow, p.Settings().Strategy)

		seq, err := p.Process("report.pdf", raw)
		require.NoError(t, err)
		chunks := slices.Collect(seq)

		normalized := p.Normalize(raw)
		assert.NotContains(t, normalized, "ok\n")
		splitter, err := NewSplitter(settings)
		require.NoError(t, err)
		assert.Equal(t, splitter.Collect("report.pdf", normalized), chunks)
		assert.True(t, chunks[0].HasNumbers)
	})

	t.Run("Should produce no chunks for text that normalizes to nothing", func(t *testing.T) {
		p, err := NewProcessor(settings)
		require.NoError(t, err)
		seq, err := p.Process("empty.pdf", "ok\n☕\n   ")
		require.NoError(t, err)
		assert.Empty(t, slices.Collect(seq))
	})

	t.Run("Should split with the recursive strategy", func(t *testing.T) {
		s := settings
		s.Strategy = StrategyRecursive
		p, err := NewProcessor(s)
		require.NoError(t, err)

		seq, err := p.Process("report.pdf", raw)
		require.NoError(t, err)
		chunks := slices.Collect(seq)
		require.NotEmpty(t, chunks)

		normalized := p.Normalize(raw)
		for i, c := range chunks {
			assert.Equal(t, i, c.Index)
			assert.NotEmpty(t, c.Text)
			assert.True(t, strings.Contains(normalized, c.Text), c.Text)
		}

		empty, err := p.Chunks("none", "")
		require.NoError(t, err)
		assert.Empty(t, slices.Collect(empty))
	})

	t.Run("Should reject invalid settings", func(t *testing.T) {
		_, err := NewProcessor(Settings{ChunkSize: 10, Overlap: 20, MaxParallelism: 1})
		assert.ErrorIs(t, err, ErrInvalidSettings)
	})
}
