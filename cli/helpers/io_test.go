package helpers

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type sample struct {
	Name  string `json:"name"  yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

func TestOutputWriter(t *testing.T) {
	t.Run("Should write indented JSON", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewOutputWriter(&buf, OutputFormatJSON, false).WriteData(sample{Name: "a", Count: 2}))
		var got sample
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, sample{Name: "a", Count: 2}, got)
		assert.Contains(t, buf.String(), "\n  ")
	})
	t.Run("Should write one JSON document per line", func(t *testing.T) {
		var buf bytes.Buffer
		w := NewOutputWriter(&buf, OutputFormatJSONL, false)
		require.NoError(t, w.WriteData(sample{Name: "a"}))
		require.NoError(t, w.WriteData(sample{Name: "b"}))
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)
		assert.JSONEq(t, `{"name":"b","count":0}`, lines[1])
	})
	t.Run("Should write YAML", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewOutputWriter(&buf, OutputFormatYAML, false).WriteData(sample{Name: "y", Count: 1}))
		var got sample
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, "y", got.Name)
	})
	t.Run("Should render a table", func(t *testing.T) {
		var buf bytes.Buffer
		err := NewOutputWriter(&buf, OutputFormatTable, false).WriteData(&Table{
			Headers: []string{"FILE", "CHUNKS"},
			Rows:    [][]string{{"a.pdf", "3"}, {"b.pdf", "0"}},
		})
		require.NoError(t, err)
		out := buf.String()
		assert.Contains(t, out, "FILE")
		assert.Contains(t, out, "a.pdf")
		assert.Contains(t, out, "b.pdf")
		assert.Less(t, strings.Index(out, "a.pdf"), strings.Index(out, "b.pdf"))
	})
	t.Run("Should reject non table data in table format", func(t *testing.T) {
		err := NewOutputWriter(&bytes.Buffer{}, OutputFormatTable, false).WriteData(sample{})
		assert.Error(t, err)
	})
}
