package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/compozy/docchat/cli/helpers"
	"github.com/compozy/docchat/engine/knowledge/answer"
	"github.com/compozy/docchat/engine/knowledge/ingest"
	testhelpers "github.com/compozy/docchat/test/helpers"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := RootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append(args, "--log-level=error", "--no-color"))
	err := root.ExecuteContext(t.Context())
	return stdout.String(), stderr.String(), err
}

func setupWorkspace(t *testing.T) (docs string, configPath string) {
	t.Helper()
	dir := t.TempDir()
	docs = filepath.Join(dir, "docs")
	testhelpers.WriteFile(t, docs, "rockets.txt",
		"Rockets reach orbit by burning fuel in separate stages.\n"+
			"Each stage of the rockets drops away once empty so the rest can reach orbit.\n")
	testhelpers.WriteFile(t, docs, "garden.txt",
		"Tomatoes grow best in warm soil with plenty of sun.\n"+
			"Water the garden beds early in the morning before the heat.\n")
	configPath = testhelpers.WriteFile(t, dir, "docchat.yaml", fmt.Sprintf(`
embedder:
  provider: hash
  dimension: 256
vector_store:
  provider: filesystem
  path: %s
llm:
  provider: extractive
`, filepath.Join(dir, "data", "store.json")))
	return docs, configPath
}

func TestIngestCommand(t *testing.T) {
	t.Run("Should print one JSON line per chunk", func(t *testing.T) {
		docs, configPath := setupWorkspace(t)
		stdout, _, err := run(t, "ingest", docs, "--config", configPath)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(stdout), "\n")
		require.GreaterOrEqual(t, len(lines), 2)
		sources := make(map[string]bool)
		for _, line := range lines {
			var chunk struct {
				Source string `json:"source"`
				Text   string `json:"text"`
			}
			require.NoError(t, json.Unmarshal([]byte(line), &chunk))
			assert.NotEmpty(t, chunk.Text)
			sources[chunk.Source] = true
		}
		assert.Equal(t, map[string]bool{"garden.txt": true, "rockets.txt": true}, sources)
	})

	t.Run("Should warn about skipped files and keep going", func(t *testing.T) {
		docs, configPath := setupWorkspace(t)
		missing := filepath.Join(docs, "missing.txt")
		stdout, stderr, err := run(t, "ingest", filepath.Join(docs, "rockets.txt"), missing,
			"--config", configPath, "--format", "json")
		require.NoError(t, err)
		assert.Contains(t, stderr, "warning: skipped "+missing)
		var view struct {
			Status string `json:"status"`
			Failed int    `json:"failed"`
		}
		require.NoError(t, json.Unmarshal([]byte(stdout), &view))
		assert.Equal(t, string(ingest.StatusCompletedWithErrors), view.Status)
		assert.Equal(t, 1, view.Failed)
	})

	t.Run("Should fail when nothing was produced", func(t *testing.T) {
		docs, configPath := setupWorkspace(t)
		_, _, err := run(t, "ingest", filepath.Join(docs, "missing.txt"), "--config", configPath)
		require.Error(t, err)
		assert.ErrorIs(t, err, ingest.ErrNoContent)
		var cliErr *helpers.CliError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, "NO_CONTENT", cliErr.Code)
	})

	t.Run("Should reject unknown output formats", func(t *testing.T) {
		docs, configPath := setupWorkspace(t)
		_, _, err := run(t, "ingest", docs, "--config", configPath, "--format", "xml")
		var cliErr *helpers.CliError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, "INVALID_FORMAT", cliErr.Code)
	})
}

func TestIndexAndAsk(t *testing.T) {
	t.Run("Should index documents and answer from the best passage", func(t *testing.T) {
		docs, configPath := setupWorkspace(t)

		stdout, _, err := run(t, "index", docs, "--config", configPath, "--format", "json")
		require.NoError(t, err)
		var indexed struct {
			Status  string `json:"status"`
			Chunks  int    `json:"chunks"`
			Indexed int    `json:"indexed"`
			Records int    `json:"records"`
		}
		require.NoError(t, json.Unmarshal([]byte(stdout), &indexed))
		assert.Equal(t, string(ingest.StatusCompleted), indexed.Status)
		assert.Positive(t, indexed.Indexed)
		assert.Equal(t, indexed.Chunks, indexed.Indexed)
		assert.Equal(t, indexed.Indexed, indexed.Records)

		stdout, _, err = run(t, "ask", "how", "do", "rockets", "reach", "orbit",
			"--config", configPath, "--format", "json")
		require.NoError(t, err)
		require.True(t, gjson.Valid(stdout))
		reply := gjson.Parse(stdout)
		assert.Equal(t, "how do rockets reach orbit", reply.Get("question").String())
		require.Positive(t, reply.Get("sources.#").Int())
		assert.Equal(t, "rockets.txt", reply.Get("sources.0.source").String())
		assert.True(t, strings.HasPrefix(reply.Get("answer").String(), "From rockets.txt"))

		stdout, _, err = run(t, "stats", "--config", configPath, "--format", "json")
		require.NoError(t, err)
		stats := gjson.Parse(stdout)
		assert.Equal(t, int64(indexed.Records), stats.Get("records").Int())
		assert.Equal(t, int64(256), stats.Get("dimension").Int())
	})

	t.Run("Should keep the record count stable when re-indexing", func(t *testing.T) {
		docs, configPath := setupWorkspace(t)
		_, _, err := run(t, "index", docs, "--config", configPath)
		require.NoError(t, err)
		_, _, err = run(t, "index", docs, "--config", configPath)
		require.NoError(t, err)
		first, _, err := run(t, "stats", "--config", configPath, "--format", "json")
		require.NoError(t, err)
		_, _, err = run(t, "index", filepath.Join(docs, "rockets.txt"), "--config", configPath)
		require.NoError(t, err)
		second, _, err := run(t, "stats", "--config", configPath, "--format", "json")
		require.NoError(t, err)
		assert.JSONEq(t, first, second)
	})

	t.Run("Should drop records of a file that no longer has content", func(t *testing.T) {
		docs, configPath := setupWorkspace(t)
		_, _, err := run(t, "index", docs, "--config", configPath)
		require.NoError(t, err)
		stdout, _, err := run(t, "index", filepath.Join(docs, "garden.txt"), "--config", configPath, "--format", "json")
		require.NoError(t, err)
		gardenChunks := gjson.Get(stdout, "indexed").Int()
		require.Positive(t, gardenChunks)

		testhelpers.WriteFile(t, docs, "rockets.txt", "x\n")
		stdout, _, err = run(t, "index", docs, "--config", configPath, "--format", "json")
		require.NoError(t, err)
		assert.Equal(t, gardenChunks, gjson.Get(stdout, "records").Int())
		assert.Equal(t, "completed", gjson.Get(stdout, "status").String())
	})

	t.Run("Should drop records when the only input is emptied", func(t *testing.T) {
		docs, configPath := setupWorkspace(t)
		rockets := filepath.Join(docs, "rockets.txt")
		_, _, err := run(t, "index", rockets, "--config", configPath)
		require.NoError(t, err)

		testhelpers.WriteFile(t, docs, "rockets.txt", "x\n")
		_, _, err = run(t, "index", rockets, "--config", configPath)
		assert.ErrorIs(t, err, ingest.ErrNoContent)
		_, _, err = run(t, "ask", "rockets", "--config", configPath)
		assert.ErrorIs(t, err, answer.ErrNoDocuments)
	})

	t.Run("Should report an empty store", func(t *testing.T) {
		_, configPath := setupWorkspace(t)
		_, _, err := run(t, "ask", "anything", "--config", configPath)
		assert.ErrorIs(t, err, answer.ErrNoDocuments)
	})
}

func TestConfigShowCommand(t *testing.T) {
	t.Run("Should apply flags over the YAML file and track their source", func(t *testing.T) {
		_, configPath := setupWorkspace(t)
		stdout, _, err := run(t, "config", "show", "--config", configPath, "--format", "json",
			"--sources", "--chunk-size", "500", "--overlap", "50")
		require.NoError(t, err)
		doc := gjson.Parse(stdout)
		assert.Equal(t, int64(500), doc.Get("config.processing.chunk_size").Int())
		assert.Equal(t, int64(50), doc.Get("config.processing.overlap_size").Int())
		assert.Equal(t, int64(256), doc.Get("config.embedder.dimension").Int())
		assert.Equal(t, "cli", doc.Get(`sources.processing\.chunk_size`).String())
		assert.Equal(t, "default", doc.Get(`sources.retrieval\.top_k`).String())
	})

	t.Run("Should fail on an invalid configuration", func(t *testing.T) {
		_, configPath := setupWorkspace(t)
		_, _, err := run(t, "config", "show", "--config", configPath, "--chunk-size", "10", "--overlap", "20")
		var cliErr *helpers.CliError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, "CONFIG_ERROR", cliErr.Code)
	})
}
