package cmd

import (
	"fmt"
	"strconv"

	"github.com/compozy/docchat/cli/helpers"
	"github.com/compozy/docchat/engine/knowledge/chunk"
	"github.com/compozy/docchat/engine/knowledge/ingest"
)

// ChunkView is the serialized form of one chunk.
type ChunkView struct {
	ID         string `json:"id"          yaml:"id"`
	Source     string `json:"source"      yaml:"source"`
	Index      int    `json:"chunk_index" yaml:"chunk_index"`
	Length     int    `json:"chunk_size"  yaml:"chunk_size"`
	HasNumbers bool   `json:"has_numbers" yaml:"has_numbers"`
	Text       string `json:"text"        yaml:"text"`
}

func NewChunkView(c chunk.Chunk) ChunkView {
	return ChunkView{
		ID:         c.ID(),
		Source:     c.Source,
		Index:      c.Index,
		Length:     c.Length,
		HasNumbers: c.HasNumbers,
		Text:       c.Text,
	}
}

// FileView is the serialized outcome of one input file.
type FileView struct {
	Path     string `json:"path"            yaml:"path"`
	Source   string `json:"source"          yaml:"source"`
	Stage    string `json:"stage"           yaml:"stage"`
	Chunks   int    `json:"chunks"          yaml:"chunks"`
	Duration string `json:"duration"        yaml:"duration"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

// RunView summarizes a batch run.
type RunView struct {
	RunID    string      `json:"run_id"           yaml:"run_id"`
	Status   string      `json:"status"           yaml:"status"`
	Chunks   int         `json:"chunks"           yaml:"chunks"`
	Failed   int         `json:"failed"           yaml:"failed"`
	Duration string      `json:"duration"         yaml:"duration"`
	Files    []FileView  `json:"files"            yaml:"files"`
	Items    []ChunkView `json:"items,omitempty"  yaml:"items,omitempty"`
}

// NewRunView builds the summary; chunk bodies are included when withChunks is set.
func NewRunView(result *ingest.Result, withChunks bool) RunView {
	view := RunView{
		RunID:    result.RunID,
		Status:   string(result.Status),
		Chunks:   result.ChunkCount(),
		Failed:   len(result.Failures),
		Duration: helpers.FormatDuration(result.Duration()),
		Files:    make([]FileView, 0, len(result.Files)),
	}
	for _, f := range result.Files {
		fv := FileView{
			Path:     f.Path,
			Source:   f.Source,
			Stage:    string(f.Stage),
			Chunks:   f.Chunks,
			Duration: helpers.FormatDuration(f.Duration),
		}
		if f.Err != nil {
			fv.Error = f.Err.Error()
		}
		view.Files = append(view.Files, fv)
	}
	if withChunks {
		for c := range result.Chunks() {
			view.Items = append(view.Items, NewChunkView(c))
		}
	}
	return view
}

// FileTable renders the per-file outcome of a run.
func FileTable(result *ingest.Result) *helpers.Table {
	t := &helpers.Table{Headers: []string{"FILE", "STAGE", "CHUNKS", "DURATION", "ERROR"}}
	for _, f := range result.Files {
		errText := ""
		if f.Err != nil {
			errText = helpers.Truncate(f.Err.Error(), 60)
		}
		t.Rows = append(t.Rows, []string{
			f.Source,
			string(f.Stage),
			strconv.Itoa(f.Chunks),
			helpers.FormatDuration(f.Duration),
			errText,
		})
	}
	return t
}

// Summary is the one-line human summary printed after a table.
func Summary(result *ingest.Result) string {
	files := len(result.Files)
	return fmt.Sprintf(
		"%d %s from %d %s, %d failed, status %s (run %s)",
		result.ChunkCount(),
		helpers.Pluralize(result.ChunkCount(), "chunk", "chunks"),
		files,
		helpers.Pluralize(files, "file", "files"),
		len(result.Failures),
		result.Status,
		result.RunID,
	)
}
