package ingest

import (
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/compozy/docchat/engine/knowledge/chunk"
	"github.com/compozy/docchat/engine/knowledge/document"
)

// Status is the lifecycle state of a batch run.
type Status string

const (
	StatusPending             Status = "pending"
	StatusRunning             Status = "running"
	StatusCompleted           Status = "completed"
	StatusCompletedWithErrors Status = "completed_with_errors"
	StatusFailed              Status = "failed"
)

// Stage is the per-file step being executed.
type Stage string

const (
	// StagePending marks files that never started because the batch was cancelled.
	StagePending     Stage = "pending"
	StageLoading     Stage = "loading"
	StageNormalizing Stage = "normalizing"
	StageSplitting   Stage = "splitting"
	StageDone        Stage = "done"
)

// FileReport describes a file that was skipped.
type FileReport struct {
	Path  string
	Stage Stage
	Err   error
}

func (f FileReport) Error() string {
	return fmt.Sprintf("%s (%s): %v", f.Path, f.Stage, f.Err)
}

// Reason classifies the failure for logs and metrics.
func (f FileReport) Reason() string {
	switch {
	case errors.Is(f.Err, document.ErrNotFound):
		return "not_found"
	case errors.Is(f.Err, document.ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(f.Err, document.ErrExtraction):
		return "extraction_error"
	default:
		return "error"
	}
}

// FileSummary is the outcome of one input, in input order.
type FileSummary struct {
	Path     string
	Source   string
	Chunks   int
	Stage    Stage
	Duration time.Duration
	Err      error
}

// Result is the outcome of a batch run.
type Result struct {
	RunID      string
	Status     Status
	Files      []FileSummary
	Failures   []FileReport
	StartedAt  time.Time
	FinishedAt time.Time
	groups     [][]chunk.Chunk
}

// Chunks flattens the chunks of every successful file, file by file in input order.
// The sequence can be ranged over any number of times.
func (r *Result) Chunks() iter.Seq[chunk.Chunk] {
	return func(yield func(chunk.Chunk) bool) {
		for _, group := range r.groups {
			for _, c := range group {
				if !yield(c) {
					return
				}
			}
		}
	}
}

// ChunkCount returns the total number of chunks.
func (r *Result) ChunkCount() int {
	n := 0
	for _, group := range r.groups {
		n += len(group)
	}
	return n
}

// Duration returns the wall time of the run.
func (r *Result) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
