package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/compozy/docchat/engine/knowledge"
	"github.com/compozy/docchat/engine/knowledge/chunk"
	"github.com/compozy/docchat/pkg/logger"
)

// Extractor loads the raw text of one input file.
// *document.Registry satisfies it.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Driver runs load, normalize and split over a batch of files.
type Driver struct {
	extractor Extractor
	processor *chunk.Processor
	options   Options
}

func NewDriver(extractor Extractor, processor *chunk.Processor, opts Options) (*Driver, error) {
	if extractor == nil {
		return nil, errors.New("ingest: extractor is required")
	}
	if processor == nil {
		return nil, errors.New("ingest: chunk processor is required")
	}
	return &Driver{extractor: extractor, processor: processor, options: opts.normalized()}, nil
}

type fileOutcome struct {
	summary FileSummary
	chunks  []chunk.Chunk
}

// Run processes paths and returns the merged result.
//
// A file that fails is recorded in Result.Failures and skipped. The returned
// error is a *NoContentError when there are no paths or no chunks at all, and
// ctx.Err() when the batch was cancelled before every file started; in both
// cases the partial Result is still returned.
func (d *Driver) Run(ctx context.Context, paths []string) (*Result, error) {
	result := &Result{
		RunID:     uuid.NewString(),
		Status:    StatusPending,
		StartedAt: time.Now(),
	}
	log := logger.FromContext(ctx).With("run_id", result.RunID)
	if len(paths) == 0 {
		return d.finish(ctx, result, StatusFailed), &NoContentError{}
	}
	result.Status = StatusRunning
	log.Info("Batch started", "files", len(paths), "max_concurrent_files", d.options.MaxConcurrentFiles)

	outcomes := make([]*fileOutcome, len(paths))
	sem := semaphore.NewWeighted(int64(d.options.MaxConcurrentFiles))
	var wg sync.WaitGroup
	var cancelErr error
	for i, path := range paths {
		// Cancellation is honoured between files only; a started file runs to completion.
		if err := ctx.Err(); err != nil {
			cancelErr = err
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			cancelErr = err
			break
		}
		fileCtx := logger.ContextWithLogger(context.WithoutCancel(ctx), log.With("file", path))
		wg.Go(func() {
			defer sem.Release(1)
			outcomes[i] = d.processFile(fileCtx, path)
		})
	}
	wg.Wait()

	for i, outcome := range outcomes {
		if outcome == nil {
			result.Files = append(result.Files, FileSummary{
				Path:   paths[i],
				Source: filepath.Base(paths[i]),
				Stage:  StagePending,
			})
			continue
		}
		result.Files = append(result.Files, outcome.summary)
		if outcome.summary.Err != nil {
			result.Failures = append(result.Failures, FileReport{
				Path:  outcome.summary.Path,
				Stage: outcome.summary.Stage,
				Err:   outcome.summary.Err,
			})
			continue
		}
		if len(outcome.chunks) > 0 {
			result.groups = append(result.groups, outcome.chunks)
		}
	}

	switch {
	case cancelErr != nil:
		log.Warn("Batch cancelled", "started", countStarted(outcomes), "files", len(paths))
		return d.finish(ctx, result, StatusFailed), cancelErr
	case result.ChunkCount() == 0:
		log.Warn("Batch produced no chunks", "files", len(paths), "failed", len(result.Failures))
		return d.finish(ctx, result, StatusFailed), &NoContentError{Inputs: len(paths), Failures: result.Failures}
	case len(result.Failures) > 0:
		return d.finish(ctx, result, StatusCompletedWithErrors), nil
	default:
		return d.finish(ctx, result, StatusCompleted), nil
	}
}

func (d *Driver) finish(ctx context.Context, result *Result, status Status) *Result {
	result.Status = status
	result.FinishedAt = time.Now()
	knowledge.RecordBatch(ctx, string(status))
	logger.FromContext(ctx).Info(
		"Batch finished",
		"run_id", result.RunID,
		"status", status,
		"chunks", result.ChunkCount(),
		"failed", len(result.Failures),
		"duration", result.Duration(),
	)
	return result
}

func (d *Driver) processFile(ctx context.Context, path string) *fileOutcome {
	log := logger.FromContext(ctx)
	start := time.Now()
	source := filepath.Base(path)
	out := &fileOutcome{summary: FileSummary{Path: path, Source: source}}
	fail := func(stage Stage, err error) *fileOutcome {
		out.summary.Stage = stage
		out.summary.Err = err
		out.summary.Duration = time.Since(start)
		report := FileReport{Path: path, Stage: stage, Err: err}
		log.Warn("Skipping file", "stage", stage, "reason", report.Reason(), "error", err)
		knowledge.RecordFile(ctx, report.Reason(), out.summary.Duration)
		return out
	}
	if d.options.FileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.options.FileTimeout)
		defer cancel()
	}

	log.Debug("Loading file")
	raw, err := d.extractor.Extract(ctx, path)
	if err != nil {
		return fail(StageLoading, err)
	}

	log.Debug("Normalizing text", "raw_bytes", len(raw))
	normalized := d.processor.Normalize(raw)

	log.Debug("Splitting text", "normalized_bytes", len(normalized))
	seq, err := d.processor.Chunks(source, normalized)
	if err != nil {
		return fail(StageSplitting, err)
	}
	out.chunks = slices.Collect(seq)

	out.summary.Stage = StageDone
	out.summary.Chunks = len(out.chunks)
	out.summary.Duration = time.Since(start)
	knowledge.RecordFile(ctx, "completed", out.summary.Duration)
	knowledge.RecordFileChunks(ctx, len(out.chunks))
	log.Info("File processed", "chunks", len(out.chunks), "duration", out.summary.Duration)
	return out
}

func countStarted(outcomes []*fileOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o != nil {
			n++
		}
	}
	return n
}
