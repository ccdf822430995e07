package ingest

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/compozy/docchat/engine/knowledge"
	"github.com/compozy/docchat/engine/knowledge/chunk"
	"github.com/compozy/docchat/engine/knowledge/embedder"
	"github.com/compozy/docchat/engine/knowledge/vectordb"
	"github.com/compozy/docchat/pkg/logger"
)

const (
	defaultIndexBatchSize = 32
	defaultIndexRetries   = 3
	defaultIndexBackoff   = 200 * time.Millisecond
)

// IndexOptions controls how chunks are embedded and stored.
type IndexOptions struct {
	BatchSize int
	Retries   int
	Backoff   time.Duration
	// ReplaceSources removes previously stored records of a source before its
	// first batch is written, so re-ingesting a file does not leave stale chunks.
	ReplaceSources bool
}

func (o IndexOptions) normalized() IndexOptions {
	if o.BatchSize <= 0 {
		o.BatchSize = defaultIndexBatchSize
	}
	if o.Retries < 0 {
		o.Retries = defaultIndexRetries
	}
	if o.Backoff <= 0 {
		o.Backoff = defaultIndexBackoff
	}
	return o
}

// Indexer embeds chunks in batches and upserts them into a vector store.
type Indexer struct {
	embedder embedder.Embedder
	store    vectordb.Store
	options  IndexOptions
}

func NewIndexer(emb embedder.Embedder, store vectordb.Store, opts IndexOptions) (*Indexer, error) {
	if emb == nil {
		return nil, errors.New("ingest: embedder is required")
	}
	if store == nil {
		return nil, errors.New("ingest: vector store is required")
	}
	return &Indexer{embedder: emb, store: store, options: opts.normalized()}, nil
}

// Index consumes chunks and returns how many records were written. Records
// written before a failure stay in the store.
func (ix *Indexer) Index(ctx context.Context, chunks iter.Seq[chunk.Chunk]) (int, error) {
	log := logger.FromContext(ctx)
	written := 0
	replaced := make(map[string]struct{})
	batch := make([]chunk.Chunk, 0, ix.options.BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := ix.replaceSources(ctx, batch, replaced); err != nil {
			return err
		}
		n, err := ix.writeBatch(ctx, batch)
		written += n
		batch = batch[:0]
		return err
	}
	for c := range chunks {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		batch = append(batch, c)
		if len(batch) == ix.options.BatchSize {
			if err := flush(); err != nil {
				return written, err
			}
		}
	}
	if err := flush(); err != nil {
		return written, err
	}
	log.Info("Chunks indexed", "records", written)
	return written, nil
}

func (ix *Indexer) replaceSources(ctx context.Context, batch []chunk.Chunk, replaced map[string]struct{}) error {
	if !ix.options.ReplaceSources {
		return nil
	}
	for _, c := range batch {
		if _, ok := replaced[c.Source]; ok {
			continue
		}
		replaced[c.Source] = struct{}{}
		err := ix.store.Delete(ctx, vectordb.Filter{Metadata: map[string]string{"source": c.Source}})
		if err != nil {
			return fmt.Errorf("ingest: replace records of %q: %w", c.Source, err)
		}
	}
	return nil
}

// Forget removes every stored record of source.
func (ix *Indexer) Forget(ctx context.Context, source string) error {
	err := ix.withRetry(ctx, "delete", func(ctx context.Context) error {
		return ix.store.Delete(ctx, vectordb.Filter{Metadata: map[string]string{"source": source}})
	})
	if err != nil {
		return fmt.Errorf("ingest: forget %q: %w", source, err)
	}
	logger.FromContext(ctx).Info("Source removed from index", "source", source)
	return nil
}

// ForgetStale drops the records of files that were processed but yielded no
// chunks, such as a file emptied or made unreadable since it was indexed.
// Files that never started keep their records. It returns the number of
// sources dropped.
func (ix *Indexer) ForgetStale(ctx context.Context, files []FileSummary) (int, error) {
	dropped := make(map[string]struct{})
	for _, f := range files {
		if f.Stage == StagePending || f.Chunks > 0 {
			continue
		}
		if _, ok := dropped[f.Source]; ok {
			continue
		}
		if err := ix.Forget(ctx, f.Source); err != nil {
			return len(dropped), err
		}
		dropped[f.Source] = struct{}{}
	}
	return len(dropped), nil
}

func (ix *Indexer) writeBatch(ctx context.Context, batch []chunk.Chunk) (int, error) {
	texts := make([]string, len(batch))
	for i := range batch {
		texts[i] = batch[i].Text
	}
	var vectors [][]float32
	err := ix.withRetry(ctx, "embed", func(ctx context.Context) error {
		var err error
		vectors, err = ix.embedder.EmbedDocuments(ctx, texts)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("ingest: embed batch: %w", err)
	}
	records := make([]vectordb.Record, len(batch))
	for i, c := range batch {
		records[i] = vectordb.Record{
			ID:        c.ID(),
			Text:      c.Text,
			Embedding: vectors[i],
			Metadata:  c.Metadata(),
		}
	}
	err = ix.withRetry(ctx, "upsert", func(ctx context.Context) error {
		return ix.store.Upsert(ctx, records)
	})
	if err != nil {
		return 0, fmt.Errorf("ingest: upsert batch: %w", err)
	}
	knowledge.RecordIndexed(ctx, len(records))
	logger.FromContext(ctx).Debug("Batch indexed", "records", len(records))
	return len(records), nil
}

// withRetry retries op with exponential backoff unless the error is permanent.
func (ix *Indexer) withRetry(ctx context.Context, operation string, op func(context.Context) error) error {
	attempt := 0
	backoff := retry.WithMaxRetries(uint64(ix.options.Retries), retry.NewExponential(ix.options.Backoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := op(ctx)
		if err == nil {
			return nil
		}
		if isPermanent(err) {
			return err
		}
		if attempt <= ix.options.Retries {
			knowledge.RecordEmbedRetry(ctx)
			logger.FromContext(ctx).Warn("Retrying index operation", "operation", operation, "attempt", attempt, "error", err)
		}
		return retry.RetryableError(err)
	})
}

func isPermanent(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, embedder.ErrDimensionMismatch) ||
		errors.Is(err, vectordb.ErrDimensionMismatch)
}
