package ingest

import (
	"time"

	"github.com/compozy/docchat/pkg/config"
)

const defaultMaxConcurrentFiles = 1

// Options controls batch execution.
type Options struct {
	// MaxConcurrentFiles bounds how many files are in flight at once.
	MaxConcurrentFiles int
	// FileTimeout bounds a single file; zero means no limit.
	FileTimeout time.Duration
}

// OptionsFromConfig maps the application config onto driver options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxConcurrentFiles: cfg.Batch.MaxConcurrentFiles,
		FileTimeout:        cfg.Runtime.FileTimeout,
	}
}

func (o Options) normalized() Options {
	if o.MaxConcurrentFiles <= 0 {
		o.MaxConcurrentFiles = defaultMaxConcurrentFiles
	}
	if o.FileTimeout < 0 {
		o.FileTimeout = 0
	}
	return o
}

// IndexOptionsFromConfig maps the application config onto indexer options.
func IndexOptionsFromConfig(cfg *config.Config) IndexOptions {
	return IndexOptions{
		BatchSize:      cfg.Embedder.BatchSize,
		Retries:        cfg.Retrieval.Retries,
		Backoff:        cfg.Retrieval.RetryBackoff,
		ReplaceSources: true,
	}
}
