package vectordb

import (
	"context"

	appconfig "github.com/compozy/docchat/pkg/config"
)

// Provider enumerates supported vector store backends.
type Provider string

const (
	// ProviderMemory keeps records in process memory only.
	ProviderMemory Provider = "memory"
	// ProviderFilesystem persists embeddings to a JSON snapshot on disk.
	ProviderFilesystem Provider = "filesystem"
)

// Record represents a chunk persisted to the vector store.
type Record struct {
	ID        string
	Text      string
	Embedding []float32
	Metadata  map[string]any
}

// SearchOptions controls similarity search execution.
type SearchOptions struct {
	TopK     int
	MinScore float64
	Filters  map[string]string
}

// Match captures a similarity search result.
type Match struct {
	ID       string
	Score    float64
	Text     string
	Metadata map[string]any
}

// Filter specifies delete criteria. IDs take precedence over Metadata.
type Filter struct {
	IDs      []string
	Metadata map[string]string
}

// Store exposes the minimal contract for ingestion and retrieval.
type Store interface {
	Upsert(ctx context.Context, records []Record) error
	Search(ctx context.Context, query []float32, opts SearchOptions) ([]Match, error)
	Delete(ctx context.Context, filter Filter) error
	Count(ctx context.Context) (int, error)
	Close(ctx context.Context) error
}

// Config captures normalized settings for a vector store.
type Config struct {
	ID        string
	Provider  Provider
	Path      string
	Dimension int
	MaxTopK   int
}

// FromAppConfig builds a store config for vectors of the given dimension.
func FromAppConfig(cfg *appconfig.VectorStoreConfig, dimension int) *Config {
	return &Config{
		ID:        string(cfg.Provider) + ":" + cfg.Path,
		Provider:  Provider(cfg.Provider),
		Path:      cfg.Path,
		Dimension: dimension,
		MaxTopK:   100,
	}
}
