package embedder

import (
	"context"

	appconfig "github.com/compozy/docchat/pkg/config"
)

// Provider names an embedding backend.
type Provider string

const (
	// ProviderHash is a local feature-hashing embedder that needs no network.
	ProviderHash   Provider = "hash"
	ProviderOpenAI Provider = "openai"
)

// Config describes how to build an embedder.
type Config struct {
	ID            string
	Provider      Provider
	Model         string
	APIKey        string
	BaseURL       string
	Dimension     int
	BatchSize     int
	CacheSize     int
	StripNewLines bool
}

// Embedder produces vectors for documents and queries.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// FromAppConfig maps the embedder section of the application config.
func FromAppConfig(cfg *appconfig.EmbedderConfig) *Config {
	model := cfg.Model
	if Provider(cfg.Provider) == ProviderHash {
		model = "feature-hash"
	}
	return &Config{
		ID:        cfg.Provider,
		Provider:  Provider(cfg.Provider),
		Model:     model,
		APIKey:    cfg.APIKey.Value(),
		BaseURL:   cfg.BaseURL,
		Dimension: cfg.Dimension,
		BatchSize: cfg.BatchSize,
		CacheSize: cfg.CacheSize,
	}
}
