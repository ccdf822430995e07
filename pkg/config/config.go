package config

import (
	"context"
	"encoding/json"
	"time"
)

// Config represents the complete configuration for docchat.
// It provides type-safe access to all configuration values with validation.
type Config struct {
	Processing  ProcessingConfig  `koanf:"processing"   validate:"required"`
	Batch       BatchConfig       `koanf:"batch"        validate:"required"`
	Embedder    EmbedderConfig    `koanf:"embedder"     validate:"required"`
	VectorStore VectorStoreConfig `koanf:"vector_store" validate:"required"`
	Retrieval   RetrievalConfig   `koanf:"retrieval"    validate:"required"`
	LLM         LLMConfig         `koanf:"llm"`
	Monitoring  MonitoringConfig  `koanf:"monitoring"`
	Runtime     RuntimeConfig     `koanf:"runtime"      validate:"required"`
}

// ProcessingConfig controls text normalization and chunking.
type ProcessingConfig struct {
	ChunkSize         int    `koanf:"chunk_size"         validate:"min=1"                    env:"PROCESSING_CHUNK_SIZE"`
	OverlapSize       int    `koanf:"overlap_size"       validate:"min=0"                    env:"PROCESSING_OVERLAP_SIZE"`
	MinChunkLength    int    `koanf:"min_chunk_length"   validate:"min=0"                    env:"PROCESSING_MIN_CHUNK_LENGTH"`
	RemoveNumbers     bool   `koanf:"remove_numbers"                                         env:"PROCESSING_REMOVE_NUMBERS"`
	RemovePunctuation bool   `koanf:"remove_punctuation"                                     env:"PROCESSING_REMOVE_PUNCTUATION"`
	MaxParallelism    int    `koanf:"max_parallelism"    validate:"min=1,max=256"            env:"PROCESSING_MAX_PARALLELISM"`
	Unicode           string `koanf:"unicode"            validate:"oneof=strip fold keep"    env:"PROCESSING_UNICODE"`
	Strategy          string `koanf:"strategy"           validate:"oneof=line_window recursive" env:"PROCESSING_STRATEGY"`
}

// BatchConfig controls the multi-file driver.
type BatchConfig struct {
	MaxConcurrentFiles int      `koanf:"max_concurrent_files" validate:"min=1,max=64" env:"BATCH_MAX_CONCURRENT_FILES"`
	Inputs             []string `koanf:"inputs"                                       env:"BATCH_INPUTS"`
}

// EmbedderConfig selects the embedding backend.
type EmbedderConfig struct {
	Provider  string          `koanf:"provider"   validate:"oneof=hash openai"       env:"EMBEDDER_PROVIDER"`
	Model     string          `koanf:"model"                                         env:"EMBEDDER_MODEL"`
	Dimension int             `koanf:"dimension"  validate:"min=1"                   env:"EMBEDDER_DIMENSION"`
	BatchSize int             `koanf:"batch_size" validate:"min=1"                   env:"EMBEDDER_BATCH_SIZE"`
	CacheSize int             `koanf:"cache_size" validate:"min=0"                   env:"EMBEDDER_CACHE_SIZE"`
	APIKey    SensitiveString `koanf:"api_key"                                       env:"OPENAI_API_KEY"      sensitive:"true"`
	BaseURL   string          `koanf:"base_url"                                      env:"OPENAI_BASE_URL"`
}

// VectorStoreConfig selects where embeddings are persisted.
type VectorStoreConfig struct {
	Provider string `koanf:"provider" validate:"oneof=memory filesystem" env:"VECTOR_STORE_PROVIDER"`
	Path     string `koanf:"path"                                        env:"VECTOR_STORE_PATH"`
}

// RetrievalConfig controls similarity search.
type RetrievalConfig struct {
	TopK         int           `koanf:"top_k"         validate:"min=1,max=100" env:"RETRIEVAL_TOP_K"`
	MinScore     float64       `koanf:"min_score"     validate:"min=-1,max=1"  env:"RETRIEVAL_MIN_SCORE"`
	MaxTokens    int           `koanf:"max_tokens"    validate:"min=0"         env:"RETRIEVAL_MAX_TOKENS"`
	Encoding     string        `koanf:"encoding"                               env:"RETRIEVAL_ENCODING"`
	Retries      int           `koanf:"retries"       validate:"min=0,max=10"  env:"RETRIEVAL_RETRIES"`
	RetryBackoff time.Duration `koanf:"retry_backoff"                          env:"RETRIEVAL_RETRY_BACKOFF"`
}

// LLMConfig contains the hosted completion model settings.
type LLMConfig struct {
	Provider    string          `koanf:"provider"    env:"LLM_PROVIDER"    validate:"oneof=openai extractive"`
	Model       string          `koanf:"model"       env:"LLM_MODEL"`
	APIKey      SensitiveString `koanf:"api_key"     env:"LLM_API_KEY"     sensitive:"true"`
	BaseURL     string          `koanf:"base_url"    env:"LLM_BASE_URL"`
	Temperature float64         `koanf:"temperature" env:"LLM_TEMPERATURE" validate:"min=0,max=2"`
	MaxTokens   int             `koanf:"max_tokens"  env:"LLM_MAX_TOKENS"  validate:"min=0"`
	Timeout     time.Duration   `koanf:"timeout"     env:"LLM_TIMEOUT"`
}

// MonitoringConfig controls metric export.
// Metrics are written in the Prometheus text format for a textfile collector.
type MonitoringConfig struct {
	Enabled      bool   `koanf:"enabled"       env:"MONITORING_ENABLED"`
	TextfilePath string `koanf:"textfile_path" env:"MONITORING_TEXTFILE_PATH"`
}

// RuntimeConfig contains runtime behavior configuration.
type RuntimeConfig struct {
	Environment string        `koanf:"environment" validate:"oneof=development staging production" env:"RUNTIME_ENVIRONMENT"`
	LogLevel    string        `koanf:"log_level"   validate:"oneof=debug info warn error"          env:"RUNTIME_LOG_LEVEL"`
	FileTimeout time.Duration `koanf:"file_timeout"                                                env:"RUNTIME_FILE_TIMEOUT"`
}

// Service loads and validates configuration from a list of sources.
type Service interface {
	Load(ctx context.Context, sources ...Source) (*Config, error)
	Validate(config *Config) error
	GetSource(key string) SourceType
}

// Source provides raw configuration data.
type Source interface {
	Load() (map[string]any, error)
	Type() SourceType
}

type SourceType string

const (
	SourceCLI     SourceType = "cli"
	SourceYAML    SourceType = "yaml"
	SourceEnv     SourceType = "env"
	SourceDefault SourceType = "default"
)

// Metadata records where each key came from.
type Metadata struct {
	Sources  map[string]SourceType `json:"sources"`
	LoadedAt time.Time             `json:"loaded_at"`
}

// SensitiveString hides its value when printed or serialized.
type SensitiveString string

const redacted = "[REDACTED]"

func (s SensitiveString) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

// Value returns the underlying secret.
func (s SensitiveString) Value() string {
	return string(s)
}

func (s SensitiveString) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s SensitiveString) MarshalYAML() (any, error) {
	return s.String(), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Processing: ProcessingConfig{
			ChunkSize:         1000,
			OverlapSize:       200,
			MinChunkLength:    20,
			RemoveNumbers:     false,
			RemovePunctuation: false,
			MaxParallelism:    4,
			Unicode:           "strip",
			Strategy:          "line_window",
		},
		Batch: BatchConfig{
			MaxConcurrentFiles: 2,
		},
		Embedder: EmbedderConfig{
			Provider:  "hash",
			Model:     "text-embedding-3-small",
			Dimension: 256,
			BatchSize: 32,
			CacheSize: 1024,
		},
		VectorStore: VectorStoreConfig{
			Provider: "filesystem",
			Path:     "data/embeddings/store.json",
		},
		Retrieval: RetrievalConfig{
			TopK:         4,
			MinScore:     0,
			MaxTokens:    3000,
			Encoding:     "cl100k_base",
			Retries:      3,
			RetryBackoff: 200 * time.Millisecond,
		},
		LLM: LLMConfig{
			Provider:    "extractive",
			Model:       "gpt-4o-mini",
			Temperature: 0.2,
			MaxTokens:   512,
			Timeout:     60 * time.Second,
		},
		Monitoring: MonitoringConfig{
			Enabled:      false,
			TextfilePath: "data/metrics/docchat.prom",
		},
		Runtime: RuntimeConfig{
			Environment: "development",
			LogLevel:    "info",
			FileTimeout: 0,
		},
	}
}

// Load loads configuration from defaults and environment.
func Load() (*Config, error) {
	service := NewService()
	return service.Load(context.Background())
}
