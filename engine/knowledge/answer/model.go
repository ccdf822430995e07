package answer

import (
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/compozy/docchat/pkg/config"
)

// NewModel builds the completion model named by cfg. The extractive provider
// has no model and yields nil.
func NewModel(cfg *config.LLMConfig) (llms.Model, error) {
	switch cfg.Provider {
	case "", "extractive":
		return nil, nil
	case "openai":
		opts := []openai.Option{openai.WithModel(cfg.Model)}
		if key := cfg.APIKey.Value(); key != "" {
			opts = append(opts, openai.WithToken(key))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("answer: init openai model: %w", err)
		}
		return model, nil
	default:
		return nil, fmt.Errorf("answer: unsupported llm provider: %s", cfg.Provider)
	}
}

// OptionsFromConfig maps the llm and retrieval sections of the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		TopK:        cfg.Retrieval.TopK,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	}
}
