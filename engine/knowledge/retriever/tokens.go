package retriever

import (
	"context"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/compozy/docchat/pkg/logger"
)

const defaultEncoding = "cl100k_base"

// TokenEstimator approximates how many model tokens a text consumes.
type TokenEstimator interface {
	EstimateTokens(ctx context.Context, text string) int
}

// runeEstimator assumes four runes per token and never reports zero for non-empty text.
type runeEstimator struct{}

func (runeEstimator) EstimateTokens(_ context.Context, text string) int {
	count := utf8.RuneCountInString(text)
	if count == 0 {
		return 0
	}
	return max(count/4, 1)
}

// TiktokenEstimator counts tokens with a BPE encoding.
type TiktokenEstimator struct {
	encodingName string
	mu           sync.RWMutex
	tke          *tiktoken.Tiktoken
}

// NewTiktokenEstimator loads the named encoding, trying it as a model name
// when it is not an encoding. Loading may download the BPE ranks on first use.
func NewTiktokenEstimator(encodingOrModel string) (*TiktokenEstimator, error) {
	if encodingOrModel == "" {
		encodingOrModel = defaultEncoding
	}
	tke, err := tiktoken.GetEncoding(encodingOrModel)
	if err != nil {
		var modelErr error
		tke, modelErr = tiktoken.EncodingForModel(encodingOrModel)
		if modelErr != nil {
			return nil, fmt.Errorf("load tiktoken encoding %q: %w", encodingOrModel, err)
		}
	}
	return &TiktokenEstimator{encodingName: encodingOrModel, tke: tke}, nil
}

func (e *TiktokenEstimator) EstimateTokens(_ context.Context, text string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.tke.Encode(text, nil, nil))
}

// Encoding returns the encoding or model name the estimator was built from.
func (e *TiktokenEstimator) Encoding() string {
	return e.encodingName
}

// EstimatorFor returns a tiktoken estimator for encoding, or the rune based
// fallback when the encoding cannot be loaded.
func EstimatorFor(ctx context.Context, encoding string) TokenEstimator {
	est, err := NewTiktokenEstimator(encoding)
	if err != nil {
		logger.FromContext(ctx).Warn("Falling back to rune token estimate", "encoding", encoding, "error", err)
		return runeEstimator{}
	}
	return est
}
