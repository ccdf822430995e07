package chunk

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

// Processor runs the normalizer and the configured splitting strategy.
type Processor struct {
	settings   Settings
	normalizer *Normalizer
	splitter   *Splitter
	recursive  *textsplitter.RecursiveCharacter
}

// NewProcessor validates settings and builds the pipeline stages.
func NewProcessor(settings Settings) (*Processor, error) {
	if settings.Strategy == "" {
		settings.Strategy = StrategyLineWindow
	}
	splitter, err := NewSplitter(settings)
	if err != nil {
		return nil, err
	}
	p := &Processor{
		settings:   settings,
		normalizer: NewNormalizer(settings),
		splitter:   splitter,
	}
	if settings.Strategy == StrategyRecursive {
		rc := textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(settings.ChunkSize),
			textsplitter.WithChunkOverlap(settings.Overlap),
		)
		p.recursive = &rc
	}
	return p, nil
}

func (p *Processor) Settings() Settings {
	return p.settings
}

// Normalize cleans raw extracted text.
func (p *Processor) Normalize(raw string) string {
	return p.normalizer.Normalize(raw)
}

// Chunks splits already normalized text.
func (p *Processor) Chunks(source, normalized string) (iter.Seq[Chunk], error) {
	if p.recursive == nil {
		return p.splitter.Split(source, normalized), nil
	}
	if normalized == "" {
		return func(func(Chunk) bool) {}, nil
	}
	parts, err := p.recursive.SplitText(normalized)
	if err != nil {
		return nil, fmt.Errorf("chunk: recursive split %s: %w", source, err)
	}
	chunks := make([]Chunk, 0, len(parts))
	for _, part := range parts {
		if text := strings.TrimSpace(part); text != "" {
			chunks = append(chunks, New(source, len(chunks), text))
		}
	}
	return slices.Values(chunks), nil
}

// Process normalizes raw and splits the result.
func (p *Processor) Process(source, raw string) (iter.Seq[Chunk], error) {
	return p.Chunks(source, p.Normalize(raw))
}
