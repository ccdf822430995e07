package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/compozy/docchat/pkg/config"
)

// Chunk is a contiguous span of normalized text with its provenance.
// Values are created by the splitter and never modified afterwards.
type Chunk struct {
	Text       string
	Source     string
	Index      int
	Length     int
	HasNumbers bool
}

// New builds a chunk and derives its length and digit flag from text.
func New(source string, index int, text string) Chunk {
	return Chunk{
		Text:       text,
		Source:     source,
		Index:      index,
		Length:     utf8.RuneCountInString(text),
		HasNumbers: strings.ContainsFunc(text, unicode.IsDigit),
	}
}

// ID is a stable identifier derived from source, index and text.
func (c Chunk) ID() string {
	return hashText(fmt.Sprintf("%s::%d::%s", c.Source, c.Index, c.Text))
}

// Metadata returns the attributes stored next to the chunk's embedding.
func (c Chunk) Metadata() map[string]any {
	return map[string]any{
		"source":      c.Source,
		"chunk_index": c.Index,
		"chunk_size":  c.Length,
		"has_numbers": c.HasNumbers,
	}
}

func hashText(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:16])
}

// UnicodeMode selects how characters outside printable ASCII are treated.
type UnicodeMode string

const (
	// UnicodeStrip removes everything outside printable ASCII.
	UnicodeStrip UnicodeMode = "strip"
	// UnicodeFold decomposes accented letters to their base letter, then strips.
	UnicodeFold UnicodeMode = "fold"
	// UnicodeKeep keeps every printable rune.
	UnicodeKeep UnicodeMode = "keep"
)

// Strategy selects the splitting algorithm.
type Strategy string

const (
	StrategyLineWindow Strategy = "line_window"
	StrategyRecursive  Strategy = "recursive"
)

var ErrInvalidSettings = errors.New("chunk: invalid settings")

// Settings configures normalization and splitting.
type Settings struct {
	ChunkSize         int
	Overlap           int
	MinChunkLength    int
	RemoveNumbers     bool
	RemovePunctuation bool
	MaxParallelism    int
	Unicode           UnicodeMode
	Strategy          Strategy
}

// DefaultSettings mirrors the processing defaults of pkg/config.
func DefaultSettings() Settings {
	return SettingsFromConfig(&config.Default().Processing)
}

// SettingsFromConfig converts the processing section of the application config.
func SettingsFromConfig(cfg *config.ProcessingConfig) Settings {
	return Settings{
		ChunkSize:         cfg.ChunkSize,
		Overlap:           cfg.OverlapSize,
		MinChunkLength:    cfg.MinChunkLength,
		RemoveNumbers:     cfg.RemoveNumbers,
		RemovePunctuation: cfg.RemovePunctuation,
		MaxParallelism:    cfg.MaxParallelism,
		Unicode:           UnicodeMode(cfg.Unicode),
		Strategy:          Strategy(cfg.Strategy),
	}
}

// Validate reports the first violated invariant.
func (s Settings) Validate() error {
	switch {
	case s.ChunkSize <= 0:
		return fmt.Errorf("%w: chunk size must be greater than zero", ErrInvalidSettings)
	case s.Overlap < 0:
		return fmt.Errorf("%w: overlap cannot be negative", ErrInvalidSettings)
	case s.Overlap >= s.ChunkSize:
		return fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", ErrInvalidSettings, s.Overlap, s.ChunkSize)
	case s.MinChunkLength < 0:
		return fmt.Errorf("%w: min chunk length cannot be negative", ErrInvalidSettings)
	case s.MaxParallelism <= 0:
		return fmt.Errorf("%w: max parallelism must be greater than zero", ErrInvalidSettings)
	}
	switch s.Unicode {
	case "", UnicodeStrip, UnicodeFold, UnicodeKeep:
	default:
		return fmt.Errorf("%w: unknown unicode mode %q", ErrInvalidSettings, s.Unicode)
	}
	switch s.Strategy {
	case "", StrategyLineWindow, StrategyRecursive:
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidSettings, s.Strategy)
	}
	return nil
}
