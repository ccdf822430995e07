package chunk

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	digitRun    = regexp.MustCompile(`\p{Nd}+`)
	punctuation = regexp.MustCompile(`[^\p{L}\p{N}\p{M}_\s]`)
)

// Normalizer cleans extracted text line by line.
// Normalize is a fixed point: applying it to its own output changes nothing.
type Normalizer struct {
	settings Settings
}

func NewNormalizer(settings Settings) *Normalizer {
	if settings.Unicode == "" {
		settings.Unicode = UnicodeStrip
	}
	return &Normalizer{settings: settings}
}

// Normalize returns the cleaned text with surviving lines joined by "\n".
// Text that cleans down to nothing yields "".
func (n *Normalizer) Normalize(raw string) string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	lines := strings.Split(raw, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = n.normalizeLine(line)
		if line == "" || utf8.RuneCountInString(line) < n.settings.MinChunkLength {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func (n *Normalizer) normalizeLine(line string) string {
	line = collapseSpaces(line)
	line = n.filterUnicode(line)
	if n.settings.RemoveNumbers {
		line = digitRun.ReplaceAllString(line, "")
	}
	if n.settings.RemovePunctuation {
		line = punctuation.ReplaceAllString(line, "")
	}
	return collapseSpaces(line)
}

func (n *Normalizer) filterUnicode(line string) string {
	switch n.settings.Unicode {
	case UnicodeKeep:
		return strings.Map(func(r rune) rune {
			if unicode.IsPrint(r) {
				return r
			}
			return -1
		}, line)
	case UnicodeFold:
		if folded, _, err := transform.String(foldTransformer(), line); err == nil {
			line = folded
		}
		return stripNonASCII(line)
	default:
		return stripNonASCII(line)
	}
}

// foldTransformer is built per call; transformers keep internal state.
func foldTransformer() transform.Transformer {
	return transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

func stripNonASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 0x20 && r <= 0x7e {
			return r
		}
		return -1
	}, s)
}

// collapseSpaces trims s and turns every whitespace run into one space.
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
