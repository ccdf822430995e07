package chunk

import (
	"iter"
	"slices"
)

// Splitter cuts normalized text into overlapping windows of whole lines.
//
// A window takes lines while the runes of the lines it adds fit in ChunkSize;
// the carried overlap and the line separators are not counted. A window always
// takes at least one line, so a line longer than ChunkSize becomes one
// oversized chunk. Each following window starts min(Overlap, len(previous))
// runes before the end of the previous one, which keeps every chunk a
// contiguous span of the input.
type Splitter struct {
	size    int
	overlap int
}

func NewSplitter(settings Settings) (*Splitter, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &Splitter{size: settings.ChunkSize, overlap: settings.Overlap}, nil
}

type span struct {
	start int
	end   int
}

// Split returns a lazy sequence of chunks for text.
// Ranging over the sequence again starts from the first chunk.
func (s *Splitter) Split(source, text string) iter.Seq[Chunk] {
	return func(yield func(Chunk) bool) {
		rs := []rune(text)
		segments := lineSpans(rs)
		if len(segments) == 0 {
			return
		}
		start := segments[0].start
		index := 0
		for i := 0; i < len(segments); {
			j, used := i, 0
			for j < len(segments) {
				n := segments[j].end - segments[j].start
				if j > i && used+n > s.size {
					break
				}
				used += n
				j++
			}
			end := segments[j-1].end
			if !yield(New(source, index, string(rs[start:end]))) {
				return
			}
			if j == len(segments) {
				return
			}
			index++
			if carry := min(s.overlap, end-start); carry > 0 {
				start = end - carry
			} else {
				start = segments[j].start
			}
			i = j
		}
	}
}

// Collect runs Split to completion.
func (s *Splitter) Collect(source, text string) []Chunk {
	return slices.Collect(s.Split(source, text))
}

// lineSpans returns the rune ranges of the non-empty lines in rs.
func lineSpans(rs []rune) []span {
	var spans []span
	begin := 0
	for i := 0; i <= len(rs); i++ {
		if i < len(rs) && rs[i] != '\n' {
			continue
		}
		if i > begin {
			spans = append(spans, span{start: begin, end: i})
		}
		begin = i + 1
	}
	return spans
}
