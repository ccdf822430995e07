package ingest

import (
	"errors"
	"fmt"
)

// ErrNoContent is the only batch-level failure: nothing downstream can be indexed.
var ErrNoContent = errors.New("ingest: no content")

// NoContentError is returned when a batch has no inputs or yields zero chunks.
// Failures lists the per-file problems that led there, if any.
type NoContentError struct {
	Inputs   int
	Failures []FileReport
}

func (e *NoContentError) Error() string {
	if e.Inputs == 0 {
		return "ingest: no content: no input files"
	}
	if len(e.Failures) == 0 {
		return fmt.Sprintf("ingest: no content: %d file(s) produced zero chunks", e.Inputs)
	}
	return fmt.Sprintf(
		"ingest: no content: %d file(s) produced zero chunks, %d failed",
		e.Inputs,
		len(e.Failures),
	)
}

func (e *NoContentError) Is(target error) bool {
	return target == ErrNoContent
}
