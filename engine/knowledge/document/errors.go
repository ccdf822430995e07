package document

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a path that does not exist or is not a readable file.
	ErrNotFound = errors.New("document: source not found")
	// ErrUnsupportedFormat reports an input with no registered extractor.
	ErrUnsupportedFormat = errors.New("document: unsupported format")
	// ErrExtraction reports a decode failure inside an extractor.
	ErrExtraction = errors.New("document: extraction failed")
)

// ExtractionError carries the file and page where decoding failed.
// Page is 1-based; zero means the failure happened before any page was read.
type ExtractionError struct {
	Path string
	Page int
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("document: extract %q page %d: %v", e.Path, e.Page, e.Err)
	}
	return fmt.Sprintf("document: extract %q: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is makes every ExtractionError match ErrExtraction.
func (e *ExtractionError) Is(target error) bool {
	return target == ErrExtraction
}

func notFound(path string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return fmt.Errorf("%w: %s: %w", ErrNotFound, path, cause)
}
