package helpers

import (
	"errors"
	"fmt"
)

var (
	// ErrNoInputs is returned when a command that needs input files received none.
	ErrNoInputs = errors.New("no input files")

	// ErrNoMatches is returned when a glob pattern matched nothing.
	ErrNoMatches = errors.New("pattern matched no files")
)

// NoMatchError names the pattern that matched no files
type NoMatchError struct {
	Pattern string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("pattern %q matched no files", e.Pattern)
}

func (e *NoMatchError) Is(target error) bool {
	return target == ErrNoMatches
}

// PatternError wraps a malformed glob pattern
type PatternError struct {
	Pattern string
	Cause   error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %v", e.Pattern, e.Cause)
}

func (e *PatternError) Unwrap() error {
	return e.Cause
}
