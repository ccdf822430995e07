package helpers

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DirectoryPattern is appended to directory arguments to pick up supported documents.
const DirectoryPattern = "**/*.{pdf,PDF,txt,md,markdown}"

// ExpandInputs resolves command arguments into file paths in argument order.
//
// Arguments containing glob meta characters are expanded with doublestar
// (supporting "**"), and each pattern must match at least one file.
// Directories are searched recursively with DirectoryPattern. Any other
// argument is kept as given so that missing files are reported by the
// pipeline instead of silently dropped. Duplicates are removed.
func ExpandInputs(args []string) ([]string, error) {
	if len(args) == 0 {
		return nil, ErrNoInputs
	}
	seen := make(map[string]struct{})
	out := make([]string, 0, len(args))
	add := func(path string) {
		key := filepath.Clean(path)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, path)
	}
	for _, arg := range args {
		switch {
		case hasMeta(arg):
			matches, err := glob(arg)
			if err != nil {
				return nil, err
			}
			for _, m := range matches {
				add(m)
			}
		case DirExists(arg):
			matches, err := glob(filepath.Join(arg, DirectoryPattern))
			if err != nil {
				return nil, err
			}
			for _, m := range matches {
				add(m)
			}
		default:
			add(arg)
		}
	}
	return out, nil
}

func glob(pattern string) ([]string, error) {
	if !doublestar.ValidatePathPattern(pattern) {
		return nil, &PatternError{Pattern: pattern, Cause: doublestar.ErrBadPattern}
	}
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, &PatternError{Pattern: pattern, Cause: err}
	}
	if len(matches) == 0 {
		return nil, &NoMatchError{Pattern: pattern}
	}
	slices.Sort(matches)
	return matches, nil
}

func hasMeta(path string) bool {
	return strings.ContainsAny(path, "*?[{")
}
