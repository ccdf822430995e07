package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
)

// Extractor turns a file into its full text content.
type Extractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, path string) (string, error)

func (f ExtractorFunc) ExtractText(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}

// Format names a family of inputs handled by one extractor.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatText Format = "text"
)

// Source is a validated reference to an input file.
type Source struct {
	Path string
	Name string
	Size int64
}

// Validate checks that path exists and is a regular, readable file.
func Validate(path string) (Source, error) {
	if strings.TrimSpace(path) == "" {
		return Source{}, notFound(path, nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		return Source{}, notFound(path, err)
	}
	if info.IsDir() {
		return Source{}, notFound(path, fmt.Errorf("is a directory"))
	}
	f, err := os.Open(path)
	if err != nil {
		return Source{}, notFound(path, err)
	}
	_ = f.Close()
	return Source{Path: path, Name: filepath.Base(path), Size: info.Size()}, nil
}

// Registry maps formats to extractors and detects the format of a file.
type Registry struct {
	mu         sync.RWMutex
	extractors map[Format]Extractor
	extensions map[string]Format
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		extractors: make(map[Format]Extractor),
		extensions: make(map[string]Format),
	}
}

// DefaultRegistry registers the PDF and plain text extractors.
func DefaultRegistry(maxParallelism int) *Registry {
	r := NewRegistry()
	r.Register(FormatPDF, NewPDFExtractor(maxParallelism), ".pdf")
	r.Register(FormatText, NewTextExtractor(), ".txt", ".text", ".md", ".markdown")
	return r
}

// Register binds an extractor to a format and optional file extensions.
func (r *Registry) Register(format Format, extractor Extractor, extensions ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors[format] = extractor
	for _, ext := range extensions {
		r.extensions[strings.ToLower(ext)] = format
	}
}

// Handles reports whether path has an extension bound to a registered format.
func (r *Registry) Handles(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Detect returns the format of the file at path.
// Content sniffing decides first; the extension is used when sniffing is inconclusive.
func (r *Registry) Detect(path string) (Format, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byExt, extKnown := r.extensions[strings.ToLower(filepath.Ext(path))]
	mime, err := mimetype.DetectFile(path)
	if err != nil {
		return "", notFound(path, err)
	}
	switch {
	case mime.Is("application/pdf"):
		if _, ok := r.extractors[FormatPDF]; ok {
			return FormatPDF, nil
		}
	case isText(mime) && (!extKnown || byExt == FormatText):
		if _, ok := r.extractors[FormatText]; ok {
			return FormatText, nil
		}
	}
	if extKnown {
		return byExt, nil
	}
	return "", fmt.Errorf("%w: %s (%s)", ErrUnsupportedFormat, filepath.Base(path), mime.String())
}

// For returns the extractor that handles path.
func (r *Registry) For(path string) (Extractor, Format, error) {
	format, err := r.Detect(path)
	if err != nil {
		return nil, "", err
	}
	r.mu.RLock()
	extractor, ok := r.extractors[format]
	r.mu.RUnlock()
	if !ok {
		return nil, "", fmt.Errorf("%w: no extractor for %s", ErrUnsupportedFormat, format)
	}
	return extractor, format, nil
}

// Extract validates path, picks an extractor and returns the text content.
func (r *Registry) Extract(ctx context.Context, path string) (string, error) {
	if _, err := Validate(path); err != nil {
		return "", err
	}
	extractor, _, err := r.For(path)
	if err != nil {
		return "", err
	}
	return extractor.ExtractText(ctx, path)
}

func isText(mime *mimetype.MIME) bool {
	for m := mime; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}
