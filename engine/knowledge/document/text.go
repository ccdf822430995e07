package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

// MaxTextFileSizeBytes bounds plain text and markdown inputs.
const MaxTextFileSizeBytes = 4 * 1024 * 1024

// TextExtractor reads plain text and markdown files, transcoding non UTF-8 input.
type TextExtractor struct {
	maxBytes int64
}

func NewTextExtractor() *TextExtractor {
	return &TextExtractor{maxBytes: MaxTextFileSizeBytes}
}

func (e *TextExtractor) ExtractText(_ context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", notFound(path, err)
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, e.maxBytes+1))
	if err != nil {
		return "", &ExtractionError{Path: path, Err: err}
	}
	if int64(len(data)) > e.maxBytes {
		return "", &ExtractionError{
			Path: path,
			Err:  fmt.Errorf("file exceeds maximum size of %d bytes", e.maxBytes),
		}
	}
	text, err := decodeText(data)
	if err != nil {
		return "", &ExtractionError{Path: path, Err: err}
	}
	return text, nil
}

func decodeText(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	enc, name, _ := charset.DetermineEncoding(data, "text/plain")
	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), enc.NewDecoder()))
	if err != nil {
		return "", fmt.Errorf("transcode from %s: %w", name, err)
	}
	if !utf8.Valid(decoded) {
		return "", fmt.Errorf("transcoded result invalid utf-8")
	}
	return string(decoded), nil
}
