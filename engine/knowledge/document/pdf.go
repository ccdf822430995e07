package document

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"

	"github.com/compozy/docchat/pkg/logger"
)

const defaultPDFParallelism = 4

// PDFExtractor decodes PDF pages with a bounded pool of workers.
// Every worker opens its own reader; the decoder is not safe for concurrent use.
type PDFExtractor struct {
	maxParallelism int
}

// NewPDFExtractor returns an extractor that decodes at most maxParallelism pages at once.
func NewPDFExtractor(maxParallelism int) *PDFExtractor {
	if maxParallelism <= 0 {
		maxParallelism = defaultPDFParallelism
	}
	return &PDFExtractor{maxParallelism: maxParallelism}
}

// ExtractText returns the text of every page joined with "\n" in page order.
func (e *PDFExtractor) ExtractText(ctx context.Context, path string) (string, error) {
	total, err := pageCount(path)
	if err != nil {
		return "", err
	}
	if total == 0 {
		return "", nil
	}
	pages := make([]string, total)
	workers := min(e.maxParallelism, total)
	var next atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for range workers {
		g.Go(func() error {
			return decodePages(gctx, path, total, &next, pages)
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	logger.FromContext(ctx).Debug("PDF pages decoded", "path", path, "pages", total, "workers", workers)
	return strings.Join(pages, "\n"), nil
}

// decodePages pulls page numbers from next until all pages are claimed.
// Each slot in pages is written by exactly one worker.
func decodePages(ctx context.Context, path string, total int, next *atomic.Int64, pages []string) error {
	f, reader, err := openPDF(path)
	if err != nil {
		return err
	}
	defer f.Close()
	for {
		num := int(next.Add(1))
		if num > total {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		text, err := pageText(path, reader, num)
		if err != nil {
			return err
		}
		pages[num-1] = text
	}
}

type closer interface{ Close() error }

func openPDF(path string) (f closer, reader *pdf.Reader, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ExtractionError{Path: path, Err: fmt.Errorf("open panicked: %v", r)}
		}
	}()
	file, r, openErr := pdf.Open(path)
	if openErr != nil {
		return nil, nil, &ExtractionError{Path: path, Err: openErr}
	}
	return file, r, nil
}

func pageCount(path string) (n int, err error) {
	f, reader, err := openPDF(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	defer func() {
		if r := recover(); r != nil {
			err = &ExtractionError{Path: path, Err: fmt.Errorf("page tree panicked: %v", r)}
		}
	}()
	return reader.NumPage(), nil
}

// pageText decodes a single 1-based page; null pages yield "".
func pageText(path string, reader *pdf.Reader, num int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ExtractionError{
				Path: path,
				Page: num,
				Err:  fmt.Errorf("decoder panicked: %v", r),
			}
		}
	}()
	page := reader.Page(num)
	if page.V.IsNull() {
		return "", nil
	}
	text, err = page.GetPlainText(nil)
	if err != nil {
		return "", &ExtractionError{Path: path, Page: num, Err: err}
	}
	return text, nil
}
