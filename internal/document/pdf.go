// Package document turns source files into page-level text.
package document

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/cloo-solutions/textbook-vault/internal/domain"
	"github.com/gen2brain/go-fitz"
)

// Loader produces the pages of a document in reading order.
type Loader interface {
	Load(ctx context.Context, path string) ([]domain.Page, error)
}

// pageReader is the subset of *fitz.Document the loader reads from.
type pageReader interface {
	NumPage() int
	Text(pageNumber int) (string, error)
	Close() error
}

// PDFLoader extracts text page by page with MuPDF.
type PDFLoader struct {
	open func(path string) (pageReader, error)
}

var _ Loader = (*PDFLoader)(nil)

func NewPDFLoader() *PDFLoader {
	return &PDFLoader{open: openFitz}
}

func openFitz(path string) (pageReader, error) {
	return fitz.New(path)
}

// Load returns one Page per PDF page, including pages without text.
// Any page that cannot be read fails the whole load.
func (l *PDFLoader) Load(ctx context.Context, path string) ([]domain.Page, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrDocumentAbsent, path)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrDocumentLoad, err)
	}

	doc, err := l.open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", domain.ErrDocumentLoad, path, err)
	}
	defer doc.Close()

	n := doc.NumPage()
	pages := make([]domain.Page, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := doc.Text(i)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d of %s: %w", domain.ErrDocumentLoad, i+1, path, err)
		}
		pages = append(pages, domain.Page{Index: i, Text: text})
	}

	return pages, nil
}
