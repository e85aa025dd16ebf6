// Package pdf extracts text and page counts from uploaded PDF documents.
package pdf

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrEmptyDocument is returned when a PDF contains no pages.
var ErrEmptyDocument = errors.New("pdf: document has no pages")

// Extraction is the result of reading a PDF from disk.
type Extraction struct {
	Text      string
	PageCount int
}

// Extract opens the PDF at path and returns its plain text along with the
// page count that drives per-page billing. Pages whose text cannot be decoded
// are skipped rather than failing the whole document; scanned image-only
// pages still count toward the total.
func Extract(path string) (*Extraction, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pdf: open %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	total := reader.NumPage()
	if total == 0 {
		return nil, ErrEmptyDocument
	}

	sb := &strings.Builder{}
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	return &Extraction{
		Text:      strings.TrimSpace(sb.String()),
		PageCount: total,
	}, nil
}
