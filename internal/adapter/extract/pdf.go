package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"

	"docindex/internal/domain"
	"docindex/internal/port"
)

var _ port.Extractor = (*PDFExtractor)(nil)

// PDFExtractor reads page text with MuPDF. It also handles EPUB, which MuPDF opens the same way.
type PDFExtractor struct {
	textLimit int
}

func NewPDFExtractor(textLimit int) *PDFExtractor {
	if textLimit <= 0 {
		textLimit = DefaultTextLimit
	}
	return &PDFExtractor{textLimit: textLimit}
}

func (p *PDFExtractor) Supports(fileName, mimeType string) bool {
	switch extension(fileName) {
	case "pdf", "epub":
		return true
	}
	return mimeType == "application/pdf" || mimeType == "application/epub+zip"
}

func (p *PDFExtractor) Extract(ctx context.Context, data []byte, fileName, mimeType string) (port.Extraction, error) {
	if !p.Supports(fileName, mimeType) {
		return port.Extraction{}, domain.ErrUnsupportedFormat
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return port.Extraction{}, &domain.ExtractionError{FileName: fileName, MIMEType: mimeType, Err: fmt.Errorf("failed to open document: %w", err)}
	}
	defer doc.Close()

	pages := doc.NumPage()
	var textParts []string
	for i := 0; i < pages; i++ {
		if err := ctx.Err(); err != nil {
			return port.Extraction{}, err
		}
		text, err := doc.Text(i)
		if err == nil && strings.TrimSpace(text) != "" {
			textParts = append(textParts, text)
		}
	}

	text := strings.Join(textParts, "\n\n")
	scanned := len(strings.TrimSpace(text)) < 10
	if scanned {
		text = fmt.Sprintf("No text could be extracted from %s. It may contain only scanned images. Pages: %d", fileName, pages)
	}

	out, empty := Finalize(text, fileName, p.textLimit)
	return port.Extraction{
		Text:        out,
		Metadata:    port.ExtractionMetadata{PageCount: pages},
		Placeholder: scanned || empty,
	}, nil
}
