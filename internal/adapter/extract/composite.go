package extract

import (
	"context"

	"docindex/config"
	"docindex/internal/domain"
	"docindex/internal/port"
)

// FormatExtractor is an Extractor that can tell which files it reads.
type FormatExtractor interface {
	port.Extractor
	Supports(fileName, mimeType string) bool
}

var _ port.Extractor = (*Composite)(nil)

// Composite routes each document to the first extractor that supports it.
type Composite struct {
	extractors []FormatExtractor
}

func NewComposite(extractors ...FormatExtractor) *Composite {
	return &Composite{extractors: extractors}
}

// FromConfig builds the extractors enabled in cfg.
func FromConfig(cfg config.ExtractConfig) *Composite {
	var extractors []FormatExtractor
	if cfg.PDF {
		extractors = append(extractors, NewPDFExtractor(cfg.TextLimit))
	}
	if cfg.Office {
		extractors = append(extractors, NewOfficeExtractor(cfg.TextLimit))
	}
	return NewComposite(extractors...)
}

func (c *Composite) Supports(fileName, mimeType string) bool {
	return c.find(fileName, mimeType) != nil
}

func (c *Composite) Extract(ctx context.Context, data []byte, fileName, mimeType string) (port.Extraction, error) {
	e := c.find(fileName, mimeType)
	if e == nil {
		return port.Extraction{}, domain.ErrUnsupportedFormat
	}
	return e.Extract(ctx, data, fileName, mimeType)
}

func (c *Composite) find(fileName, mimeType string) FormatExtractor {
	for _, e := range c.extractors {
		if e.Supports(fileName, mimeType) {
			return e
		}
	}
	return nil
}
