package port

import "context"

// Extractor turns a binary document into plain text.
type Extractor interface {
	Extract(ctx context.Context, data []byte, fileName, mimeType string) (Extraction, error)
}

type Extraction struct {
	Text     string
	Metadata ExtractionMetadata

	// Placeholder is set when the document yielded no real text and Text only
	// describes the file.
	Placeholder bool
}

type ExtractionMetadata struct {
	SheetNames     []string `json:"sheet_names,omitempty"`
	RowCount       int      `json:"row_count,omitempty"`
	ParagraphCount int      `json:"paragraph_count,omitempty"`
	SlideCount     int      `json:"slide_count,omitempty"`
	PageCount      int      `json:"page_count,omitempty"`
}
