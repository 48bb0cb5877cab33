package port

import "context"

type FileWalker interface {
	Walk(root string) ([]FileInfo, error)
	Eligible(path string) bool
	// EligibleUnder matches path relative to root, as Walk does.
	EligibleUnder(root, path string) bool
}

type FileInfo struct {
	Path    string
	ModTime int64
	Size    int64
}

// LoadedFile is the text the indexer chunks for one file, plus how it was obtained.
type LoadedFile struct {
	Path     string
	Name     string
	MIMEType string
	Size     int64
	Text     string

	// Metadata is what the extractor reported about a binary document.
	Metadata ExtractionMetadata

	// Placeholder is set when Text is a stand-in rather than real content.
	Placeholder bool
	// ExtractErr is set when extraction failed and Text is a diagnostic placeholder.
	ExtractErr error
}

type FileLoader interface {
	Load(ctx context.Context, path string) (LoadedFile, error)
}
