package fs

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"docindex/internal/adapter/extract"
	"docindex/internal/port"
)

// DocumentExtractor is the part of the extraction layer the loader needs.
type DocumentExtractor interface {
	port.Extractor
	Supports(fileName, mimeType string) bool
}

var _ port.FileLoader = (*Loader)(nil)

// Loader turns a path into the text the indexer chunks. Text files are read
// as is, documents go through the extractor, anything else becomes a short
// description of the file.
type Loader struct {
	extractor   DocumentExtractor
	maxFileSize int64
}

// NewLoader returns a loader. extractor may be nil, in which case documents
// are described rather than extracted. maxFileSize <= 0 means no limit.
func NewLoader(extractor DocumentExtractor, maxFileSize int64) *Loader {
	return &Loader{extractor: extractor, maxFileSize: maxFileSize}
}

var textExtensions = map[string]bool{
	".txt": true, ".md": true, ".js": true, ".ts": true, ".jsx": true, ".tsx": true,
	".py": true, ".java": true, ".cpp": true, ".c": true, ".html": true, ".css": true,
	".json": true, ".xml": true, ".yml": true, ".yaml": true, ".sql": true, ".sh": true,
	".bat": true, ".php": true, ".rb": true, ".go": true, ".rs": true, ".swift": true,
	".kt": true, ".scala": true, ".clj": true, ".hs": true,
}

func (l *Loader) Load(ctx context.Context, path string) (port.LoadedFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return port.LoadedFile{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return port.LoadedFile{}, fmt.Errorf("%s is a directory", path)
	}

	name := filepath.Base(path)
	file := port.LoadedFile{
		Path:     path,
		Name:     name,
		MIMEType: DetectMIMEType(name),
		Size:     info.Size(),
	}

	if l.maxFileSize > 0 && info.Size() > l.maxFileSize {
		return describe(file), nil
	}

	switch {
	case IsTextFile(name, file.MIMEType):
		data, err := os.ReadFile(path)
		if err != nil {
			return port.LoadedFile{}, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if looksBinary(data) {
			return describe(file), nil
		}
		file.Text = strings.ToValidUTF8(string(data), "\uFFFD")
		return file, nil

	case l.extractor != nil && l.extractor.Supports(name, file.MIMEType):
		data, err := os.ReadFile(path)
		if err != nil {
			return port.LoadedFile{}, fmt.Errorf("failed to read %s: %w", path, err)
		}
		ex, err := l.extractor.Extract(ctx, data, name, file.MIMEType)
		if err != nil {
			if ctx.Err() != nil {
				return port.LoadedFile{}, ctx.Err()
			}
			file.Text = extract.FailurePlaceholder(name, err)
			file.Placeholder = true
			file.ExtractErr = err
			return file, nil
		}
		file.Text = ex.Text
		file.Placeholder = ex.Placeholder
		file.Metadata = ex.Metadata
		return file, nil

	default:
		return describe(file), nil
	}
}

// describe replaces the content of a file that cannot be read as text with its metadata.
func describe(file port.LoadedFile) port.LoadedFile {
	file.Text = fmt.Sprintf("File: %s\nType: %s\nSize: %d bytes", file.Name, file.MIMEType, file.Size)
	file.Placeholder = true
	return file
}

// DetectMIMEType guesses the type from the extension. Known text extensions
// without a registered type are reported as text/plain.
func DetectMIMEType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t := mime.TypeByExtension(ext); t != "" {
		if mediaType, _, err := mime.ParseMediaType(t); err == nil {
			return mediaType
		}
		return t
	}
	if textExtensions[ext] {
		return "text/plain"
	}
	return "application/octet-stream"
}

func IsTextFile(name, mimeType string) bool {
	if textExtensions[strings.ToLower(filepath.Ext(name))] {
		return true
	}
	return strings.HasPrefix(mimeType, "text/")
}

// looksBinary reports whether the first few KB contain a NUL byte.
func looksBinary(data []byte) bool {
	if len(data) > 8000 {
		data = data[:8000]
	}
	return bytes.IndexByte(data, 0) >= 0
}
