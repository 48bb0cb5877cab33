package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyText indicates an embed call with nothing to embed.
	ErrEmptyText = errors.New("empty text")

	// ErrUnsupportedFile indicates a file outside the indexing allow-list.
	ErrUnsupportedFile = errors.New("unsupported file type")

	// ErrDimensionMismatch indicates a query vector whose length differs from the stored vectors.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrUnsupportedFormat is returned by extractors asked to handle a format they do not read.
	ErrUnsupportedFormat = errors.New("unsupported document format")
)

// StorageError wraps a failure of the persistence layer.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError wraps err unless it is nil or already a StorageError.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// EmbeddingBackendError carries the upstream status of a failed embedding call.
// StatusCode is zero for transport failures.
type EmbeddingBackendError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *EmbeddingBackendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("embedding backend returned %d: %s", e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("embedding backend: %s: %v", e.Message, e.Err)
	}
	return "embedding backend: " + e.Message
}

func (e *EmbeddingBackendError) Unwrap() error { return e.Err }

// ExtractionError reports that text could not be extracted from a binary document.
type ExtractionError struct {
	FileName string
	MIMEType string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s (%s): %v", e.FileName, e.MIMEType, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
