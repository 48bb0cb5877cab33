package domain

import "time"

// Chunk is a bounded segment of a source document's text.
type Chunk struct {
	ID          string    `json:"id"`
	Content     string    `json:"content"`
	SourceName  string    `json:"source_name"`
	SourcePath  string    `json:"source_path"`
	SourceType  string    `json:"source_type"`
	ChunkIndex  int       `json:"chunk_index"`
	TotalChunks int       `json:"total_chunks"`
	CreatedAt   time.Time `json:"created_at"`
}

// Metadata returns the provenance fields that are copied onto the chunk's embedding.
func (c Chunk) Metadata() ChunkMetadata {
	return ChunkMetadata{
		SourceName:  c.SourceName,
		SourcePath:  c.SourcePath,
		SourceType:  c.SourceType,
		ChunkIndex:  c.ChunkIndex,
		TotalChunks: c.TotalChunks,
		CreatedAt:   c.CreatedAt,
	}
}

type ChunkMetadata struct {
	SourceName  string    `json:"source_name"`
	SourcePath  string    `json:"source_path"`
	SourceType  string    `json:"source_type"`
	ChunkIndex  int       `json:"chunk_index"`
	TotalChunks int       `json:"total_chunks"`
	CreatedAt   time.Time `json:"created_at"`
}

// Embedding is the vector of exactly one Chunk. Content and Metadata are
// denormalised so search does not need to read the chunk for display fields.
type Embedding struct {
	ID       string        `json:"id"`
	ChunkID  string        `json:"chunk_id"`
	Vector   []float32     `json:"vector"`
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
}

type SearchResult struct {
	Chunk        Chunk   `json:"chunk"`
	Similarity   float64 `json:"similarity"`
	RelevantText string  `json:"relevant_text"`
}

type Stats struct {
	ChunkCount     int `json:"chunk_count"`
	EmbeddingCount int `json:"embedding_count"`
}

type ProgressStatus string

const (
	StatusIndexing ProgressStatus = "indexing"
	StatusComplete ProgressStatus = "complete"
	StatusError    ProgressStatus = "error"
)

// IndexingProgress is a transient snapshot emitted while an indexing run is active.
type IndexingProgress struct {
	Total       int            `json:"total"`
	Processed   int            `json:"processed"`
	CurrentFile string         `json:"current_file"`
	Status      ProgressStatus `json:"status"`
}

// SourceSummary groups the stored chunks of one source path.
type SourceSummary struct {
	SourcePath  string    `json:"source_path"`
	SourceName  string    `json:"source_name"`
	SourceType  string    `json:"source_type"`
	ChunkCount  int       `json:"chunk_count"`
	LastIndexed time.Time `json:"last_indexed"`
}
