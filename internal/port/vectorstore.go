package port

import "docindex/internal/domain"

// VectorStore is the only component allowed to mutate persisted chunks and
// embeddings. Every mutating call is atomic with respect to the records it touches.
type VectorStore interface {
	PutChunk(chunk domain.Chunk) error

	PutEmbedding(embedding domain.Embedding) error

	// PutChunkWithEmbedding stores a chunk and its embedding in one unit.
	PutChunkWithEmbedding(chunk domain.Chunk, embedding domain.Embedding) error

	GetChunk(id string) (domain.Chunk, error)

	ChunksBySourcePath(path string) ([]domain.Chunk, error)

	// RemoveChunksForSourcePath deletes every chunk with the given source path
	// together with their embeddings and returns the number of chunks removed.
	RemoveChunksForSourcePath(path string) (int, error)

	// SearchSimilar returns at most topK results ordered by descending cosine
	// similarity, one per chunk. Embeddings whose chunk is gone are skipped.
	SearchSimilar(query []float32, topK int) ([]domain.SearchResult, error)

	AllChunks() ([]domain.Chunk, error)

	ClearAll() error

	Stats() (domain.Stats, error)

	Close() error
}
