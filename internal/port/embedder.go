package port

import "context"

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed returns the vector for a single non-empty text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// ModelName returns the name of the embedding model.
	ModelName() string
}
