package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"docindex/internal/domain"
	"docindex/internal/logging"
	"docindex/internal/port"
)

// DefaultTopK is used when Search is called with a non-positive topK.
const DefaultTopK = 5

// Retriever answers queries with the most similar stored chunks.
type Retriever struct {
	store    port.VectorStore
	embedder port.Embedder
	logger   *slog.Logger
}

// NewRetriever creates a retriever. Wrap embedder with a cache to reuse
// query vectors across searches.
func NewRetriever(store port.VectorStore, embedder port.Embedder, logger *slog.Logger) *Retriever {
	return &Retriever{
		store:    store,
		embedder: embedder,
		logger:   logging.OrDefault(logger),
	}
}

// Search embeds query and returns at most topK results in descending
// similarity. A blank query or an empty index yields no results and no
// embedding call. Embedding and storage failures are returned.
func (r *Retriever) Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	stats, err := r.store.Stats()
	if err != nil {
		return nil, err
	}
	if stats.EmbeddingCount == 0 {
		r.logger.Debug("index is empty, skipping query embedding")
		return nil, nil
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := r.store.SearchSimilar(vector, topK)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("search finished", "top_k", topK, "results", len(results))
	return results, nil
}
