package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docindex/internal/adapter/memstore"
	"docindex/internal/domain"
	"docindex/internal/logging"
)

func indexedStore(t *testing.T) *memstore.MemoryStore {
	t.Helper()
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", threeSentences)
	b := writeFile(t, dir, "b.txt", "Dogs bark. A dog ran away.")

	store := memstore.NewMemoryStore()
	ix := newTestIndexer(t, store, &keywordEmbedder{}, 20)
	_, err := ix.IndexFiles(context.Background(), []string{a, b})
	require.NoError(t, err)
	return store
}

func TestSearchRanksBySimilarity(t *testing.T) {
	store := indexedStore(t)
	r := NewRetriever(store, &keywordEmbedder{}, logging.Discard())

	results, err := r.Search(context.Background(), "where is the cat", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "The cat sat.", results[0].Chunk.Content)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)
	assert.GreaterOrEqual(t, results[0].Similarity, results[1].Similarity)
}

func TestSearchDefaultTopK(t *testing.T) {
	store := indexedStore(t)
	r := NewRetriever(store, &keywordEmbedder{}, logging.Discard())

	results, err := r.Search(context.Background(), "dog", 0)
	require.NoError(t, err)
	assert.Len(t, results, DefaultTopK)

	seen := map[string]bool{}
	for _, res := range results {
		assert.False(t, seen[res.Chunk.ID], "duplicate chunk %s", res.Chunk.ID)
		seen[res.Chunk.ID] = true
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	embedder := &keywordEmbedder{}
	r := NewRetriever(indexedStore(t), embedder, logging.Discard())

	for _, q := range []string{"", "   ", "\n\t"} {
		results, err := r.Search(context.Background(), q, 5)
		require.NoError(t, err)
		assert.Empty(t, results)
	}
	assert.Zero(t, embedder.Calls())
}

func TestSearchEmptyIndexSkipsEmbedding(t *testing.T) {
	embedder := &keywordEmbedder{}
	r := NewRetriever(memstore.NewMemoryStore(), embedder, logging.Discard())

	results, err := r.Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, embedder.Calls())
}

func TestSearchAfterClearIsEmpty(t *testing.T) {
	store := indexedStore(t)
	require.NoError(t, store.ClearAll())

	embedder := &keywordEmbedder{}
	r := NewRetriever(store, embedder, logging.Discard())
	results, err := r.Search(context.Background(), "cat", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, embedder.Calls())
}

func TestSearchPropagatesEmbeddingError(t *testing.T) {
	embedder := &keywordEmbedder{fail: func(string) bool { return true }}
	r := NewRetriever(indexedStore(t), embedder, logging.Discard())

	_, err := r.Search(context.Background(), "cat", 5)
	require.Error(t, err)
	var backendErr *domain.EmbeddingBackendError
	assert.True(t, errors.As(err, &backendErr))
	assert.Equal(t, 500, backendErr.StatusCode)
}

func TestFormatContext(t *testing.T) {
	assert.Equal(t, "", FormatContext(nil))

	results := []domain.SearchResult{
		{
			Chunk:        domain.Chunk{SourceName: "a.txt", SourcePath: "/docs/a.txt", Content: "ignored"},
			Similarity:   0.875,
			RelevantText: "The cat sat.",
		},
		{
			Chunk:      domain.Chunk{SourceName: "b.md", SourcePath: "/docs/b.md", Content: "The dog ran."},
			Similarity: 0.5,
		},
	}

	want := "The following are excerpts of related documents retrieved by vector search. " +
		"Review them and cite the reference number when answering.\n" +
		"\n" +
		"## Reference 1: a.txt\n" +
		"Relevance: 87.5%\n" +
		"Path: /docs/a.txt\n" +
		"\n" +
		"Excerpt:\n" +
		"The cat sat.\n" +
		"\n" +
		"---\n" +
		"\n" +
		"## Reference 2: b.md\n" +
		"Relevance: 50.0%\n" +
		"Path: /docs/b.md\n" +
		"\n" +
		"Excerpt:\n" +
		"The dog ran.\n" +
		"\n" +
		"---"
	assert.Equal(t, want, FormatContext(results))
}
