package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docindex/config"
	"docindex/internal/domain"
)

func openTestStore(t *testing.T) (*BoltStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func testChunk(id, path string, idx, total int, content string) domain.Chunk {
	return domain.Chunk{
		ID:          id,
		Content:     content,
		SourceName:  filepath.Base(path),
		SourcePath:  path,
		SourceType:  "text/plain",
		ChunkIndex:  idx,
		TotalChunks: total,
		CreatedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func testEmbedding(id string, c domain.Chunk, v ...float32) domain.Embedding {
	return domain.Embedding{
		ID:       id,
		ChunkID:  c.ID,
		Vector:   v,
		Content:  c.Content,
		Metadata: c.Metadata(),
	}
}

func TestPutAndGetChunk(t *testing.T) {
	s, _ := openTestStore(t)

	c := testChunk("c1", "/docs/a.txt", 0, 1, "The cat sat.")
	require.NoError(t, s.PutChunk(c))

	got, err := s.GetChunk("c1")
	require.NoError(t, err)
	assert.Equal(t, c, got)

	_, err = s.GetChunk("missing")
	require.Error(t, err)
	assert.True(t, domain.IsStorageError(err))
}

func TestSearchSimilarRanksByCosine(t *testing.T) {
	s, _ := openTestStore(t)

	a := testChunk("a", "/docs/a.txt", 0, 1, "about cats")
	b := testChunk("b", "/docs/b.txt", 0, 1, "about dogs")
	require.NoError(t, s.PutChunkWithEmbedding(a, testEmbedding("ea", a, 1, 0)))
	require.NoError(t, s.PutChunkWithEmbedding(b, testEmbedding("eb", b, 0, 1)))

	results, err := s.SearchSimilar([]float32{0.9, 0.1}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Chunk.ID)
	assert.Equal(t, "about cats", results[0].RelevantText)
	assert.Greater(t, results[0].Similarity, results[1].Similarity)

	results, err = s.SearchSimilar([]float32{0.9, 0.1}, 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearchSimilarEdgeCases(t *testing.T) {
	s, _ := openTestStore(t)

	results, err := s.SearchSimilar([]float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results, "empty store")

	a := testChunk("a", "/docs/a.txt", 0, 1, "content")
	require.NoError(t, s.PutChunkWithEmbedding(a, testEmbedding("ea", a, 1, 0)))

	results, err = s.SearchSimilar([]float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, results, "non-positive topK")

	results, err = s.SearchSimilar([]float32{0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Zero(t, results[0].Similarity, "zero query vector scores 0")
}

func TestSearchSimilarDimensionMismatch(t *testing.T) {
	s, _ := openTestStore(t)

	a := testChunk("a", "/docs/a.txt", 0, 1, "content")
	require.NoError(t, s.PutChunkWithEmbedding(a, testEmbedding("ea", a, 1, 0)))

	_, err := s.SearchSimilar([]float32{1, 0, 0}, 5)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	b := testChunk("b", "/docs/b.txt", 0, 1, "content")
	err = s.PutChunkWithEmbedding(b, testEmbedding("eb", b, 1, 0, 0))
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	_, err = s.GetChunk("b")
	assert.Error(t, err, "rejected put must not store the chunk")
}

func TestSearchSimilarSkipsOrphans(t *testing.T) {
	s, _ := openTestStore(t)

	orphan := testChunk("gone", "/docs/gone.txt", 0, 1, "orphan")
	require.NoError(t, s.PutEmbedding(testEmbedding("e-orphan", orphan, 1, 0)))

	kept := testChunk("kept", "/docs/kept.txt", 0, 1, "kept")
	require.NoError(t, s.PutChunkWithEmbedding(kept, testEmbedding("e-kept", kept, 0.8, 0.2)))

	results, err := s.SearchSimilar([]float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1, "orphan is skipped and the next candidate fills the slot")
	assert.Equal(t, "kept", results[0].Chunk.ID)
}

func TestSearchSimilarDedupsByChunk(t *testing.T) {
	s, _ := openTestStore(t)

	a := testChunk("a", "/docs/a.txt", 0, 1, "a")
	b := testChunk("b", "/docs/b.txt", 0, 1, "b")
	require.NoError(t, s.PutChunkWithEmbedding(a, testEmbedding("ea1", a, 1, 0)))
	require.NoError(t, s.PutEmbedding(testEmbedding("ea2", a, 0.99, 0.01)))
	require.NoError(t, s.PutChunkWithEmbedding(b, testEmbedding("eb", b, 0.5, 0.5)))

	results, err := s.SearchSimilar([]float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Chunk.ID)
	assert.Equal(t, "b", results[1].Chunk.ID)
}

func TestRemoveChunksForSourcePath(t *testing.T) {
	s, _ := openTestStore(t)

	for i := 0; i < 3; i++ {
		c := testChunk(fmt.Sprintf("a%d", i), "/docs/a.txt", i, 3, "a")
		require.NoError(t, s.PutChunkWithEmbedding(c, testEmbedding("ea"+c.ID, c, 1, float32(i))))
	}
	b := testChunk("b0", "/docs/b.txt", 0, 1, "b")
	require.NoError(t, s.PutChunkWithEmbedding(b, testEmbedding("eb0", b, 0, 1)))

	n, err := s.RemoveChunksForSourcePath("/docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	chunks, err := s.ChunksBySourcePath("/docs/a.txt")
	require.NoError(t, err)
	assert.Empty(t, chunks)

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{ChunkCount: 1, EmbeddingCount: 1}, stats)

	results, err := s.SearchSimilar([]float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b0", results[0].Chunk.ID)

	n, err = s.RemoveChunksForSourcePath("/docs/unknown.txt")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestChunksBySourcePathOrdered(t *testing.T) {
	s, _ := openTestStore(t)

	for _, idx := range []int{2, 0, 1} {
		c := testChunk(fmt.Sprintf("c%d", idx), "/docs/a.txt", idx, 3, "x")
		require.NoError(t, s.PutChunk(c))
	}

	chunks, err := s.ChunksBySourcePath("/docs/a.txt")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkIndex)
	}
}

func TestPutChunkReplaceMovesSourceIndex(t *testing.T) {
	s, _ := openTestStore(t)

	require.NoError(t, s.PutChunk(testChunk("c", "/docs/old.txt", 0, 1, "x")))
	require.NoError(t, s.PutChunk(testChunk("c", "/docs/new.txt", 0, 1, "y")))

	old, err := s.ChunksBySourcePath("/docs/old.txt")
	require.NoError(t, err)
	assert.Empty(t, old)

	moved, err := s.ChunksBySourcePath("/docs/new.txt")
	require.NoError(t, err)
	require.Len(t, moved, 1)
	assert.Equal(t, "y", moved[0].Content)

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ChunkCount)
}

func TestClearAll(t *testing.T) {
	s, _ := openTestStore(t)

	c := testChunk("c", "/docs/a.txt", 0, 1, "x")
	require.NoError(t, s.PutChunkWithEmbedding(c, testEmbedding("e", c, 1, 0)))
	require.NoError(t, s.Migrate(config.DefaultConfig()))

	require.NoError(t, s.ClearAll())

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{}, stats)

	results, err := s.SearchSimilar([]float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	info, err := s.GetSchemaInfo()
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, info.Version, "schema metadata survives a clear")

	// a clear store accepts any dimension again
	require.NoError(t, s.PutChunkWithEmbedding(c, testEmbedding("e", c, 1, 0, 0)))
}

func TestAllChunksSorted(t *testing.T) {
	s, _ := openTestStore(t)

	require.NoError(t, s.PutChunk(testChunk("b1", "/docs/b.txt", 1, 2, "x")))
	require.NoError(t, s.PutChunk(testChunk("a0", "/docs/a.txt", 0, 1, "x")))
	require.NoError(t, s.PutChunk(testChunk("b0", "/docs/b.txt", 0, 2, "x")))

	chunks, err := s.AllChunks()
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, []string{"a0", "b0", "b1"}, []string{chunks[0].ID, chunks[1].ID, chunks[2].ID})
}

func TestReopenRestoresVectors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	s, err := Open(path)
	require.NoError(t, err)
	c := testChunk("c", "/docs/a.txt", 0, 1, "persisted")
	require.NoError(t, s.PutChunkWithEmbedding(c, testEmbedding("e", c, 0.6, 0.8)))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	results, err := s.SearchSimilar([]float32{0.6, 0.8}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "persisted", results[0].Chunk.Content)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)
}

func TestStorageErrorWrapping(t *testing.T) {
	s, _ := openTestStore(t)
	require.NoError(t, s.Close())

	err := s.PutChunk(testChunk("c", "/docs/a.txt", 0, 1, "x"))
	require.Error(t, err)

	var se *domain.StorageError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, "put chunk", se.Op)
}
