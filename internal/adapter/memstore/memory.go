// Package memstore is a non-persistent VectorStore used by tests and the benchmark.
package memstore

import (
	"fmt"
	"sort"
	"sync"

	"docindex/internal/adapter/similarity"
	"docindex/internal/domain"
	"docindex/internal/port"
)

var _ port.VectorStore = (*MemoryStore)(nil)

type MemoryStore struct {
	mu           sync.RWMutex
	chunks       map[string]domain.Chunk
	embeddings   map[string]domain.Embedding
	norms        map[string]float64
	sourceChunks map[string][]string
	dim          int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chunks:       make(map[string]domain.Chunk),
		embeddings:   make(map[string]domain.Embedding),
		norms:        make(map[string]float64),
		sourceChunks: make(map[string][]string),
	}
}

func (s *MemoryStore) PutChunk(chunk domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putChunkLocked(chunk)
	return nil
}

func (s *MemoryStore) putChunkLocked(chunk domain.Chunk) {
	old, exists := s.chunks[chunk.ID]
	if exists && old.SourcePath != chunk.SourcePath {
		s.sourceChunks[old.SourcePath] = without(s.sourceChunks[old.SourcePath], chunk.ID)
		if len(s.sourceChunks[old.SourcePath]) == 0 {
			delete(s.sourceChunks, old.SourcePath)
		}
	}
	if !exists || old.SourcePath != chunk.SourcePath {
		s.sourceChunks[chunk.SourcePath] = append(s.sourceChunks[chunk.SourcePath], chunk.ID)
	}
	s.chunks[chunk.ID] = chunk
}

func (s *MemoryStore) PutEmbedding(e domain.Embedding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkDimensionLocked(e.Vector); err != nil {
		return err
	}
	s.putEmbeddingLocked(e)
	return nil
}

func (s *MemoryStore) PutChunkWithEmbedding(chunk domain.Chunk, e domain.Embedding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkDimensionLocked(e.Vector); err != nil {
		return err
	}
	s.putChunkLocked(chunk)
	s.putEmbeddingLocked(e)
	return nil
}

func (s *MemoryStore) checkDimensionLocked(v []float32) error {
	if len(v) == 0 {
		return fmt.Errorf("%w: empty vector", domain.ErrDimensionMismatch)
	}
	if len(s.embeddings) > 0 && len(v) != s.dim {
		return fmt.Errorf("%w: expected %d, got %d", domain.ErrDimensionMismatch, s.dim, len(v))
	}
	return nil
}

func (s *MemoryStore) putEmbeddingLocked(e domain.Embedding) {
	s.embeddings[e.ID] = e
	s.norms[e.ID] = similarity.Norm(e.Vector)
	s.dim = len(e.Vector)
}

func (s *MemoryStore) GetChunk(id string) (domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunk, ok := s.chunks[id]
	if !ok {
		return domain.Chunk{}, domain.NewStorageError("get chunk", fmt.Errorf("chunk not found: %s", id))
	}
	return chunk, nil
}

func (s *MemoryStore) ChunksBySourcePath(path string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.sourceChunks[path]
	chunks := make([]domain.Chunk, 0, len(ids))
	for _, id := range ids {
		if chunk, ok := s.chunks[id]; ok {
			chunks = append(chunks, chunk)
		}
	}
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].ChunkIndex < chunks[j].ChunkIndex
	})
	return chunks, nil
}

func (s *MemoryStore) RemoveChunksForSourcePath(path string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.sourceChunks[path]
	gone := make(map[string]struct{}, len(ids))
	removed := 0
	for _, id := range ids {
		if _, ok := s.chunks[id]; ok {
			removed++
		}
		delete(s.chunks, id)
		gone[id] = struct{}{}
	}
	delete(s.sourceChunks, path)

	for id, e := range s.embeddings {
		if _, ok := gone[e.ChunkID]; ok {
			delete(s.embeddings, id)
			delete(s.norms, id)
		}
	}
	return removed, nil
}

func (s *MemoryStore) SearchSimilar(query []float32, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.embeddings) == 0 {
		return nil, nil
	}
	if len(query) != s.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrDimensionMismatch, len(query), s.dim)
	}

	queryNorm := similarity.Norm(query)
	candidates := make([]similarity.Candidate, 0, len(s.embeddings))
	for id, e := range s.embeddings {
		candidates = append(candidates, similarity.Candidate{
			EmbeddingID: id,
			ChunkID:     e.ChunkID,
			Score:       similarity.CosineWithNorms(query, e.Vector, queryNorm, s.norms[id]),
		})
	}
	similarity.Rank(candidates)

	results := make([]domain.SearchResult, 0, topK)
	_, err := similarity.Select(candidates, topK, func(c similarity.Candidate) (bool, error) {
		chunk, ok := s.chunks[c.ChunkID]
		if !ok {
			return false, nil
		}
		text := s.embeddings[c.EmbeddingID].Content
		if text == "" {
			text = chunk.Content
		}
		results = append(results, domain.SearchResult{
			Chunk:        chunk,
			Similarity:   c.Score,
			RelevantText: text,
		})
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *MemoryStore) AllChunks() ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks := make([]domain.Chunk, 0, len(s.chunks))
	for _, c := range s.chunks {
		chunks = append(chunks, c)
	}
	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].SourcePath != chunks[j].SourcePath {
			return chunks[i].SourcePath < chunks[j].SourcePath
		}
		return chunks[i].ChunkIndex < chunks[j].ChunkIndex
	})
	return chunks, nil
}

func (s *MemoryStore) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = make(map[string]domain.Chunk)
	s.embeddings = make(map[string]domain.Embedding)
	s.norms = make(map[string]float64)
	s.sourceChunks = make(map[string][]string)
	s.dim = 0
	return nil
}

func (s *MemoryStore) Stats() (domain.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.Stats{
		ChunkCount:     len(s.chunks),
		EmbeddingCount: len(s.embeddings),
	}, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
