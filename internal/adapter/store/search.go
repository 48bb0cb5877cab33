package store

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"docindex/internal/adapter/similarity"
	"docindex/internal/domain"
)

// SearchSimilar scores every stored embedding against query (brute force),
// then resolves the best candidates to chunks inside a single read transaction.
func (s *BoltStore) SearchSimilar(query []float32, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		return nil, nil
	}

	candidates, err := s.score(query)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	similarity.Rank(candidates)

	results := make([]domain.SearchResult, 0, topK)
	err = s.db.View(func(tx *bbolt.Tx) error {
		chunks := tx.Bucket(bucketChunks)
		embeddings := tx.Bucket(bucketEmbeddings)

		_, err := similarity.Select(candidates, topK, func(c similarity.Candidate) (bool, error) {
			data := chunks.Get([]byte(c.ChunkID))
			if data == nil {
				return false, nil
			}
			var chunk domain.Chunk
			if err := json.Unmarshal(data, &chunk); err != nil {
				return false, nil
			}

			text := chunk.Content
			if raw := embeddings.Get([]byte(c.EmbeddingID)); raw != nil {
				var stored storedEmbedding
				if err := json.Unmarshal(raw, &stored); err == nil && stored.Content != "" {
					text = stored.Content
				}
			} else {
				// removed between scoring and resolution
				return false, nil
			}

			results = append(results, domain.SearchResult{
				Chunk:        chunk,
				Similarity:   c.Score,
				RelevantText: text,
			})
			return true, nil
		})
		return err
	})
	if err != nil {
		return nil, domain.NewStorageError("search", err)
	}
	return results, nil
}

func (s *BoltStore) score(query []float32) ([]similarity.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.vectors) == 0 {
		return nil, nil
	}

	queryNorm := similarity.Norm(query)
	candidates := make([]similarity.Candidate, 0, len(s.vectors))
	for id, entry := range s.vectors {
		if len(entry.vector) != len(query) {
			return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
				domain.ErrDimensionMismatch, len(query), len(entry.vector))
		}
		candidates = append(candidates, similarity.Candidate{
			EmbeddingID: id,
			ChunkID:     entry.chunkID,
			Score:       similarity.CosineWithNorms(query, entry.vector, queryNorm, entry.norm),
		})
	}
	return candidates, nil
}
