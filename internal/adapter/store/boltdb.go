package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"docindex/internal/adapter/similarity"
	"docindex/internal/domain"
	"docindex/internal/port"
)

var _ port.VectorStore = (*BoltStore)(nil)

var (
	bucketChunks          = []byte("chunks")
	bucketEmbeddings      = []byte("embeddings")
	bucketSourceChunks    = []byte("source_chunks")
	bucketChunkEmbeddings = []byte("chunk_embeddings")
	bucketMeta            = []byte("meta")

	dataBuckets = [][]byte{bucketChunks, bucketEmbeddings, bucketSourceChunks, bucketChunkEmbeddings}
)

var errChunkNotFound = errors.New("chunk not found")

// BoltStore persists chunks and embeddings in BoltDB. Vectors are mirrored in
// memory with their norms so a search is a scan over RAM followed by one read
// transaction to resolve the winning chunks.
type BoltStore struct {
	db *bbolt.DB

	mu      sync.RWMutex
	vectors map[string]vectorEntry
}

type vectorEntry struct {
	chunkID string
	vector  []float32
	norm    float64
}

type storedEmbedding struct {
	ChunkID  string               `json:"chunk_id"`
	Vector   []float32            `json:"v"`
	Content  string               `json:"content"`
	Metadata domain.ChunkMetadata `json:"metadata"`
}

// Open opens (creating if needed) the BoltDB file at path.
func Open(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, domain.NewStorageError("open", fmt.Errorf("failed to open bolt db: %w", err))
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range append(dataBuckets, bucketMeta) {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, domain.NewStorageError("open", err)
	}

	s := &BoltStore{
		db:      db,
		vectors: make(map[string]vectorEntry),
	}
	if err := s.loadVectors(); err != nil {
		db.Close()
		return nil, domain.NewStorageError("load vectors", err)
	}
	return s, nil
}

func (s *BoltStore) loadVectors() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEmbeddings).ForEach(func(k, v []byte) error {
			var stored storedEmbedding
			if err := json.Unmarshal(v, &stored); err != nil {
				return nil // corrupted entries are invisible to search
			}
			s.vectors[string(k)] = vectorEntry{
				chunkID: stored.ChunkID,
				vector:  stored.Vector,
				norm:    similarity.Norm(stored.Vector),
			}
			return nil
		})
	})
}

func (s *BoltStore) PutChunk(chunk domain.Chunk) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return putChunk(tx, chunk)
	})
	return domain.NewStorageError("put chunk", err)
}

func (s *BoltStore) PutEmbedding(e domain.Embedding) error {
	if err := s.checkDimension(e.Vector); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return putEmbedding(tx, e)
	})
	if err != nil {
		return domain.NewStorageError("put embedding", err)
	}
	s.cacheEmbedding(e)
	return nil
}

func (s *BoltStore) PutChunkWithEmbedding(chunk domain.Chunk, e domain.Embedding) error {
	if err := s.checkDimension(e.Vector); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := putChunk(tx, chunk); err != nil {
			return err
		}
		return putEmbedding(tx, e)
	})
	if err != nil {
		return domain.NewStorageError("put chunk with embedding", err)
	}
	s.cacheEmbedding(e)
	return nil
}

func (s *BoltStore) checkDimension(v []float32) error {
	if len(v) == 0 {
		return fmt.Errorf("%w: empty vector", domain.ErrDimensionMismatch)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, entry := range s.vectors {
		if len(entry.vector) != len(v) {
			return fmt.Errorf("%w: expected %d, got %d", domain.ErrDimensionMismatch, len(entry.vector), len(v))
		}
		break
	}
	return nil
}

func (s *BoltStore) cacheEmbedding(e domain.Embedding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors[e.ID] = vectorEntry{
		chunkID: e.ChunkID,
		vector:  e.Vector,
		norm:    similarity.Norm(e.Vector),
	}
}

// putChunk writes a chunk and keeps the source-path index in step, moving the
// id between paths if an existing chunk is being replaced.
func putChunk(tx *bbolt.Tx, chunk domain.Chunk) error {
	chunks := tx.Bucket(bucketChunks)
	id := []byte(chunk.ID)

	if existing := chunks.Get(id); existing != nil {
		var old domain.Chunk
		if err := json.Unmarshal(existing, &old); err == nil && old.SourcePath != chunk.SourcePath {
			if err := removeFromIndex(tx.Bucket(bucketSourceChunks), old.SourcePath, chunk.ID); err != nil {
				return err
			}
		}
	}

	data, err := json.Marshal(chunk)
	if err != nil {
		return err
	}
	if err := chunks.Put(id, data); err != nil {
		return err
	}
	return addToIndex(tx.Bucket(bucketSourceChunks), chunk.SourcePath, chunk.ID)
}

// putEmbedding writes an embedding and keeps the chunk-id index in step.
func putEmbedding(tx *bbolt.Tx, e domain.Embedding) error {
	embeddings := tx.Bucket(bucketEmbeddings)
	byChunk := tx.Bucket(bucketChunkEmbeddings)
	id := []byte(e.ID)

	if existing := embeddings.Get(id); existing != nil {
		var old storedEmbedding
		if err := json.Unmarshal(existing, &old); err == nil && old.ChunkID != e.ChunkID {
			if err := removeFromIndex(byChunk, old.ChunkID, e.ID); err != nil {
				return err
			}
		}
	}

	data, err := json.Marshal(storedEmbedding{
		ChunkID:  e.ChunkID,
		Vector:   e.Vector,
		Content:  e.Content,
		Metadata: e.Metadata,
	})
	if err != nil {
		return err
	}
	if err := embeddings.Put(id, data); err != nil {
		return err
	}
	return addToIndex(byChunk, e.ChunkID, e.ID)
}

func (s *BoltStore) GetChunk(id string) (domain.Chunk, error) {
	var chunk domain.Chunk
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketChunks).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", errChunkNotFound, id)
		}
		return json.Unmarshal(data, &chunk)
	})
	if err != nil {
		return domain.Chunk{}, domain.NewStorageError("get chunk", err)
	}
	return chunk, nil
}

func (s *BoltStore) ChunksBySourcePath(path string) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	err := s.db.View(func(tx *bbolt.Tx) error {
		ids, err := readIndex(tx.Bucket(bucketSourceChunks), path)
		if err != nil {
			return err
		}
		chunkBucket := tx.Bucket(bucketChunks)
		for _, id := range ids {
			data := chunkBucket.Get([]byte(id))
			if data == nil {
				continue
			}
			var c domain.Chunk
			if err := json.Unmarshal(data, &c); err != nil {
				continue
			}
			chunks = append(chunks, c)
		}
		return nil
	})
	if err != nil {
		return nil, domain.NewStorageError("chunks by source path", err)
	}
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].ChunkIndex < chunks[j].ChunkIndex
	})
	return chunks, nil
}

func (s *BoltStore) RemoveChunksForSourcePath(path string) (int, error) {
	var removedEmbeddings []string
	removed := 0

	err := s.db.Update(func(tx *bbolt.Tx) error {
		sourceIdx := tx.Bucket(bucketSourceChunks)
		ids, err := readIndex(sourceIdx, path)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		chunkBucket := tx.Bucket(bucketChunks)
		embBucket := tx.Bucket(bucketEmbeddings)
		byChunk := tx.Bucket(bucketChunkEmbeddings)

		for _, id := range ids {
			if chunkBucket.Get([]byte(id)) != nil {
				removed++
			}
			if err := chunkBucket.Delete([]byte(id)); err != nil {
				return err
			}

			embIDs, err := readIndex(byChunk, id)
			if err != nil {
				return err
			}
			for _, embID := range embIDs {
				if err := embBucket.Delete([]byte(embID)); err != nil {
					return err
				}
				removedEmbeddings = append(removedEmbeddings, embID)
			}
			if err := byChunk.Delete([]byte(id)); err != nil {
				return err
			}
		}
		return sourceIdx.Delete([]byte(path))
	})
	if err != nil {
		return 0, domain.NewStorageError("remove chunks for source path", err)
	}

	s.mu.Lock()
	for _, id := range removedEmbeddings {
		delete(s.vectors, id)
	}
	s.mu.Unlock()

	return removed, nil
}

func (s *BoltStore) AllChunks() ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketChunks).ForEach(func(k, v []byte) error {
			var c domain.Chunk
			if err := json.Unmarshal(v, &c); err != nil {
				return nil
			}
			chunks = append(chunks, c)
			return nil
		})
	})
	if err != nil {
		return nil, domain.NewStorageError("all chunks", err)
	}
	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].SourcePath != chunks[j].SourcePath {
			return chunks[i].SourcePath < chunks[j].SourcePath
		}
		return chunks[i].ChunkIndex < chunks[j].ChunkIndex
	})
	return chunks, nil
}

// ClearAll drops every chunk and embedding in one transaction. Schema
// metadata survives so the store does not look freshly created afterwards.
func (s *BoltStore) ClearAll() error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range dataBuckets {
			if tx.Bucket(name) != nil {
				if err := tx.DeleteBucket(name); err != nil {
					return err
				}
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.NewStorageError("clear", err)
	}

	s.mu.Lock()
	s.vectors = make(map[string]vectorEntry)
	s.mu.Unlock()
	return nil
}

func (s *BoltStore) Stats() (domain.Stats, error) {
	var stats domain.Stats
	err := s.db.View(func(tx *bbolt.Tx) error {
		stats.ChunkCount = tx.Bucket(bucketChunks).Stats().KeyN
		stats.EmbeddingCount = tx.Bucket(bucketEmbeddings).Stats().KeyN
		return nil
	})
	if err != nil {
		return domain.Stats{}, domain.NewStorageError("stats", err)
	}
	return stats, nil
}

func (s *BoltStore) Close() error {
	return domain.NewStorageError("close", s.db.Close())
}

func readIndex(b *bbolt.Bucket, key string) ([]string, error) {
	data := b.Get([]byte(key))
	if data == nil {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("corrupt index entry %q: %w", key, err)
	}
	return ids, nil
}

func addToIndex(b *bbolt.Bucket, key, id string) error {
	ids, err := readIndex(b, key)
	if err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}
	data, err := json.Marshal(append(ids, id))
	if err != nil {
		return err
	}
	return b.Put([]byte(key), data)
}

func removeFromIndex(b *bbolt.Bucket, key, id string) error {
	ids, err := readIndex(b, key)
	if err != nil {
		return err
	}
	filtered := ids[:0]
	for _, existing := range ids {
		if existing != id {
			filtered = append(filtered, existing)
		}
	}
	if len(filtered) == 0 {
		return b.Delete([]byte(key))
	}
	data, err := json.Marshal(filtered)
	if err != nil {
		return err
	}
	return b.Put([]byte(key), data)
}
