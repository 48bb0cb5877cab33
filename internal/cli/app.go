package cli

import (
	"fmt"
	"os"

	"docindex/config"
	"docindex/internal/adapter/cache"
	"docindex/internal/adapter/chunker"
	"docindex/internal/adapter/embedding"
	"docindex/internal/adapter/extract"
	"docindex/internal/adapter/fs"
	"docindex/internal/adapter/store"
	"docindex/internal/usecase"
)

// openStore opens the index under dir, creating it when create is set.
func openStore(dir string, create bool) (*store.BoltStore, error) {
	dbPath := config.IndexDBPath(dir)
	if !create {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("no index found in %s. Run 'docindex index' first", dir)
		}
	}
	if err := config.EnsureIndexDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", config.IndexDirName, err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open index store: %w", err)
	}
	return st, nil
}

// prepareStore clears an index built with another embedding model and
// records the current one.
func prepareStore(st *store.BoltStore) error {
	cleared, reason, err := st.Prepare(cfg)
	if err != nil {
		return fmt.Errorf("failed to prepare index: %w", err)
	}
	if cleared {
		fmt.Printf("Index rebuild required: %s\n", reason)
		fmt.Println("Cleared existing index.")
	}
	return nil
}

func newWalker() *fs.Walker {
	return fs.NewWalker(cfg.Index.Includes, cfg.Index.Excludes, logger)
}

// newIndexer wires the indexing pipeline. Bulk embedding calls are throttled.
func newIndexer(st *store.BoltStore, incremental bool) (*usecase.DocumentIndexer, error) {
	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	loader := fs.NewLoader(extract.FromConfig(cfg.Extract), cfg.Index.MaxFileSize)
	return usecase.NewDocumentIndexer(
		st,
		embedding.NewThrottled(embedder, cfg.Embedding.Throttle),
		chunker.NewSentenceChunker(cfg.Index.MaxChunkSize),
		loader,
		newWalker(),
		usecase.WithLogger(logger),
		usecase.WithMinContentLength(cfg.Index.MinContentLength),
		usecase.WithIncremental(incremental),
	), nil
}

// newRetriever wires search. Query vectors are cached for the life of the process.
func newRetriever(st *store.BoltStore) (*usecase.Retriever, error) {
	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	queryCache := cache.NewEmbeddingCache(cfg.Retrieve.CacheSize, cfg.Retrieve.CacheTTL)
	return usecase.NewRetriever(st, cache.NewCachedEmbedder(embedder, queryCache), logger), nil
}
