package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strings"
	"time"

	"docindex/config"
	"docindex/internal/adapter/embedding"
	"docindex/internal/adapter/memstore"
	"docindex/internal/adapter/store"
	"docindex/internal/domain"
	"docindex/internal/port"
	"docindex/internal/usecase"
)

func main() {
	indexPath := flag.String("index", ".", "Path to indexed directory")
	query := flag.String("q", "", "Query to test against the index")
	topK := flag.Int("k", 10, "Number of results")
	synthetic := flag.Int("synthetic", 0, "Benchmark search over N generated chunks instead of an index")
	dim := flag.Int("dim", 768, "Vector dimension for -synthetic")
	runs := flag.Int("runs", 50, "Queries per synthetic run")
	flag.Parse()

	if *synthetic > 0 {
		runSynthetic(*synthetic, *dim, *topK, *runs)
		return
	}

	if *query == "" {
		fmt.Println("Usage: go run ./cmd/benchmark -index ./docs -q \"query\"")
		fmt.Println("       go run ./cmd/benchmark -synthetic 5000 -dim 768")
		fmt.Println("\nTests:")
		fmt.Println("  1. Embedding backend connection and vector store")
		fmt.Println("  2. Semantic similarity (query vs results)")
		fmt.Println("  3. Linear-scan search latency at a given index size")
		os.Exit(1)
	}

	runQuality(*indexPath, *query, *topK)
}

// runQuality embeds query with the configured backend and reports how
// similar the top results of a real index are.
func runQuality(indexPath, query string, topK int) {
	cfg, err := config.LoadFromDir(indexPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	st, err := store.Open(config.IndexDBPath(indexPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening index: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedder init failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("SEMANTIC SEARCH BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))

	stats, _ := st.Stats()
	fmt.Printf("Embeddings indexed: %d\n", stats.EmbeddingCount)
	fmt.Printf("Model: %s (%s)\n", embedder.ModelName(), cfg.Embedding.Provider)
	fmt.Println()

	fmt.Printf("Query: \"%s\"\n", query)
	fmt.Println(strings.Repeat("-", 70))

	start := time.Now()
	results, err := usecase.NewRetriever(st, embedder, nil).Search(context.Background(), query, topK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
		os.Exit(1)
	}
	elapsed := time.Since(start)

	if len(results) == 0 {
		fmt.Println("No results. Is the index empty?")
		return
	}

	fmt.Printf("Top %d semantic matches (%s):\n\n", len(results), elapsed.Round(time.Millisecond))

	totalScore := 0.0
	for i, r := range results {
		preview := []rune(r.RelevantText)
		if len(preview) > 150 {
			preview = append(preview[:150], []rune("...")...)
		}
		text := strings.ReplaceAll(string(preview), "\n", " ")

		totalScore += r.Similarity
		fmt.Printf("%d. [%s %.3f] %s #%d\n", i+1, rating(r.Similarity), r.Similarity, r.Chunk.SourceName, r.Chunk.ChunkIndex)
		fmt.Printf("   %s\n\n", text)
	}

	avgScore := totalScore / float64(len(results))
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Average similarity: %.3f\n", avgScore)
	fmt.Printf("  Top-1 similarity:   %.3f\n", results[0].Similarity)

	if avgScore > 0.5 {
		fmt.Println("  Status: GOOD - semantic search working well")
	} else if avgScore > 0.3 {
		fmt.Println("  Status: OK - results are somewhat related")
	} else {
		fmt.Println("  Status: POOR - may need better embeddings or re-indexing")
	}
}

func rating(similarity float64) string {
	switch {
	case similarity > 0.7:
		return "HIGH"
	case similarity > 0.5:
		return "GOOD"
	case similarity > 0.3:
		return "OK"
	default:
		return "LOW"
	}
}

// runSynthetic fills an in-memory store with random vectors and times
// SearchSimilar, which is a full linear scan.
func runSynthetic(n, dim, topK, runs int) {
	if runs <= 0 {
		runs = 1
	}
	rng := rand.New(rand.NewSource(1))
	var st port.VectorStore = memstore.NewMemoryStore()

	fmt.Printf("SYNTHETIC SEARCH BENCHMARK: %d chunks x %d dims\n", n, dim)
	fmt.Println(strings.Repeat("=", 70))

	start := time.Now()
	for i := 0; i < n; i++ {
		chunk := domain.Chunk{
			ID:          fmt.Sprintf("c%d", i),
			Content:     fmt.Sprintf("chunk %d", i),
			SourceName:  fmt.Sprintf("doc%d.txt", i/10),
			SourcePath:  fmt.Sprintf("/bench/doc%d.txt", i/10),
			ChunkIndex:  i % 10,
			TotalChunks: 10,
		}
		e := domain.Embedding{
			ID:       fmt.Sprintf("e%d", i),
			ChunkID:  chunk.ID,
			Vector:   randomVector(rng, dim),
			Content:  chunk.Content,
			Metadata: chunk.Metadata(),
		}
		if err := st.PutChunkWithEmbedding(chunk, e); err != nil {
			fmt.Fprintf(os.Stderr, "Insert error: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("Inserted in %s\n", time.Since(start).Round(time.Millisecond))

	latencies := make([]time.Duration, 0, runs)
	for i := 0; i < runs; i++ {
		q := randomVector(rng, dim)
		t := time.Now()
		if _, err := st.SearchSimilar(q, topK); err != nil {
			fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
			os.Exit(1)
		}
		latencies = append(latencies, time.Since(t))
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	fmt.Printf("Search latency over %d queries (top %d):\n", runs, topK)
	fmt.Printf("  p50: %s\n", percentile(latencies, 0.50))
	fmt.Printf("  p95: %s\n", percentile(latencies, 0.95))
	fmt.Printf("  max: %s\n", latencies[len(latencies)-1])
}

func randomVector(rng *rand.Rand, dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = float32(rng.NormFloat64())
	}
	return v
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}
