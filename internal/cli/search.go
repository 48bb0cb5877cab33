package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	searchText string
	searchTopK int
	searchJSON bool
)

var searchCmd = &cobra.Command{
	Use:     "search",
	Aliases: []string{"query"},
	Short:   "Search indexed documents",
	Long: `Search for the chunks most similar to a query by cosine similarity.

Examples:
  docindex search -q "travel reimbursement policy"
  docindex search -q "release checklist" -k 10 --json`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchText, "query", "q", "", "search query (required)")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "number of results (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	searchCmd.MarkFlagRequired("query")
}

// SearchHit is the JSON shape of one search result.
type SearchHit struct {
	Path       string  `json:"path"`
	Name       string  `json:"name"`
	ChunkIndex int     `json:"chunk_index"`
	Similarity float64 `json:"similarity"`
	Text       string  `json:"text"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	st, err := openStore(GetRootDir(), false)
	if err != nil {
		return err
	}
	defer st.Close()

	retriever, err := newRetriever(st)
	if err != nil {
		return err
	}

	topK := cfg.Retrieve.TopK
	if searchTopK > 0 {
		topK = searchTopK
	}

	results, err := retriever.Search(cmd.Context(), searchText, topK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		hits := make([]SearchHit, 0, len(results))
		for _, r := range results {
			hits = append(hits, SearchHit{
				Path:       r.Chunk.SourcePath,
				Name:       r.Chunk.SourceName,
				ChunkIndex: r.Chunk.ChunkIndex,
				Similarity: r.Similarity,
				Text:       r.RelevantText,
			})
		}
		output, _ := json.MarshalIndent(hits, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results for: %s\n\n", len(results), searchText)
	for i, r := range results {
		fmt.Printf("%d. %s [chunk %d/%d] (%.1f%%)\n", i+1, r.Chunk.SourcePath,
			r.Chunk.ChunkIndex+1, r.Chunk.TotalChunks, r.Similarity*100)
		fmt.Printf("   %s\n\n", strings.ReplaceAll(preview(r.RelevantText, 300), "\n", "\n   "))
	}
	return nil
}

func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
