package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docindex/internal/usecase"
)

var (
	contextQuery  string
	contextTopK   int
	contextOutput string
)

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Render retrieved chunks as a context block for an LLM",
	Long: `Search the index and render the best matches as numbered references
that a completion model can cite.

Examples:
  docindex context -q "onboarding steps"
  docindex context -q "onboarding steps" -k 8 -o context.md`,
	RunE: runContext,
}

func init() {
	rootCmd.AddCommand(contextCmd)
	contextCmd.Flags().StringVarP(&contextQuery, "query", "q", "", "search query (required)")
	contextCmd.Flags().IntVarP(&contextTopK, "top-k", "k", 0, "number of references (default from config)")
	contextCmd.Flags().StringVarP(&contextOutput, "output", "o", "", "write to file instead of stdout")
	contextCmd.MarkFlagRequired("query")
}

func runContext(cmd *cobra.Command, args []string) error {
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
	if contextTopK > 0 {
		topK = contextTopK
	}

	results, err := retriever.Search(cmd.Context(), contextQuery, topK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if len(results) == 0 {
		fmt.Fprintln(os.Stderr, "No matching documents.")
		return nil
	}

	block := usecase.FormatContext(results)
	if contextOutput == "" {
		fmt.Println(block)
		return nil
	}
	if err := os.WriteFile(contextOutput, []byte(block+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write context: %w", err)
	}
	fmt.Printf("Context with %d references written to %s\n", len(results), contextOutput)
	return nil
}
