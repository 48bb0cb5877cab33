package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"docindex/config"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	dir := GetRootDir()
	st, err := openStore(dir, false)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.Stats()
	if err != nil {
		return err
	}
	info, err := st.GetSchemaInfo()
	if err != nil {
		return err
	}

	fmt.Printf("Index:       %s\n", config.IndexDBPath(dir))
	fmt.Printf("Chunks:      %d\n", stats.ChunkCount)
	fmt.Printf("Embeddings:  %d\n", stats.EmbeddingCount)
	if info != nil && info.ModelName != "" {
		fmt.Printf("Model:       %s\n", info.ModelName)
	}
	return nil
}
