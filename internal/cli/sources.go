package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"docindex/internal/usecase"
)

var sourcesJSON bool

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List indexed documents with their chunk counts",
	RunE:  runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
	sourcesCmd.Flags().BoolVar(&sourcesJSON, "json", false, "output as JSON")
}

func runSources(cmd *cobra.Command, args []string) error {
	st, err := openStore(GetRootDir(), false)
	if err != nil {
		return err
	}
	defer st.Close()

	sources, err := usecase.ListSources(st)
	if err != nil {
		return err
	}

	if sourcesJSON {
		output, _ := json.MarshalIndent(sources, "", "  ")
		fmt.Println(string(output))
		return nil
	}
	if len(sources) == 0 {
		fmt.Println("Index is empty.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CHUNKS\tTYPE\tINDEXED\tPATH")
	for _, s := range sources {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.ChunkCount, s.SourceType,
			s.LastIndexed.Local().Format("2006-01-02 15:04"), s.SourcePath)
	}
	return w.Flush()
}
