package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"docindex/internal/adapter/fs"
	"docindex/internal/domain"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Index a directory and keep the index up to date",
	Long: `Run an incremental index of the directory, then watch it and re-index
changed files and remove deleted ones until interrupted.

Examples:
  docindex watch .
  docindex watch ~/notes --debounce 2s`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "quiet period before changes are applied")
}

func runWatch(cmd *cobra.Command, args []string) error {
	path := GetRootDir()
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		return fmt.Errorf("not a directory: %s", path)
	}

	st, err := openStore(path, true)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := prepareStore(st); err != nil {
		return err
	}

	indexer, err := newIndexer(st, true)
	if err != nil {
		return err
	}

	bar := newProgressBar("Indexing")
	indexer.OnProgress(bar)
	report, err := indexer.IndexDirectory(cmd.Context(), path)
	if report != nil {
		printReport(report)
	}
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Printf("\nWatching %s for changes (Ctrl+C to stop)...\n", path)
	watcher := fs.NewWatcher(newWalker(), watchDebounce, logger)
	return watcher.Watch(cmd.Context(), path, func(ctx context.Context, batch fs.Batch) error {
		for _, p := range batch.Removed {
			n, err := indexer.RemoveSource(p)
			if err != nil {
				return err
			}
			if n > 0 {
				fmt.Printf("removed  %s (%d chunks)\n", p, n)
			}
		}
		if len(batch.Updated) == 0 {
			return nil
		}
		report, err := indexer.IndexFilesUnder(ctx, path, batch.Updated)
		if err != nil {
			return err
		}
		for _, f := range report.Files {
			switch f.Outcome {
			case domain.OutcomeIndexed:
				fmt.Printf("indexed  %s (%d chunks)\n", f.Path, f.ChunksStored)
			default:
				fmt.Printf("%-8s %s (%s)\n", f.Outcome, f.Path, f.Reason)
			}
		}
		return nil
	})
}
