package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"docindex/config"
	"docindex/internal/domain"
	"docindex/internal/port"
)

var (
	indexFiles       []string
	indexIncremental bool
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index documents for retrieval",
	Long: `Index documents in the specified directory for later retrieval.
The index is stored in .docindex/index.db within the target directory.

Examples:
  docindex index .                      # Index current directory
  docindex index /path/to/docs          # Index specific directory
  docindex index --incremental .        # Only changed files, drop deleted ones
  docindex index --files a.pdf,notes.md # Index a list of files`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().StringSliceVar(&indexFiles, "files", nil, "index only these files (comma separated)")
	indexCmd.Flags().BoolVar(&indexIncremental, "incremental", false, "skip unchanged files and remove deleted ones")
}

func runIndex(cmd *cobra.Command, args []string) error {
	path := GetRootDir()
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	st, err := openStore(path, true)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := prepareStore(st); err != nil {
		return err
	}

	indexer, err := newIndexer(st, indexIncremental)
	if err != nil {
		return err
	}
	indexer.OnProgress(newProgressBar("Indexing"))

	var report *domain.IndexReport
	if len(indexFiles) > 0 {
		fmt.Printf("Indexing %d files...\n", len(indexFiles))
		report, err = indexer.IndexFiles(cmd.Context(), indexFiles)
	} else {
		fmt.Printf("Scanning %s...\n", path)
		report, err = indexer.IndexDirectory(cmd.Context(), path)
	}
	if report != nil {
		printReport(report)
	}
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Printf("\nIndex stored at: %s\n", config.IndexDBPath(path))
	return nil
}

// newProgressBar returns an observer that renders indexing progress. The
// bar is created on the first event, once the file count is known.
func newProgressBar(label string) port.ProgressObserver {
	var bar *progressbar.ProgressBar
	var startTime time.Time

	return port.ProgressFunc(func(p domain.IndexingProgress) {
		if p.Status == domain.StatusIndexing && p.Processed == 0 && p.Total > 0 {
			startTime = time.Now()
			bar = progressbar.NewOptions(p.Total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]"+label+"[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}
		if bar == nil {
			return
		}

		switch p.Status {
		case domain.StatusComplete:
			_ = bar.Finish()
			return
		case domain.StatusError:
			fmt.Println()
			return
		}

		_ = bar.Set(p.Processed)
		if p.Processed > 0 {
			elapsed := time.Since(startTime)
			rate := float64(p.Processed) / elapsed.Seconds()
			remaining := p.Total - p.Processed
			if rate > 0 {
				eta := time.Duration(float64(remaining)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]%s[reset] %s ETA: %s", label, p.CurrentFile, formatDuration(eta)))
			}
		}
	})
}

func printReport(report *domain.IndexReport) {
	if report.Cancelled {
		fmt.Println("\nIndexing cancelled.")
	}

	fmt.Printf("\nIndexing %s:\n", report.Status)
	fmt.Printf("  Files indexed:  %d\n", report.Count(domain.OutcomeIndexed))
	fmt.Printf("  Files skipped:  %d\n", report.Count(domain.OutcomeSkipped))
	fmt.Printf("  Files failed:   %d\n", report.Count(domain.OutcomeFailed))
	if len(report.Removed) > 0 {
		fmt.Printf("  Files removed:  %d\n", len(report.Removed))
	}
	fmt.Printf("  Chunks stored:  %d\n", report.ChunksStored())
	if n := report.ChunksFailed(); n > 0 {
		fmt.Printf("  Chunks failed:  %d\n", n)
	}

	var notes []domain.FileReport
	for _, f := range report.Files {
		if f.Outcome == domain.OutcomeFailed || (f.Reason != domain.ReasonNone && f.Reason != domain.ReasonUnchanged) {
			notes = append(notes, f)
		}
	}
	if len(notes) > 0 {
		fmt.Printf("\nNotes:\n")
		for _, f := range notes {
			line := fmt.Sprintf("  - %s: %s", f.Path, f.Outcome)
			if f.Reason != domain.ReasonNone {
				line += " (" + string(f.Reason) + ")"
			}
			if f.Error != "" {
				line += ": " + f.Error
			}
			fmt.Println(line)
		}
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
