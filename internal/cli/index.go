package cli

import (
	"fmt"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"qarag/config"
)

var indexForce bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build or refresh the embedding index",
	Long: `Extract the source document, split it into chunks and embed them.
A persisted index is reused when it was built from the same text, chunk
size and embedding model.

Examples:
  qarag index           # Reuse the stored index when still valid
  qarag index --force   # Re-embed everything`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVarP(&indexForce, "force", "f", false, "discard the stored index and rebuild")
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if cfg.Storage.Path == config.MemoryStorage {
		fmt.Println("Note: storage.path is \"memory\", the index will not be kept.")
	}

	a, err := newIndexing(cfg, GetRootDir(), logger)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Printf("Indexing %s...\n", config.ResolvePath(GetRootDir(), cfg.Source.Path))

	progress := newEmbedProgress()
	result, err := a.indexer.Index(cmd.Context(), indexForce, progress.update)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Printf("\nIndexing complete:\n")
	fmt.Printf("  Chunks:      %d\n", result.Chunks)
	fmt.Printf("  Vectors:     %d\n", result.Vectors)
	fmt.Printf("  Dimension:   %d\n", result.Dimension)
	fmt.Printf("  Model:       %s\n", result.Model)
	if result.Loaded {
		fmt.Printf("  Reused stored index\n")
	}
	fmt.Printf("  Took:        %s\n", formatDuration(result.Duration))
	fmt.Printf("\nIndex stored at: %s\n", config.ResolvePath(GetRootDir(), cfg.Storage.Path))
	return nil
}

// embedProgress draws a bar once the first batch reports a total.
type embedProgress struct {
	mu    sync.Mutex
	bar   *progressbar.ProgressBar
	start time.Time
}

func newEmbedProgress() *embedProgress {
	return &embedProgress{}
}

func (p *embedProgress) update(done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil {
		p.start = time.Now()
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowBytes(false),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
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

	p.bar.Set(done)

	if done > 0 && done < total {
		rate := float64(done) / time.Since(p.start).Seconds()
		if rate > 0 {
			eta := time.Duration(float64(total-done)/rate) * time.Second
			p.bar.Describe(fmt.Sprintf("[cyan]Embedding[reset] ETA: %s", formatDuration(eta)))
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
