package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

type rebuildOutput struct {
	Documents  int    `json:"documents"`
	DurationMs int64  `json:"duration_ms"`
	Location   string `json:"location"`
	Embedding  string `json:"embedding"`
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the dataset index from the live catalog",
	Long: `Fetch the Census dataset catalog, embed every dataset and replace the
persisted index. The previous snapshot is kept if any step fails.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.datasets.Rebuild(ctx)
		if err != nil {
			return fmt.Errorf("rebuild dataset index: %w", err)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rebuildOutput{
			Documents:  stats.Documents,
			DurationMs: stats.Duration.Milliseconds(),
			Location:   stats.Location,
			Embedding:  a.datasets.Stats().Identity.String(),
		})
	},
}
