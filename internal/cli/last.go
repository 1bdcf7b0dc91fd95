package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/codecritic/internal/model"
	"github.com/ppiankov/codecritic/internal/pipeline"
	"github.com/ppiankov/codecritic/internal/store"
)

var (
	lastJSON string
	lastMD   string
	lastRaw  bool
	lastID   string
)

// lastCmd represents the last command
var lastCmd = &cobra.Command{
	Use:   "last",
	Short: "Show a stored analysis (the most recent by default)",
	Long: `Last reads the most recent analysis from the configured store, including
the exact prompt sent and the raw model response.

Example:
  codecritic last
  codecritic last --raw
  codecritic last --md last.md`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := configFrom(ctx)

		sink, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer func() { _ = sink.Close() }()

		var report *model.Report
		if lastID != "" {
			report, err = sink.Get(ctx, lastID)
		} else {
			report, err = sink.Latest(ctx)
		}
		if errors.Is(err, store.ErrNoAnalyses) {
			fmt.Fprintln(cmd.OutOrStdout(), "No analyses stored yet.")
			return nil
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if lastRaw {
			fmt.Fprintf(out, "=== PROMPT ===\n%s\n\n=== RESPONSE (%s) ===\n%s\n", report.Prompt, report.ModelUsed, report.RawResponse)
			return nil
		}
		return pipeline.NewRenderer(out, cfg.Output.Verbose).RenderReport(report, lastJSON, lastMD)
	},
}

func init() {
	rootCmd.AddCommand(lastCmd)

	lastCmd.Flags().StringVar(&lastJSON, "json", "", "write the report as JSON")
	lastCmd.Flags().StringVar(&lastMD, "md", "", "write the report as Markdown")
	lastCmd.Flags().BoolVar(&lastRaw, "raw", false, "print the prompt and raw model response")
	lastCmd.Flags().StringVar(&lastID, "id", "", "show this analysis instead of the most recent one")
}
