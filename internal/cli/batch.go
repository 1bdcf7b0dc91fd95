package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/codecritic/internal/corpus"
	"github.com/ppiankov/codecritic/internal/pipeline"
	"github.com/ppiankov/codecritic/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <manifest>",
	Short: "Run every analysis listed in a manifest",
	Long: `Batch runs the analyses listed in a YAML manifest concurrently:
- Each job names the paths to analyze and optionally its own criteria file
- File loading, prompt assembly and rendering run in parallel
- Model calls stay serialized through one shared dispatch gate
- Each job writes <name>.json and <name>.md to the output directory

Manifest:
  criteria: criteria.yaml
  output_dir: reports
  jobs:
    - name: api
      paths: [services/api]
    - name: web
      paths: [web/src]
      criteria: frontend.yaml

Example:
  codecritic batch review.yaml
  codecritic batch review.yaml --concurrency 8 --output-dir ./reports`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	// Concurrency flags
	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent jobs (default: concurrency.workers)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "", "output directory for reports (overrides the manifest)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 0, "total timeout for batch processing (0 = no limit)")

	registerModelFlags(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx := cmd.Context()
	if batchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, batchTimeout)
		defer cancel()
	}

	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}
	if concurrency > 0 {
		cfg.Concurrency.Workers = concurrency
	}

	manifest, err := worker.LoadManifest(file)
	if err != nil {
		return err
	}
	if outputDir != "" {
		manifest.OutputDir = outputDir
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Codecritic Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Manifest:     %s\n", file)
	fmt.Fprintf(os.Stderr, "  Jobs:         %d\n", len(manifest.Jobs))
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Model:        %s (fallback: %s)\n", cfg.LLM.PrimaryModel, orNone(cfg.LLM.FallbackModel))
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", orNone(manifest.OutputDir))
	fmt.Fprintf(os.Stderr, "\n")

	if manifest.OutputDir != "" {
		if err := os.MkdirAll(manifest.OutputDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	rt, err := startRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	processor := worker.NewBatchProcessor(
		rt.engine,
		pipeline.NewRenderer(os.Stderr, cfg.Output.Verbose),
		worker.Settings{
			Corpus:          corpus.OptionsFromConfig(cfg.Corpus),
			Temperature:     cfg.LLM.Temperature,
			MaxOutputTokens: cfg.LLM.MaxOutputTokens,
		},
		cfg.Concurrency.Workers,
	)

	fmt.Fprintf(os.Stderr, "⚙️  Processing %d jobs with %d workers...\n\n", len(manifest.Jobs), cfg.Concurrency.Workers)
	results := processor.ProcessManifest(ctx, manifest)

	failureCount := 0
	for _, result := range results {
		if result.Error != nil && result.Report == nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Name, result.Error)
			continue
		}
		if result.Error != nil {
			fmt.Fprintf(os.Stderr, "⚠ %s: %v\n", result.Name, result.Error)
		}
		fmt.Fprintf(os.Stderr, "✓ %s (%d/%d criteria, %s, %s)\n",
			result.Name,
			len(result.Report.Results), result.Report.CriteriaCount,
			result.Report.ModelUsed,
			result.Elapsed.Round(time.Second))
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d jobs\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", len(results)-failureCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "\n")

	if failureCount > 0 {
		return fmt.Errorf("%d of %d jobs failed", failureCount, len(results))
	}
	return nil
}
