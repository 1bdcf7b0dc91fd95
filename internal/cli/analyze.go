package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/codecritic/internal/corpus"
	"github.com/ppiankov/codecritic/internal/model"
	"github.com/ppiankov/codecritic/internal/pipeline"
)

var (
	criteriaPath   string
	outJSON        string
	outMD          string
	analyzeTimeout time.Duration
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <path>...",
	Short: "Evaluate source files against a criteria file",
	Long: `Analyze loads the source files under each path, assembles one prompt with
the active criteria and asks the model for a verdict per criterion:
- Files are filtered by extension, size and excluded directories
- The primary model is retried with backoff, then the fallback model
- The answer is split into sections and bound back to the criteria
- The report is stored and optionally written as JSON and Markdown

Example:
  codecritic analyze ./internal --criteria criteria.yaml
  codecritic analyze main.go pkg/ --criteria review.yaml --json report.json --md report.md
  codecritic analyze . --criteria criteria.yaml --provider openai --model gpt-4o`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	flags := analyzeCmd.Flags()

	// Input and output flags
	flags.StringVarP(&criteriaPath, "criteria", "c", "", "criteria YAML file (required)")
	flags.StringVar(&outJSON, "json", "", "output JSON path (optional)")
	flags.StringVar(&outMD, "md", "", "output Markdown path (optional)")
	flags.DurationVar(&analyzeTimeout, "timeout", 0, "give up waiting after this long (0 = no limit)")
	_ = analyzeCmd.MarkFlagRequired("criteria")

	registerModelFlags(analyzeCmd)
}

// registerModelFlags adds the flags shared by analyze and batch
func registerModelFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("provider", "", "LLM provider (gemini, genai, openai, anthropic, ollama)")
	flags.String("model", "", "primary model name")
	flags.String("fallback-model", "", "fallback model name")
	flags.Bool("no-cache", false, "disable the response cache")
	flags.String("store", "", "persistence driver (sqlite, postgres, none)")
}

// bindModelFlags maps the shared flags onto config keys for the running command
func bindModelFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	for key, name := range map[string]string{
		"llm.provider":       "provider",
		"llm.primary_model":  "model",
		"llm.fallback_model": "fallback-model",
		"store.driver":       "store",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			return err
		}
	}
	return nil
}

func commandConfig(cmd *cobra.Command) (*model.Config, error) {
	if err := bindModelFlags(cmd); err != nil {
		return nil, err
	}
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		cfg.Cache.Enabled = false
	}
	return cfg, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if analyzeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, analyzeTimeout)
		defer cancel()
	}
	log := clog.FromContext(ctx)

	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}

	template, criteria, err := corpus.LoadCriteria(criteriaPath)
	if err != nil {
		return err
	}

	files, skipped, err := corpus.LoadFiles(args, corpus.OptionsFromConfig(cfg.Corpus))
	if err != nil {
		return err
	}
	for _, s := range skipped {
		log.With("path", s.Path).With("reason", s.Reason).Warn("Skipped file")
	}

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Analyzing %d files against %d criteria\n", len(files), len(criteria))
		fmt.Fprintf(os.Stderr, "Model: %s (fallback: %s)\n", cfg.LLM.PrimaryModel, orNone(cfg.LLM.FallbackModel))
		fmt.Fprintln(os.Stderr)
	}

	rt, err := startRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	report, err := rt.engine.Analyze(ctx, model.AnalysisRequest{
		Criteria:           criteria,
		SourceFiles:        files,
		BasePromptTemplate: template,
		Temperature:        cfg.LLM.Temperature,
		MaxOutputTokens:    cfg.LLM.MaxOutputTokens,
	})
	if err != nil {
		if report == nil {
			return fmt.Errorf("analyze: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	renderer := pipeline.NewRenderer(cmd.OutOrStdout(), cfg.Output.Verbose)
	if err := renderer.RenderReport(report, outJSON, outMD); err != nil {
		return err
	}

	if !report.Matched() {
		return errors.New("no criteria could be recovered from the model response")
	}
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
