package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"

	"github.com/ppiankov/codecritic/internal/model"
)

// Renderer writes reports as JSON, Markdown and a terminal summary
type Renderer struct {
	out     io.Writer
	verbose bool
}

// NewRenderer creates a renderer printing summaries to out
func NewRenderer(out io.Writer, verbose bool) *Renderer {
	if out == nil {
		out = os.Stdout
	}
	return &Renderer{out: out, verbose: verbose}
}

// RenderJSON writes the full report, prompt and raw response included
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

// RenderMarkdown writes the per-criterion verdicts as a Markdown document
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return writeFile(path, []byte(Markdown(report)))
}

// Markdown formats a report for humans
func Markdown(report *model.Report) string {
	var b strings.Builder

	b.WriteString("# Code Analysis Report\n\n")
	fmt.Fprintf(&b, "| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Analysis | `%s` |\n", report.ID)
	fmt.Fprintf(&b, "| Date | %s |\n", report.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "| Model | %s |\n", report.ModelUsed)
	fmt.Fprintf(&b, "| Duration | %s |\n", report.Duration)
	fmt.Fprintf(&b, "| Tokens | %d prompt / %d output |\n", report.Usage.PromptTokens, report.Usage.OutputTokens)
	fmt.Fprintf(&b, "| Criteria | %d sent, %d answered |\n", report.CriteriaCount, len(report.Results))
	if report.Strategy != "" {
		fmt.Fprintf(&b, "| Extraction | %s |\n", report.Strategy)
	}
	b.WriteString("\n")

	if len(report.Files) > 0 {
		b.WriteString("## Files\n\n")
		for _, f := range report.Files {
			fmt.Fprintf(&b, "- `%s`\n", f)
		}
		b.WriteString("\n")
	}

	if !report.Matched() {
		b.WriteString("## Raw Response\n\n")
		b.WriteString("No criterion sections could be recovered from the model output.\n\n")
		b.WriteString("```\n")
		b.WriteString(strings.TrimSpace(report.ProcessedResponse))
		b.WriteString("\n```\n")
		return b.String()
	}

	b.WriteString("## Results\n\n")
	for i, res := range report.Results {
		fmt.Fprintf(&b, "### %d. %s\n\n", i+1, res.CanonicalName)
		b.WriteString(strings.TrimSpace(res.Content))
		b.WriteString("\n\n")
	}
	return b.String()
}

// RenderSummary prints a short digest
func (r *Renderer) RenderSummary(report *model.Report) {
	fmt.Fprintf(r.out, "\nAnalysis %s\n", report.ID)
	fmt.Fprintf(r.out, "  Model:    %s\n", report.ModelUsed)
	fmt.Fprintf(r.out, "  Files:    %d\n", len(report.Files))
	fmt.Fprintf(r.out, "  Criteria: %d/%d answered\n", len(report.Results), report.CriteriaCount)
	fmt.Fprintf(r.out, "  Duration: %s\n", report.Duration)

	if !report.Matched() {
		fmt.Fprintln(r.out, "  ⚠ No criteria recovered; see raw response in the JSON report")
		return
	}
	if r.verbose {
		for _, res := range report.Results {
			fmt.Fprintf(r.out, "  - %s\n", oneLine(res.CanonicalName, 80))
		}
	}
}

// RenderReport writes the requested outputs and prints the summary
func (r *Renderer) RenderReport(report *model.Report, jsonPath, mdPath string) error {
	if jsonPath != "" {
		if err := r.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if r.verbose {
			fmt.Fprintf(r.out, "✓ Wrote JSON: %s\n", jsonPath)
		}
	}

	if mdPath != "" {
		if err := r.RenderMarkdown(report, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if r.verbose {
			fmt.Fprintf(r.out, "✓ Wrote Markdown: %s\n", mdPath)
		}
	}

	r.RenderSummary(report)
	return nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func oneLine(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
