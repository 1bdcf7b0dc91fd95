package worker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/chainguard-dev/clog"

	"github.com/ppiankov/codecritic/internal/corpus"
	"github.com/ppiankov/codecritic/internal/model"
	"github.com/ppiankov/codecritic/internal/pipeline"
)

// Analyzer runs one analysis request
type Analyzer interface {
	Analyze(ctx context.Context, req model.AnalysisRequest) (*model.Report, error)
}

// AnalysisJob loads one manifest job's inputs and analyzes them
type AnalysisJob struct {
	Job          ManifestJob
	CriteriaPath string
	OutputDir    string

	Analyzer Analyzer
	Renderer *pipeline.Renderer
	Settings Settings
}

// Settings are the per-request parameters shared by every job of a batch
type Settings struct {
	Corpus          corpus.Options
	Temperature     float64
	MaxOutputTokens int
}

// Execute executes the analysis job
func (j *AnalysisJob) Execute(ctx context.Context) Result {
	log := clog.FromContext(ctx).With("job", j.Job.Name)
	ctx = clog.WithLogger(ctx, log)
	started := time.Now()

	res := &JobResult{Name: j.Job.Name}
	defer func() { res.Elapsed = time.Since(started) }()

	template, criteria, err := corpus.LoadCriteria(j.CriteriaPath)
	if err != nil {
		res.Error = fmt.Errorf("load criteria: %w", err)
		return res
	}

	files, skipped, err := corpus.LoadFiles(j.Job.Paths, j.Settings.Corpus)
	if err != nil {
		res.Error = fmt.Errorf("load files: %w", err)
		return res
	}
	res.Skipped = skipped

	report, err := j.Analyzer.Analyze(ctx, model.AnalysisRequest{
		Criteria:           criteria,
		SourceFiles:        files,
		BasePromptTemplate: template,
		Temperature:        j.Settings.Temperature,
		MaxOutputTokens:    j.Settings.MaxOutputTokens,
	})
	res.Report = report
	if err != nil {
		res.Error = err
		if report == nil {
			return res
		}
		// Saved or not, a finished report is still rendered
		log.With("error", err.Error()).Warn("Report not persisted")
	}

	if j.OutputDir != "" && j.Renderer != nil {
		base := filepath.Join(j.OutputDir, j.Job.Name)
		if rerr := j.Renderer.RenderJSON(report, base+".json"); rerr != nil {
			res.Error = errors.Join(res.Error, rerr)
		}
		if rerr := j.Renderer.RenderMarkdown(report, base+".md"); rerr != nil {
			res.Error = errors.Join(res.Error, rerr)
		}
	}

	return res
}

// JobResult represents the result of an analysis job
type JobResult struct {
	Name    string
	Report  *model.Report
	Skipped []corpus.Skipped
	Elapsed time.Duration
	Error   error
}

// GetError returns the error from the job result
func (r *JobResult) GetError() error {
	return r.Error
}

// BatchProcessor processes every job of a manifest concurrently
type BatchProcessor struct {
	analyzer    Analyzer
	renderer    *pipeline.Renderer
	settings    Settings
	concurrency int
}

// NewBatchProcessor creates a new batch processor. renderer may be nil to skip
// writing per-job reports.
func NewBatchProcessor(analyzer Analyzer, renderer *pipeline.Renderer, settings Settings, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		renderer:    renderer,
		settings:    settings,
		concurrency: concurrency,
	}
}

// ProcessManifest runs every job and returns results in manifest order
func (b *BatchProcessor) ProcessManifest(ctx context.Context, m *Manifest) []*JobResult {
	if m == nil || len(m.Jobs) == 0 {
		return []*JobResult{}
	}

	jobs := make([]Job, len(m.Jobs))
	for i, mj := range m.Jobs {
		jobs[i] = &AnalysisJob{
			Job:          mj,
			CriteriaPath: m.CriteriaFor(mj),
			OutputDir:    m.OutputDir,
			Analyzer:     b.analyzer,
			Renderer:     b.renderer,
			Settings:     b.settings,
		}
	}

	results := NewPool(b.concurrency).Run(ctx, jobs)

	out := make([]*JobResult, len(results))
	for i, r := range results {
		if jr, ok := r.(*JobResult); ok {
			out[i] = jr
			continue
		}
		out[i] = &JobResult{Name: m.Jobs[i].Name, Error: r.GetError()}
	}
	return out
}

// ProcessFile loads a manifest and processes it
func (b *BatchProcessor) ProcessFile(ctx context.Context, path string) ([]*JobResult, error) {
	m, err := LoadManifest(path)
	if err != nil {
		return nil, err
	}
	return b.ProcessManifest(ctx, m), nil
}
