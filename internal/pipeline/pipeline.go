// Package pipeline runs one analysis end to end: prompt assembly, dispatch,
// extraction, reconciliation and persistence.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"

	"github.com/ppiankov/codecritic/internal/dispatch"
	"github.com/ppiankov/codecritic/internal/extract"
	"github.com/ppiankov/codecritic/internal/logging"
	"github.com/ppiankov/codecritic/internal/model"
	"github.com/ppiankov/codecritic/internal/prompt"
	"github.com/ppiankov/codecritic/internal/reconcile"
	"github.com/ppiankov/codecritic/internal/store"
)

// Dispatcher sends one assembled prompt to the model tier
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) (model.DispatchResult, error)
}

// ErrNoCriteria is returned for a request without criteria
var ErrNoCriteria = errors.New("analysis request has no criteria")

// Pipeline orchestrates a complete analysis
type Pipeline struct {
	dispatcher Dispatcher
	extractor  *extract.Extractor
	sink       store.Sink
	now        func() time.Time
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithExtractor replaces the default extraction cascade
func WithExtractor(e *extract.Extractor) Option {
	return func(p *Pipeline) { p.extractor = e }
}

// WithClock overrides time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a pipeline. sink may be nil to skip persistence.
func New(d Dispatcher, sink store.Sink, opts ...Option) *Pipeline {
	if sink == nil {
		sink = store.Discard{}
	}
	p := &Pipeline{
		dispatcher: d,
		extractor:  extract.New(extract.DefaultStrategies()...),
		sink:       sink,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Analyze runs one request. A dispatch failure returns no report. A report
// that could not be saved is still returned together with the save error.
func (p *Pipeline) Analyze(ctx context.Context, req model.AnalysisRequest) (*model.Report, error) {
	if len(req.Criteria) == 0 {
		return nil, ErrNoCriteria
	}

	id := uuid.NewString()
	ctx = logging.Component(ctx, "pipeline")
	log := clog.FromContext(ctx).With("analysis_id", id)
	ctx = clog.WithLogger(ctx, log)
	started := p.now()

	// 1. Assemble prompt
	assembled := prompt.Assemble(req.BasePromptTemplate, req.Criteria, req.SourceFiles)
	log.With("criteria", len(req.Criteria)).
		With("files", len(req.SourceFiles)).
		With("prompt_chars", len(assembled.Text)).
		Info("Prompt assembled")

	// 2. Dispatch through the shared gate
	result, err := p.dispatcher.Dispatch(ctx, dispatch.Request{
		Prompt:          assembled.Text,
		Temperature:     req.Temperature,
		MaxOutputTokens: req.MaxOutputTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}

	// 3. Extract fragments; an unparseable response is not an error
	extraction := p.extractor.Extract(result.RawText)
	log.With("strategy", extraction.Strategy).With("slots", len(extraction.Slots())).Debug("Response extracted")

	// 4. Bind fragments to the caller's criteria
	results, bindings := reconcile.ReconcileWithBindings(extraction.Fragments, req.Criteria)
	for _, b := range bindings {
		log.With("slot", b.SlotKey).With("rule", string(b.Rule)).With("criterion", b.Index).Debug("Fragment bound")
	}
	if len(results) == 0 {
		log.With("strategy", extraction.Strategy).Warn("No criteria recovered from response; raw text kept for inspection")
	}

	files := make([]string, len(req.SourceFiles))
	for i, f := range req.SourceFiles {
		files[i] = f.Path
	}

	finished := p.now()
	report := &model.Report{
		ID:                id,
		CreatedAt:         finished.UTC(),
		Duration:          finished.Sub(started).Round(time.Millisecond).String(),
		ModelUsed:         result.ModelUsed,
		Usage:             result.Usage,
		CriteriaCount:     len(req.Criteria),
		Files:             files,
		Prompt:            assembled.Text,
		RawResponse:       result.RawText,
		ProcessedResponse: extraction.Text,
		Results:           results,
	}
	if extraction.Strategy != extract.StrategyNone {
		report.Strategy = extraction.Strategy
	}

	log.With("model_used", report.ModelUsed).
		With("strategy", extraction.Strategy).
		With("matched", len(results)).
		With("duration", report.Duration).
		Info("Analysis complete")

	// 5. Persist
	if err := p.sink.Save(ctx, report); err != nil {
		return report, fmt.Errorf("save report: %w", err)
	}

	return report, nil
}
