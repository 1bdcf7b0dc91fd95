package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/codecritic/internal/dispatch"
	"github.com/ppiankov/codecritic/internal/model"
	"github.com/ppiankov/codecritic/internal/prompt"
)

type fakeDispatcher struct {
	result model.DispatchResult
	err    error
	got    []dispatch.Request
}

func (f *fakeDispatcher) Dispatch(_ context.Context, req dispatch.Request) (model.DispatchResult, error) {
	f.got = append(f.got, req)
	return f.result, f.err
}

type memorySink struct {
	saved []*model.Report
	err   error
}

func (s *memorySink) Save(_ context.Context, r *model.Report) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, r)
	return nil
}

func (s *memorySink) Latest(context.Context) (*model.Report, error) {
	if len(s.saved) == 0 {
		return nil, errors.New("empty")
	}
	return s.saved[len(s.saved)-1], nil
}

func (s *memorySink) Get(_ context.Context, id string) (*model.Report, error) {
	for _, r := range s.saved {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, errors.New("not found")
}

func (s *memorySink) Close() error { return nil }

func testRequest() model.AnalysisRequest {
	return model.AnalysisRequest{
		Criteria: []model.Criterion{
			{ID: "naming", Text: "Use clear names", Order: 1, Active: true},
			{ID: "errors", Text: "Handle errors explicitly", Order: 2, Active: true},
		},
		SourceFiles: []model.SourceFile{
			{Path: "main.go", Content: "package main\n"},
			{Path: "util.go", Content: "package main\n"},
		},
		Temperature:     0.2,
		MaxOutputTokens: 4096,
	}
}

const markerResponse = `### Criterion 1: Use clear names
Names are descriptive.
<<<END_OF_CRITERION>>>
### Criterion 2: Handle errors explicitly
Two ignored errors in util.go.
<<<END_OF_CRITERION>>>
<<<END_OF_ANALYSIS>>>
trailing chatter`

func fixedClock() func() time.Time {
	t := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(1500 * time.Millisecond)
		return t
	}
}

func TestAnalyze(t *testing.T) {
	d := &fakeDispatcher{result: model.DispatchResult{
		RawText:   markerResponse,
		ModelUsed: "gemini-2.5-pro",
		Usage:     model.Usage{PromptTokens: 100, OutputTokens: 40, TotalTokens: 140},
	}}
	sink := &memorySink{}
	p := New(d, sink, WithClock(fixedClock()))

	report, err := p.Analyze(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	want := []model.ReconciledResult{
		{CriterionID: "naming", CanonicalName: "Use clear names", Content: "Names are descriptive."},
		{CriterionID: "errors", CanonicalName: "Handle errors explicitly", Content: "Two ignored errors in util.go."},
	}
	if diff := cmp.Diff(want, report.Results); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}

	if report.ID == "" {
		t.Error("expected a report ID")
	}
	if report.ModelUsed != "gemini-2.5-pro" {
		t.Errorf("ModelUsed = %q", report.ModelUsed)
	}
	if report.Duration != "1.5s" {
		t.Errorf("Duration = %q, want 1.5s", report.Duration)
	}
	if report.CriteriaCount != 2 {
		t.Errorf("CriteriaCount = %d, want 2", report.CriteriaCount)
	}
	if diff := cmp.Diff([]string{"main.go", "util.go"}, report.Files); diff != "" {
		t.Errorf("files mismatch:\n%s", diff)
	}
	if report.Strategy != "markers" {
		t.Errorf("Strategy = %q, want markers", report.Strategy)
	}
	if strings.Contains(report.ProcessedResponse, "trailing chatter") {
		t.Error("processed response should be truncated at the end-of-analysis marker")
	}
	if report.RawResponse != markerResponse {
		t.Error("raw response should be kept untouched")
	}

	if len(d.got) != 1 {
		t.Fatalf("expected 1 dispatch, got %d", len(d.got))
	}
	req := d.got[0]
	if req.Temperature != 0.2 || req.MaxOutputTokens != 4096 {
		t.Errorf("generation parameters not forwarded: %+v", req)
	}
	if req.Prompt != report.Prompt {
		t.Error("report prompt should be the dispatched prompt")
	}
	if !strings.Contains(req.Prompt, "=== FILE: main.go") {
		t.Error("prompt should include the source files")
	}

	if len(sink.saved) != 1 || sink.saved[0] != report {
		t.Error("report should be saved exactly once")
	}
}

func TestAnalyzeUsesTemplate(t *testing.T) {
	d := &fakeDispatcher{result: model.DispatchResult{RawText: markerResponse, ModelUsed: "m"}}
	req := testRequest()
	req.BasePromptTemplate = "Review strictly.\n" + prompt.CriteriaDelimiter + "\n" + prompt.SourcePlaceholder

	if _, err := New(d, nil).Analyze(context.Background(), req); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if !strings.HasPrefix(d.got[0].Prompt, "Review strictly.") {
		t.Errorf("prompt should start with the template, got %q", d.got[0].Prompt[:40])
	}
}

func TestAnalyzeNoCriteria(t *testing.T) {
	d := &fakeDispatcher{}
	req := testRequest()
	req.Criteria = nil

	_, err := New(d, nil).Analyze(context.Background(), req)
	if !errors.Is(err, ErrNoCriteria) {
		t.Fatalf("expected ErrNoCriteria, got %v", err)
	}
	if len(d.got) != 0 {
		t.Error("nothing should be dispatched without criteria")
	}
}

func TestAnalyzeDispatchFailure(t *testing.T) {
	d := &fakeDispatcher{err: dispatch.ErrServiceUnavailable}
	sink := &memorySink{}

	report, err := New(d, sink).Analyze(context.Background(), testRequest())
	if !errors.Is(err, dispatch.ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
	if report != nil {
		t.Error("no report on dispatch failure")
	}
	if len(sink.saved) != 0 {
		t.Error("nothing should be saved on dispatch failure")
	}
}

func TestAnalyzeUnparseableResponse(t *testing.T) {
	d := &fakeDispatcher{result: model.DispatchResult{RawText: "I cannot help with that.", ModelUsed: "m"}}
	sink := &memorySink{}

	report, err := New(d, sink).Analyze(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if report.Matched() {
		t.Errorf("expected no results, got %+v", report.Results)
	}
	if report.Strategy != "" {
		t.Errorf("Strategy = %q, want empty", report.Strategy)
	}
	if report.RawResponse != "I cannot help with that." {
		t.Error("raw response must be kept for inspection")
	}
	if len(sink.saved) != 1 {
		t.Error("unparseable reports are still saved")
	}
}

func TestAnalyzeSaveFailureReturnsReport(t *testing.T) {
	d := &fakeDispatcher{result: model.DispatchResult{RawText: markerResponse, ModelUsed: "m"}}
	sink := &memorySink{err: errors.New("disk full")}

	report, err := New(d, sink).Analyze(context.Background(), testRequest())
	if err == nil || !strings.Contains(err.Error(), "save report") {
		t.Fatalf("expected save error, got %v", err)
	}
	if report == nil || len(report.Results) != 2 {
		t.Error("report should still be returned when saving fails")
	}
}

func sampleReport() *model.Report {
	return &model.Report{
		ID:            "a1",
		CreatedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Duration:      "2s",
		ModelUsed:     "gemini-2.5-flash",
		CriteriaCount: 2,
		Files:         []string{"main.go"},
		Strategy:      "markers",
		Results: []model.ReconciledResult{
			{CriterionID: "c1", CanonicalName: "Use clear names", Content: "Fine."},
		},
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleReport())

	for _, want := range []string{
		"# Code Analysis Report",
		"| Model | gemini-2.5-flash |",
		"| Criteria | 2 sent, 1 answered |",
		"- `main.go`",
		"### 1. Use clear names\n\nFine.",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}
}

func TestMarkdownUnmatched(t *testing.T) {
	r := sampleReport()
	r.Results = nil
	r.ProcessedResponse = "free-form prose"

	md := Markdown(r)
	if !strings.Contains(md, "## Raw Response") || !strings.Contains(md, "free-form prose") {
		t.Errorf("unmatched report should show the raw response:\n%s", md)
	}
}

func TestRenderReport(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "out", "report.json")
	mdPath := filepath.Join(dir, "out", "report.md")

	var out bytes.Buffer
	r := NewRenderer(&out, true)
	if err := r.RenderReport(sampleReport(), jsonPath, mdPath); err != nil {
		t.Fatalf("RenderReport failed: %v", err)
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("read JSON: %v", err)
	}
	var decoded model.Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if decoded.ID != "a1" || len(decoded.Results) != 1 {
		t.Errorf("unexpected decoded report: %+v", decoded)
	}

	if _, err := os.Stat(mdPath); err != nil {
		t.Errorf("markdown not written: %v", err)
	}

	summary := out.String()
	for _, want := range []string{"✓ Wrote JSON", "✓ Wrote Markdown", "Criteria: 1/2 answered", "- Use clear names"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
}

func TestOneLine(t *testing.T) {
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{"short", 10, "short"},
		{"multi\n  line\ttext", 40, "multi line text"},
		{"abcdefghij", 8, "abcde..."},
		{"Prüfe Fehlerbehandlung überall", 10, "Prüfe F..."},
		{"日本語のテキストです", 6, "日本語..."},
	}
	for _, tt := range tests {
		got := oneLine(tt.in, tt.limit)
		if got != tt.want {
			t.Errorf("oneLine(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("oneLine(%q, %d) produced invalid UTF-8", tt.in, tt.limit)
		}
	}
}
