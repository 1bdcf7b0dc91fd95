package worker

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "batch.yaml")
	writeFile(t, path, `
criteria: rules/default.yaml
output_dir: out
jobs:
  - name: api
    paths: [services/api, /abs/shared]
  - name: web
    paths: [web]
    criteria: rules/frontend.yaml
`)

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest failed: %v", err)
	}

	if m.Criteria != filepath.Join(dir, "rules/default.yaml") {
		t.Errorf("criteria not resolved: %s", m.Criteria)
	}
	if m.OutputDir != filepath.Join(dir, "out") {
		t.Errorf("output dir not resolved: %s", m.OutputDir)
	}
	if got := m.Jobs[0].Paths; got[0] != filepath.Join(dir, "services/api") || got[1] != "/abs/shared" {
		t.Errorf("unexpected paths: %v", got)
	}
	if got := m.CriteriaFor(m.Jobs[0]); got != m.Criteria {
		t.Errorf("api should use the default criteria, got %s", got)
	}
	if got := m.CriteriaFor(m.Jobs[1]); got != filepath.Join(dir, "rules/frontend.yaml") {
		t.Errorf("web should use its own criteria, got %s", got)
	}
}

func TestManifestValidate(t *testing.T) {
	tests := []struct {
		name    string
		m       Manifest
		wantErr string
	}{
		{"no jobs", Manifest{}, "no jobs"},
		{"missing name", Manifest{Criteria: "c", Jobs: []ManifestJob{{Paths: []string{"."}}}}, "name is required"},
		{"duplicate", Manifest{Criteria: "c", Jobs: []ManifestJob{
			{Name: "a", Paths: []string{"."}},
			{Name: "a", Paths: []string{"."}},
		}}, "duplicate"},
		{"no paths", Manifest{Criteria: "c", Jobs: []ManifestJob{{Name: "a"}}}, "at least one path"},
		{"no criteria", Manifest{Jobs: []ManifestJob{{Name: "a", Paths: []string{"."}}}}, "no criteria"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadManifestErrors(t *testing.T) {
	if _, err := LoadManifest(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("jobs: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadManifest(path); err == nil {
		t.Error("expected parse error")
	}
}
