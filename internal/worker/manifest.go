package worker

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Manifest lists the analyses of one batch run
type Manifest struct {
	// Criteria is the default criteria file for jobs without their own
	Criteria string `yaml:"criteria"`

	// OutputDir receives <name>.json and <name>.md per job; empty skips rendering
	OutputDir string `yaml:"output_dir"`

	Jobs []ManifestJob `yaml:"jobs"`
}

// ManifestJob is one analysis: a set of paths judged against one criteria file
type ManifestJob struct {
	Name     string   `yaml:"name"`
	Paths    []string `yaml:"paths"`
	Criteria string   `yaml:"criteria"`
}

// LoadManifest reads a batch manifest. Relative paths are resolved against
// the manifest's directory.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	m.resolve(filepath.Dir(path))
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that every job is runnable
func (m *Manifest) Validate() error {
	if len(m.Jobs) == 0 {
		return errors.New("manifest has no jobs")
	}

	seen := make(map[string]bool)
	for i, job := range m.Jobs {
		if job.Name == "" {
			return fmt.Errorf("job %d: name is required", i+1)
		}
		if seen[job.Name] {
			return fmt.Errorf("job %q: duplicate name", job.Name)
		}
		seen[job.Name] = true
		if len(job.Paths) == 0 {
			return fmt.Errorf("job %q: at least one path is required", job.Name)
		}
		if job.Criteria == "" && m.Criteria == "" {
			return fmt.Errorf("job %q: no criteria file and no manifest default", job.Name)
		}
	}
	return nil
}

// CriteriaFor returns the criteria file a job uses
func (m *Manifest) CriteriaFor(job ManifestJob) string {
	if job.Criteria != "" {
		return job.Criteria
	}
	return m.Criteria
}

func (m *Manifest) resolve(base string) {
	m.Criteria = join(base, m.Criteria)
	m.OutputDir = join(base, m.OutputDir)
	for i := range m.Jobs {
		m.Jobs[i].Criteria = join(base, m.Jobs[i].Criteria)
		for j := range m.Jobs[i].Paths {
			m.Jobs[i].Paths[j] = join(base, m.Jobs[i].Paths[j])
		}
	}
}

func join(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
