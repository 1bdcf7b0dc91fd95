package corpus

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/codecritic/internal/model"
)

// criteriaFile is the on-disk criteria format
type criteriaFile struct {
	// Template is the base prompt; empty uses the built-in template
	Template string          `yaml:"template"`
	Criteria []criterionYAML `yaml:"criteria"`
}

// criterionYAML distinguishes an omitted "active" key, which means active
type criterionYAML struct {
	ID     string `yaml:"id"`
	Text   string `yaml:"text"`
	Order  int    `yaml:"order"`
	Active *bool  `yaml:"active"`
}

// LoadCriteria reads a criteria YAML file and returns the template and the
// active criteria ordered by Order (file order breaks ties)
func LoadCriteria(path string) (string, []model.Criterion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("read criteria file: %w", err)
	}
	return ParseCriteria(data)
}

// ParseCriteria is LoadCriteria over bytes
func ParseCriteria(data []byte) (string, []model.Criterion, error) {
	var set criteriaFile
	if err := yaml.Unmarshal(data, &set); err != nil {
		return "", nil, fmt.Errorf("parse criteria: %w", err)
	}

	active := make([]model.Criterion, 0, len(set.Criteria))
	seen := make(map[string]bool, len(set.Criteria))
	for i, raw := range set.Criteria {
		c := model.Criterion{
			ID:     raw.ID,
			Text:   strings.TrimSpace(raw.Text),
			Order:  raw.Order,
			Active: raw.Active == nil || *raw.Active,
		}
		if c.Text == "" {
			return "", nil, fmt.Errorf("criterion %d has no text", i+1)
		}
		if c.ID == "" {
			c.ID = fmt.Sprintf("c%d", i+1)
		}
		if seen[c.ID] {
			return "", nil, fmt.Errorf("duplicate criterion id %q", c.ID)
		}
		seen[c.ID] = true
		if c.Active {
			active = append(active, c)
		}
	}

	if len(active) == 0 {
		return "", nil, errors.New("criteria file has no active criteria")
	}

	slices.SortStableFunc(active, func(a, b model.Criterion) int {
		return a.Order - b.Order
	})
	return set.Template, active, nil
}
