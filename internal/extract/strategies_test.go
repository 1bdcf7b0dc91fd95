package extract

import (
	"testing"
)

func TestStrategies_NoMatch(t *testing.T) {
	for _, s := range DefaultStrategies() {
		if fragments, ok := s.Extract("plain text\nwith lines\n"); ok || len(fragments) != 0 {
			t.Errorf("%s: expected no match, got %v", s.Name(), fragments)
		}
	}
}

func TestNumberedHeading_Variants(t *testing.T) {
	tests := []struct {
		line string
		name string
	}{
		{"### Criterion 1: Naming", "Naming"},
		{"## criterion 1 - Naming", "Naming"},
		{"#### Criteria 1) Naming ###", "Naming"},
		{"### **Criterion 1. Naming**", "Naming"},
	}
	for _, tt := range tests {
		fragments, ok := NumberedHeading().Extract(tt.line + "\nbody")
		if !ok {
			t.Errorf("%q: no match", tt.line)
			continue
		}
		if got := fragments["criteria_1"].ClaimedName; got != tt.name {
			t.Errorf("%q: name = %q, want %q", tt.line, got, tt.name)
		}
	}
}

func TestNumberedHeading_DuplicateNumbersGetFreeSlots(t *testing.T) {
	raw := "### Criterion 1: A\nx\n### Criterion 1: B\ny\n"
	fragments, ok := NumberedHeading().Extract(raw)
	if !ok {
		t.Fatal("expected match")
	}
	if fragments["criteria_1"].ClaimedName != "A" || fragments["criteria_2"].ClaimedName != "B" {
		t.Errorf("unexpected slots: %v", fragments)
	}
}

func TestCleanName(t *testing.T) {
	tests := map[string]string{
		"### Naming ###":   "Naming",
		"**Naming:**":      "Naming",
		"**Naming**:":      "Naming",
		"  `Naming`  ":     "Naming",
		"Criterion 2: Foo": "Criterion 2: Foo",
	}
	for in, want := range tests {
		if got := cleanName(in); got != want {
			t.Errorf("cleanName(%q) = %q, want %q", in, got, want)
		}
	}
}
