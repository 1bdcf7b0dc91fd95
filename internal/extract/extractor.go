// Package extract recovers per-criterion sections from raw model output.
package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ppiankov/codecritic/internal/model"
)

// MaxFragments bounds extraction on runaway or malformed text
const MaxFragments = 50

// Strategy names reported in Extraction.Strategy
const (
	StrategyMarkers = "markers"
	StrategyNone    = "none"
)

// Extraction is the result of parsing one response
type Extraction struct {
	// Fragments keyed by slot ("criteria_1", "criteria_2", ...)
	Fragments map[string]model.ExtractedFragment

	// Text is the response truncated at the end-of-analysis marker
	Text string

	// Strategy names the path that produced Fragments
	Strategy string
}

// Slots returns the fragment slot keys in numeric order
func (e Extraction) Slots() []string {
	return SortedSlots(e.Fragments)
}

// Extractor runs the marker fast path, then a cascade of fallback strategies
type Extractor struct {
	strategies []Strategy
}

// New creates an extractor with the given fallback cascade, tried in order
func New(strategies ...Strategy) *Extractor {
	return &Extractor{strategies: strategies}
}

var defaultExtractor = New(DefaultStrategies()...)

// Extract parses raw with the default strategies
func Extract(raw string) Extraction {
	return defaultExtractor.Extract(raw)
}

// Extract parses raw. It never fails: unparseable text yields no fragments.
func (e *Extractor) Extract(raw string) Extraction {
	text := Truncate(raw)

	if strings.Contains(text, model.EndOfCriterionMarker) {
		return Extraction{
			Fragments: splitOnMarkers(text),
			Text:      text,
			Strategy:  StrategyMarkers,
		}
	}

	for _, s := range e.strategies {
		if fragments, ok := s.Extract(text); ok {
			return Extraction{Fragments: fragments, Text: text, Strategy: s.Name()}
		}
	}

	return Extraction{
		Fragments: map[string]model.ExtractedFragment{},
		Text:      text,
		Strategy:  StrategyNone,
	}
}

// Truncate cuts text at the first end-of-analysis marker
func Truncate(raw string) string {
	if i := strings.Index(raw, model.EndOfAnalysisMarker); i >= 0 {
		return strings.TrimRight(raw[:i], " \t\r\n")
	}
	return raw
}

// splitOnMarkers is the fast path: one fragment per non-empty segment
func splitOnMarkers(text string) map[string]model.ExtractedFragment {
	fragments := make(map[string]model.ExtractedFragment)
	slot := 0
	for _, segment := range strings.Split(text, model.EndOfCriterionMarker) {
		if strings.TrimSpace(segment) == "" {
			continue
		}
		if slot == MaxFragments {
			break
		}
		slot++

		name, content := splitHeading(segment)
		key := SlotKey(slot)
		fragments[key] = model.ExtractedFragment{
			SlotKey:     key,
			ClaimedName: name,
			Content:     content,
		}
	}
	return fragments
}

var headingLine = regexp.MustCompile(`^[ \t]*(?:#{1,6}[ \t]*.+|\*\*[^*\n]+\*\*:?|(?i:criterion|criteria)[ \t]*\d+[ \t]*[:.)\-].*)[ \t]*$`)

// splitHeading takes the first heading line of a segment as the name and the
// text after it as content. Preamble before the heading is dropped. A segment
// without a heading has an empty name.
func splitHeading(segment string) (string, string) {
	lines := strings.Split(strings.TrimSpace(segment), "\n")
	for i, line := range lines {
		if headingLine.MatchString(line) {
			content := strings.TrimSpace(strings.Join(lines[i+1:], "\n"))
			return cleanName(line), content
		}
	}
	return "", strings.TrimSpace(segment)
}

// cleanName strips markdown decoration from a heading line
func cleanName(line string) string {
	name := strings.TrimSpace(line)
	name = strings.TrimLeft(name, "# \t")
	name = strings.TrimRight(name, "# \t")
	name = strings.TrimSuffix(name, ":")
	name = strings.Trim(name, "*_` \t")
	name = strings.TrimSuffix(name, ":")
	return strings.TrimSpace(name)
}

const slotPrefix = "criteria_"

// SlotKey formats a 1-based slot index
func SlotKey(n int) string {
	return slotPrefix + strconv.Itoa(n)
}

// SlotIndex parses a slot key; ok is false for keys not produced by SlotKey
func SlotIndex(key string) (int, bool) {
	rest, found := strings.CutPrefix(key, slotPrefix)
	if !found {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// SortedSlots orders fragment keys by slot index; unknown keys sort last by name
func SortedSlots(fragments map[string]model.ExtractedFragment) []string {
	keys := make([]string, 0, len(fragments))
	for k := range fragments {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, aok := SlotIndex(keys[i])
		b, bok := SlotIndex(keys[j])
		switch {
		case aok && bok:
			return a < b
		case aok != bok:
			return aok
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}
