// Package reconcile binds extracted fragments back to the caller's criteria.
package reconcile

import (
	"regexp"
	"strings"

	"github.com/ppiankov/codecritic/internal/extract"
	"github.com/ppiankov/codecritic/internal/model"
)

// UnmatchedLabel names a fragment that could not be bound to any criterion
const UnmatchedLabel = "criterion analyzed"

// Rule identifies which resolution step bound a fragment
type Rule string

const (
	RulePositional Rule = "positional"
	RuleExact      Rule = "exact"
	RuleFuzzy      Rule = "fuzzy"
	RuleFallback   Rule = "fallback"
	RuleUnmatched  Rule = "unmatched"
)

// Binding records how one fragment was resolved
type Binding struct {
	SlotKey string
	Rule    Rule
	Index   int // criterion index, -1 when unmatched
}

// Reconcile returns one result per bound criterion, in fragment slot order.
// The canonical name is always the criterion's own text.
func Reconcile(fragments map[string]model.ExtractedFragment, criteria []model.Criterion) []model.ReconciledResult {
	results, _ := ReconcileWithBindings(fragments, criteria)
	return results
}

// ReconcileWithBindings also reports the rule used for each fragment
func ReconcileWithBindings(fragments map[string]model.ExtractedFragment, criteria []model.Criterion) ([]model.ReconciledResult, []Binding) {
	bound := make([]bool, len(criteria))
	emitted := make(map[string]bool, len(criteria))

	results := make([]model.ReconciledResult, 0, len(criteria))
	bindings := make([]Binding, 0, len(fragments))

	for _, key := range extract.SortedSlots(fragments) {
		frag := fragments[key]
		idx, rule := resolve(key, frag, criteria, bound)
		bindings = append(bindings, Binding{SlotKey: key, Rule: rule, Index: idx})

		var result model.ReconciledResult
		if idx >= 0 {
			bound[idx] = true
			result = model.ReconciledResult{
				CriterionID:   criteria[idx].ID,
				CanonicalName: criteria[idx].Text,
				Content:       frag.Content,
			}
		} else {
			result = model.ReconciledResult{CanonicalName: UnmatchedLabel, Content: frag.Content}
		}

		if emitted[result.CanonicalName] || len(results) == len(criteria) {
			continue
		}
		emitted[result.CanonicalName] = true
		results = append(results, result)
	}

	return results, bindings
}

// resolve applies the rules in order and stops at the first that matches
func resolve(key string, frag model.ExtractedFragment, criteria []model.Criterion, bound []bool) (int, Rule) {
	if n, ok := extract.SlotIndex(key); ok && n <= len(criteria) && !bound[n-1] {
		return n - 1, RulePositional
	}

	name := normalize(frag.ClaimedName)
	if name != "" {
		for i, c := range criteria {
			if name == normalize(c.Text) {
				return i, RuleExact
			}
		}
		for i, c := range criteria {
			if fuzzyMatch(name, normalize(c.Text)) {
				return i, RuleFuzzy
			}
		}
	}

	for i := range criteria {
		if !bound[i] {
			return i, RuleFallback
		}
	}

	return -1, RuleUnmatched
}

var criterionPrefix = regexp.MustCompile(`(?i)^(?:criterion|criteria)\s*\d+\s*[:.)\-]\s*`)

// normalize lowercases a name and strips a "Criterion N:" prefix
func normalize(name string) string {
	name = strings.TrimSpace(name)
	name = criterionPrefix.ReplaceAllString(name, "")
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// fuzzyMatch reports containment either way, or equal text before the first colon
func fuzzyMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	headA, _, okA := strings.Cut(a, ":")
	headB, _, okB := strings.Cut(b, ":")
	if !okA && !okB {
		return false
	}
	headA, headB = strings.TrimSpace(headA), strings.TrimSpace(headB)
	return headA != "" && headA == headB
}
