package prompt

import (
	"fmt"
	"strings"

	"github.com/ppiankov/codecritic/internal/model"
)

// Tokens recognized in a base prompt template
const (
	// CriteriaDelimiter is replaced by the numbered criteria list
	CriteriaDelimiter = "{{CRITERIA}}"

	// SourcePlaceholder is replaced by the labeled source files
	SourcePlaceholder = "{{SOURCE_CODE}}"
)

// DefaultTemplate is used when the criteria store provides no template
const DefaultTemplate = `You are a senior code reviewer. Evaluate the source code below against each
criterion. For every criterion, state whether the code satisfies it, cite the
relevant files, and give concrete suggestions.

Criteria:
{{CRITERIA}}

Source code:
{{SOURCE_CODE}}
`

// Assemble merges a base template, the ordered criteria and the source files
// into the prompt sent to the model. It never fails: a template without
// placeholders still yields a well-formed prompt.
func Assemble(template string, criteria []model.Criterion, files []model.SourceFile) model.AssembledPrompt {
	if strings.TrimSpace(template) == "" {
		template = DefaultTemplate
	}

	list := RenderCriteria(criteria)
	text := template
	if strings.Contains(text, CriteriaDelimiter) {
		text = strings.Replace(text, CriteriaDelimiter, list, 1)
	} else {
		text = strings.TrimRight(text, "\n") + "\n\n## Criteria to evaluate\n\n" + list + "\n"
	}

	source := RenderSources(files)
	if strings.Contains(text, SourcePlaceholder) {
		text = strings.Replace(text, SourcePlaceholder, source, 1)
	} else {
		text = strings.TrimRight(text, "\n") + "\n\n## Source code\n\n" + source
	}

	text = strings.TrimRight(text, "\n") + "\n\n" + responseFormat(len(criteria))

	return model.AssembledPrompt{Text: text}
}

// RenderCriteria renders criteria as a 1-based numbered list, one per line
func RenderCriteria(criteria []model.Criterion) string {
	var b strings.Builder
	for i, c := range criteria {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. %s", i+1, oneLine(c.Text))
	}
	return b.String()
}

// RenderSources concatenates files in caller order, each wrapped in a header
// block with its path, byte length and type label.
func RenderSources(files []model.SourceFile) string {
	var b strings.Builder
	for _, f := range files {
		fmt.Fprintf(&b, "=== FILE: %s (%d bytes, %s) ===\n", f.Path, len(f.Content), TypeLabel(f.Path))
		b.WriteString(f.Content)
		if !strings.HasSuffix(f.Content, "\n") {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "=== END FILE: %s ===\n\n", f.Path)
	}
	return b.String()
}

// responseFormat asks the model for the section layout the extractor parses.
// Only "-" bullets here: numbered lines would be mistaken for criteria.
func responseFormat(n int) string {
	var b strings.Builder
	b.WriteString("## Response format\n\n")
	fmt.Fprintf(&b, "- Answer every one of the %d criteria, in the order listed.\n", n)
	b.WriteString("- Start each section with a heading line of the form: ### Criterion N: <criterion text>\n")
	fmt.Fprintf(&b, "- End each section with the line %s\n", model.EndOfCriterionMarker)
	fmt.Fprintf(&b, "- After the last section write %s and nothing else.\n", model.EndOfAnalysisMarker)
	return b.String()
}

// oneLine collapses newlines so a criterion stays a single list entry
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
