package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/codecritic/internal/model"
)

// Strategy finds criterion sections in text that carries no criterion markers.
// Extract returns false when the strategy found nothing.
type Strategy interface {
	Name() string
	Extract(text string) (map[string]model.ExtractedFragment, bool)
}

// DefaultStrategies returns the fallback cascade, most precise first
func DefaultStrategies() []Strategy {
	return []Strategy{
		NumberedHeading(),
		Heading(),
		BoldHeading(),
	}
}

// section is one heading and the text up to the next heading
type section struct {
	number int // 0 when the heading carries no number
	name   string
	body   string
}

// headingStrategy splits text at every line matched by pattern.
// pattern must define the named groups "name" and optionally "num" and "level".
type headingStrategy struct {
	name         string
	pattern      *regexp.Regexp
	dominantOnly bool // keep only the most frequent heading level
}

var (
	numberedHeadingPattern = regexp.MustCompile(`(?im)^[ \t]*#{1,6}[ \t]*(?:\*\*)?(?:criterion|criteria)[ \t]*(?P<num>\d+)[ \t]*[:.)\-][ \t]*(?P<name>.+?)(?:\*\*)?[ \t#]*$`)
	headingPattern         = regexp.MustCompile(`(?m)^[ \t]*(?P<level>#{1,6})[ \t]*(?:(?P<num>\d+)[.)][ \t]*)?(?P<name>[^#\n]+?)[ \t#]*$`)
	boldHeadingPattern     = regexp.MustCompile(`(?m)^[ \t]*\*\*(?:(?P<num>\d+)[.)][ \t]*)?(?P<name>[^*\n]+?)[ \t]*:?\*\*:?[ \t]*$`)
)

// NumberedHeading matches "### Criterion 2: Name"
func NumberedHeading() Strategy {
	return &headingStrategy{name: "numbered_heading", pattern: numberedHeadingPattern}
}

// Heading matches markdown headings with an optional "2." number
func Heading() Strategy {
	return &headingStrategy{name: "heading", pattern: headingPattern, dominantOnly: true}
}

// BoldHeading matches a line that is only bold text, e.g. "**Error handling**"
func BoldHeading() Strategy {
	return &headingStrategy{name: "bold_heading", pattern: boldHeadingPattern}
}

func (s *headingStrategy) Name() string {
	return s.name
}

func (s *headingStrategy) Extract(text string) (map[string]model.ExtractedFragment, bool) {
	matches := s.pattern.FindAllStringSubmatchIndex(text, -1)
	if s.dominantOnly {
		matches = s.dominantLevel(text, matches)
	}
	if len(matches) == 0 {
		return nil, false
	}

	numIdx := s.pattern.SubexpIndex("num")
	nameIdx := s.pattern.SubexpIndex("name")

	sections := make([]section, 0, len(matches))
	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}

		sec := section{
			name: cleanName(group(text, m, nameIdx)),
			body: strings.TrimSpace(text[m[1]:end]),
		}
		if n, err := strconv.Atoi(group(text, m, numIdx)); err == nil {
			sec.number = n
		}
		if sec.name == "" {
			continue
		}
		sections = append(sections, sec)
	}

	fragments := fromSections(dedupe(sections))
	return fragments, len(fragments) > 0
}

// dominantLevel keeps headings of the level that occurs most often.
// Ties go to the deeper level, which is where per-criterion sections live
// under a document title.
func (s *headingStrategy) dominantLevel(text string, matches [][]int) [][]int {
	levelIdx := s.pattern.SubexpIndex("level")
	if levelIdx < 0 || len(matches) == 0 {
		return matches
	}

	counts := make(map[int]int)
	for _, m := range matches {
		counts[len(group(text, m, levelIdx))]++
	}
	best := 0
	for level, n := range counts {
		if n > counts[best] || (n == counts[best] && level > best) {
			best = level
		}
	}

	kept := matches[:0:0]
	for _, m := range matches {
		if len(group(text, m, levelIdx)) == best {
			kept = append(kept, m)
		}
	}
	return kept
}

// dedupe drops sections whose name was already seen; first occurrence wins
func dedupe(sections []section) []section {
	seen := make(map[string]bool, len(sections))
	out := sections[:0:0]
	for _, sec := range sections {
		if seen[sec.name] {
			continue
		}
		seen[sec.name] = true
		out = append(out, sec)
	}
	return out
}

// fromSections assigns slot keys. A heading's own number is used when it is
// free; otherwise the section takes the lowest free ordinal.
func fromSections(sections []section) map[string]model.ExtractedFragment {
	if len(sections) > MaxFragments {
		sections = sections[:MaxFragments]
	}

	taken := make(map[int]bool, len(sections))
	slots := make([]int, len(sections))
	for i, sec := range sections {
		if sec.number > 0 && sec.number <= MaxFragments && !taken[sec.number] {
			slots[i] = sec.number
			taken[sec.number] = true
		}
	}
	next := 1
	for i := range sections {
		if slots[i] != 0 {
			continue
		}
		for taken[next] {
			next++
		}
		slots[i] = next
		taken[next] = true
	}

	fragments := make(map[string]model.ExtractedFragment, len(sections))
	for i, sec := range sections {
		key := SlotKey(slots[i])
		fragments[key] = model.ExtractedFragment{
			SlotKey:     key,
			ClaimedName: sec.name,
			Content:     sec.body,
		}
	}
	return fragments
}

func group(text string, m []int, idx int) string {
	if idx < 0 || 2*idx+1 >= len(m) || m[2*idx] < 0 {
		return ""
	}
	return text[m[2*idx]:m[2*idx+1]]
}
