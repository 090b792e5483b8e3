package mapper

import (
	"regexp"
	"strings"
	"unicode"
)

// Option match scores. Exact matches always beat partial ones.
const (
	scoreExact    = 100
	scoreContains = 50
	scoreToken    = 10
)

// BestOption picks the option that best matches candidate text.
// The candidate is compared as a whole and item by item (it may be a
// delimited list). An exact case-insensitive match scores highest, then
// one side's words all appearing in the other, then shared words.
// Ties go to the earliest option. It returns false when nothing scores.
func BestOption(options []string, candidate string) (string, bool) {
	items := append([]string{strings.TrimSpace(candidate)}, SplitList(candidate)...)

	best, bestScore := "", 0
	for _, opt := range options {
		if s := optionScore(opt, items); s > bestScore {
			best, bestScore = opt, s
		}
	}
	return best, bestScore > 0
}

func optionScore(option string, items []string) int {
	opt := strings.ToLower(strings.TrimSpace(option))
	if opt == "" {
		return 0
	}
	optTokens := tokens(opt)

	best := 0
	for _, raw := range items {
		item := strings.ToLower(raw)
		if item == "" {
			continue
		}
		itemTokens := tokens(item)
		shared := overlap(optTokens, itemTokens)
		var s int
		switch {
		case item == opt:
			s = scoreExact
		case shared > 0 && (shared == len(optTokens) || shared == len(itemTokens)):
			s = scoreContains
		default:
			s = scoreToken * shared
		}
		if s > best {
			best = s
		}
	}
	return best
}

func tokens(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, t := range strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		out[t] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	n := 0
	for t := range a {
		if _, ok := b[t]; ok {
			n++
		}
	}
	return n
}

// labelFamily ties label keywords to the stored paths that can fill them.
// Keywords match at the start of a word, so "name" does not hit "Username".
type labelFamily struct {
	pattern *regexp.Regexp
	paths   []string
	useName bool
}

func family(keywords []string, paths []string, useName bool) labelFamily {
	alts := make([]string, len(keywords))
	for i, kw := range keywords {
		alts[i] = regexp.QuoteMeta(kw)
	}
	return labelFamily{
		pattern: regexp.MustCompile(`(?i)\b(?:` + strings.Join(alts, "|") + `)`),
		paths:   paths,
		useName: useName,
	}
}

var labelFamilies = []labelFamily{
	family([]string{"name", "title"}, []string{"general.name"}, true),
	family([]string{"stakeholder"}, []string{"general.stakeholders"}, false),
	family([]string{"goal", "objective", "success"}, []string{"general.goals"}, false),
	family([]string{"requirement"}, []string{"general.requirements"}, false),
	family([]string{"pain", "issue"}, []string{"general.issues"}, false),
	family([]string{"role", "team"}, []string{"general.roles", "general.teamMembers"}, false),
	family([]string{"acceptance", "criteria"}, []string{"general.acStyle"}, false),
}

func (f labelFamily) matches(label string) bool {
	return f.pattern.MatchString(label)
}

type source struct {
	record  *Record
	details string
}

// lookup returns the first value the family can draw from src.
func (f labelFamily) lookup(src source) string {
	for _, p := range f.paths {
		if v := strings.TrimSpace(Lookup(src.details, p)); v != "" {
			return v
		}
	}
	if f.useName && src.record != nil {
		return strings.TrimSpace(src.record.Name)
	}
	return ""
}

// heuristicValue finds data for a field by inspecting its label.
// Feature data is preferred unless the label mentions the project.
func heuristicValue(label string, feature, project source) string {
	label = strings.ToLower(label)
	order := []source{feature, project}
	if strings.Contains(label, "project") && !strings.Contains(label, "feature") {
		order = []source{project, feature}
	}

	for _, fam := range labelFamilies {
		if !fam.matches(label) {
			continue
		}
		for _, src := range order {
			if src.record == nil {
				continue
			}
			if v := fam.lookup(src); v != "" {
				return v
			}
		}
	}
	return ""
}
