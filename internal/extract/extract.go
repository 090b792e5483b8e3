// Package extract pulls candidate field values out of a pasted AI response.
//
// Matching is keyword-triggered and approximate. The output is only meant to
// pre-populate a form for human review, never to be persisted as-is.
package extract

import (
	"regexp"
	"sort"
	"strings"
)

// Extraction maps target field ids to the sentences found for them.
type Extraction map[string]string

// Fields returns the extracted field ids in ascending order.
func (e Extraction) Fields() []string {
	ids := make([]string, 0, len(e))
	for id := range e {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Rule is the keyword set for one target field. Fallback is only consulted
// when no sentence matches Primary.
type Rule struct {
	Field    string
	Primary  []string
	Fallback []string
}

// DefaultRules are the built-in rules for the discovery follow-up fields.
var DefaultRules = []Rule{
	{
		Field:    "stakeholders",
		Primary:  []string{"stakeholder", "sponsor", "decision maker", "owner"},
		Fallback: []string{"team", "manager", "user", "customer", "lead"},
	},
	{
		Field:    "painPoints",
		Primary:  []string{"pain point", "pain", "problem", "frustrat", "bottleneck"},
		Fallback: []string{"issue", "challenge", "difficult", "slow", "manual"},
	},
	{
		Field:    "successMetrics",
		Primary:  []string{"success metric", "kpi", "metric", "measure"},
		Fallback: []string{"success", "target", "goal", "improve", "reduce", "increase"},
	},
	{
		Field:    "techConstraints",
		Primary:  []string{"constraint", "legacy", "integration", "compliance"},
		Fallback: []string{"system", "platform", "technology", "api", "security"},
	},
	{
		Field:    "timeline",
		Primary:  []string{"timeline", "deadline", "milestone", "launch"},
		Fallback: []string{"week", "month", "quarter", "q1", "q2", "q3", "q4", "date"},
	},
	{
		Field:    "budget",
		Primary:  []string{"budget", "cost", "funding"},
		Fallback: []string{"$", "€", "£", "spend", "price", "investment"},
	},
	{
		Field:    "changeReadiness",
		Primary:  []string{"change readiness", "readiness", "resistance", "adoption"},
		Fallback: []string{"training", "change management", "buy-in", "culture"},
	},
}

var sentenceSplit = regexp.MustCompile(`[.!?]+\s+|[.!?]+$|\n+`)

// Sentences splits text on sentence terminators and newlines, dropping blanks.
func Sentences(text string) []string {
	var out []string
	for _, s := range sentenceSplit.Split(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Extractor applies a fixed rule set.
type Extractor struct {
	rules []compiledRule
}

type compiledRule struct {
	field    string
	primary  *regexp.Regexp
	fallback *regexp.Regexp
}

// New compiles rules into an Extractor.
func New(rules []Rule) *Extractor {
	e := &Extractor{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		e.rules = append(e.rules, compiledRule{
			field:    r.Field,
			primary:  keywordPattern(r.Primary),
			fallback: keywordPattern(r.Fallback),
		})
	}
	return e
}

// keywordPattern matches any keyword at the start of a word, case-insensitively.
// Keywords that begin with a symbol match anywhere.
func keywordPattern(keywords []string) *regexp.Regexp {
	if len(keywords) == 0 {
		return nil
	}
	alts := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		q := regexp.QuoteMeta(strings.ToLower(kw))
		if isWordStart(kw) {
			q = `\b` + q
		}
		alts = append(alts, q)
	}
	return regexp.MustCompile(`(?i)(?:` + strings.Join(alts, "|") + `)`)
}

func isWordStart(kw string) bool {
	if kw == "" {
		return false
	}
	c := kw[0]
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

var defaultExtractor = New(DefaultRules)

// Extract runs the default rules over text.
func Extract(text string) Extraction {
	return defaultExtractor.Extract(text)
}

// Extract returns, per field, every matching sentence in source order,
// each terminated with a period and joined by a single space. Fields with
// no match are omitted.
func (e *Extractor) Extract(text string) Extraction {
	sentences := Sentences(text)
	out := make(Extraction)
	for _, r := range e.rules {
		matches := collect(sentences, r.primary)
		if len(matches) == 0 {
			matches = collect(sentences, r.fallback)
		}
		if len(matches) > 0 {
			out[r.field] = strings.Join(matches, " ")
		}
	}
	return out
}

func collect(sentences []string, re *regexp.Regexp) []string {
	if re == nil {
		return nil
	}
	var out []string
	for _, s := range sentences {
		if re.MatchString(s) {
			out = append(out, s+".")
		}
	}
	return out
}
