package phase

import (
	"fmt"
	"strings"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/josephgoksu/PhaseWing/internal/mapper"
)

const emptyListItem = "- (none provided)"

var titleCaser = cases.Title(language.English)

var funcs = template.FuncMap{
	"default": func(fallback, value string) string {
		if strings.TrimSpace(value) == "" {
			return fallback
		}
		return value
	},
	"list": func(value string) string {
		items := mapper.SplitList(value)
		if len(items) == 0 {
			return emptyListItem
		}
		lines := make([]string, len(items))
		for i, item := range items {
			lines[i] = "- " + item
		}
		return strings.Join(lines, "\n")
	},
	"title": func(s string) string { return titleCaser.String(s) },
	"lower": strings.ToLower,
}

func (p *Phase) parse() (*template.Template, error) {
	t, err := template.New(p.Key).Funcs(funcs).Option("missingkey=zero").Parse(p.Template)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	return t, nil
}

// Render executes the phase template over the submitted values. Absent
// keys render as empty strings. Trailing whitespace is trimmed.
func (p *Phase) Render(values map[string]string) (string, error) {
	t, err := p.parse()
	if err != nil {
		return "", err
	}
	if values == nil {
		values = map[string]string{}
	}
	var b strings.Builder
	if err := t.Execute(&b, values); err != nil {
		return "", fmt.Errorf("render %s: %w", p.Key, err)
	}
	return strings.TrimSpace(b.String()) + "\n", nil
}
