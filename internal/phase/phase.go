// Package phase defines the analysis phases: their forms, semantic hints and
// prompt templates. Built-in phases ship embedded; operators can override or
// add phases with YAML files.
package phase

import (
	"github.com/josephgoksu/PhaseWing/internal/mapper"
)

// Keys of the built-in phases, in workflow order.
const (
	Discovery      = "discovery"
	Requirements   = "requirements"
	Wireframing    = "wireframing"
	Stories        = "stories"
	Prioritization = "prioritization"
	Testing        = "testing"
	Communication  = "communication"
)

// Semantic is the optional hint routing a field to stored data.
type Semantic struct {
	Entity mapper.Entity `yaml:"entity" json:"entity"`
	Path   string        `yaml:"path" json:"path"`
	Label  string        `yaml:"label,omitempty" json:"label,omitempty"`
	List   bool          `yaml:"list,omitempty" json:"list,omitempty"`
}

// Field is one form input.
type Field struct {
	ID          string           `yaml:"id" json:"id"`
	Label       string           `yaml:"label" json:"label"`
	Kind        mapper.FieldKind `yaml:"kind" json:"kind"`
	Options     []string         `yaml:"options,omitempty" json:"options,omitempty"`
	Placeholder string           `yaml:"placeholder,omitempty" json:"placeholder,omitempty"`
	Required    bool             `yaml:"required,omitempty" json:"required,omitempty"`
	Semantic    *Semantic        `yaml:"semantic,omitempty" json:"semantic,omitempty"`
}

// Phase is a single workflow step.
type Phase struct {
	Key         string  `yaml:"key" json:"key"`
	Title       string  `yaml:"title" json:"title"`
	Description string  `yaml:"description" json:"description"`
	Guidance    string  `yaml:"guidance,omitempty" json:"guidance,omitempty"`
	Fields      []Field `yaml:"fields" json:"fields"`
	Template    string  `yaml:"template" json:"template"`
}

// Field returns the field with id, if the phase has one.
func (p *Phase) Field(id string) (Field, bool) {
	for _, f := range p.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// StaticMap is the semantic table built from the fields' hints.
// The field label is used when the hint carries none.
func (p *Phase) StaticMap() mapper.SemanticMap {
	m := make(mapper.SemanticMap)
	for _, f := range p.Fields {
		if f.Semantic == nil {
			continue
		}
		label := f.Semantic.Label
		if label == "" {
			label = f.Label
		}
		m[f.ID] = mapper.FieldMeta{
			Entity: f.Semantic.Entity,
			Path:   f.Semantic.Path,
			Label:  label,
			IsList: f.Semantic.List,
		}
	}
	return m
}

// Form returns blank mapper fields in declaration order.
func (p *Phase) Form() []mapper.Field {
	out := make([]mapper.Field, 0, len(p.Fields))
	for _, f := range p.Fields {
		out = append(out, mapper.Field{
			ID:      f.ID,
			Label:   f.Label,
			Kind:    f.Kind,
			Options: append([]string(nil), f.Options...),
		})
	}
	return out
}

// FormWith returns the form with values already entered.
func (p *Phase) FormWith(values map[string]string) []mapper.Field {
	form := p.Form()
	for i := range form {
		form[i].Value = values[form[i].ID]
	}
	return form
}
