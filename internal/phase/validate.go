package phase

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/josephgoksu/PhaseWing/internal/mapper"
)

// FieldError is one offending field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Phase  string       `json:"phase"`
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	return fmt.Sprintf("invalid %s submission: %s", e.Phase, strings.Join(msgs, "; "))
}

// Validate checks required fields and select options. Values for fields the
// phase does not declare are ignored.
func (p *Phase) Validate(values map[string]string) error {
	var errs []FieldError
	for _, f := range p.Fields {
		v := strings.TrimSpace(values[f.ID])
		if v == "" {
			if f.Required {
				errs = append(errs, FieldError{Field: f.ID, Message: f.Label + " is required"})
			}
			continue
		}
		if f.Kind == mapper.KindSelect && len(f.Options) > 0 && !slices.Contains(f.Options, v) {
			errs = append(errs, FieldError{
				Field:   f.ID,
				Message: fmt.Sprintf("must be one of %s", strings.Join(f.Options, ", ")),
			})
		}
	}
	if len(errs) == 0 {
		return nil
	}
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
	return &ValidationError{Phase: p.Key, Fields: errs}
}

// check reports definition problems in a phase loaded from YAML.
func (p *Phase) check() error {
	if strings.TrimSpace(p.Key) == "" {
		return fmt.Errorf("phase key is required")
	}
	if strings.TrimSpace(p.Template) == "" {
		return fmt.Errorf("phase %s: template is required", p.Key)
	}
	seen := make(map[string]struct{}, len(p.Fields))
	for _, f := range p.Fields {
		if f.ID == "" {
			return fmt.Errorf("phase %s: field id is required", p.Key)
		}
		if _, dup := seen[f.ID]; dup {
			return fmt.Errorf("phase %s: duplicate field %q", p.Key, f.ID)
		}
		seen[f.ID] = struct{}{}
		switch f.Kind {
		case mapper.KindText, mapper.KindTextarea, mapper.KindDate, mapper.KindNumber:
		case mapper.KindSelect:
			if len(f.Options) == 0 {
				return fmt.Errorf("phase %s: select field %q has no options", p.Key, f.ID)
			}
		default:
			return fmt.Errorf("phase %s: field %q has unknown kind %q", p.Key, f.ID, f.Kind)
		}
		if f.Semantic != nil && (!f.Semantic.Entity.Valid() || f.Semantic.Path == "") {
			return fmt.Errorf("phase %s: field %q has an invalid semantic hint", p.Key, f.ID)
		}
	}
	if _, err := p.parse(); err != nil {
		return fmt.Errorf("phase %s: %w", p.Key, err)
	}
	return nil
}
