// Package mapper routes submitted form values to project and feature records
// and reverses the process to prefill forms from stored data.
//
// Every function in this package is pure: inputs are never modified and no
// state is kept between calls. Persistence is the caller's job.
package mapper

import (
	"log/slog"
	"sort"
	"strings"
)

// Entity identifies which persisted record a field belongs to.
type Entity string

const (
	EntityProject Entity = "project"
	EntityFeature Entity = "feature"
)

// Valid reports whether e names a known entity.
func (e Entity) Valid() bool {
	return e == EntityProject || e == EntityFeature
}

// FieldMeta describes where a form field's value lives.
type FieldMeta struct {
	Entity Entity `json:"entity" yaml:"entity"`
	Path   string `json:"path" yaml:"path"`
	Label  string `json:"label,omitempty" yaml:"label,omitempty"`
	IsList bool   `json:"isList,omitempty" yaml:"list,omitempty"`
}

// SemanticMap is the field id to FieldMeta routing table for one phase.
type SemanticMap map[string]FieldMeta

// FieldIDs returns the mapped field ids in ascending order.
func (m SemanticMap) FieldIDs() []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FieldHint is a per-field semantic hint supplied by the form renderer.
// It has the same shape as FieldMeta plus the field id it applies to.
type FieldHint struct {
	FieldID string `json:"fieldId"`
	Entity  Entity `json:"entity"`
	Path    string `json:"path"`
	Label   string `json:"label,omitempty"`
	IsList  bool   `json:"isList,omitempty"`
}

// Resolve returns the effective semantic map: a copy of static with every
// usable hint laid over it. A hint replaces the static entry for the same
// field id. Hints without a field id, a path or a known entity are dropped.
// A field whose path is a parent of another field's path on the same entity
// is dropped too, since writing both would let the nested value clobber it.
func Resolve(static SemanticMap, hints []FieldHint) SemanticMap {
	out := make(SemanticMap, len(static)+len(hints))
	for id, meta := range static {
		if meta.Label == "" {
			meta.Label = id
		}
		out[id] = meta
	}

	for _, h := range hints {
		id := strings.TrimSpace(h.FieldID)
		path := strings.TrimSpace(h.Path)
		if id == "" || path == "" || !h.Entity.Valid() {
			continue
		}
		label := strings.TrimSpace(h.Label)
		if label == "" {
			if prev, ok := out[id]; ok {
				label = prev.Label
			} else {
				label = id
			}
		}
		out[id] = FieldMeta{
			Entity: h.Entity,
			Path:   path,
			Label:  label,
			IsList: h.IsList,
		}
	}

	dropOverlaps(out)
	return out
}

func dropOverlaps(m SemanticMap) {
	ids := m.FieldIDs()
	for _, id := range ids {
		meta := m[id]
		for _, other := range ids {
			nested, ok := m[other]
			if !ok || other == id || nested.Entity != meta.Entity {
				continue
			}
			if strings.HasPrefix(nested.Path, meta.Path+".") {
				slog.Warn("semantic map path overlaps a nested mapping, dropping field",
					"field", id, "path", meta.Path, "nested_field", other, "nested_path", nested.Path)
				delete(m, id)
				break
			}
		}
	}
}
