package mapper

import "strings"

// Suggestion is a proposed, user-confirmable change to one stored field.
type Suggestion struct {
	Entity   Entity `json:"entity"`
	Path     string `json:"path"`
	Label    string `json:"label"`
	OldValue string `json:"oldValue"`
	NewValue string `json:"newValue"`
}

// DeriveInput is everything forward mapping needs for one submission.
// Project and Feature may be nil.
type DeriveInput struct {
	Project *Record
	Feature *Record
	Phase   string
	Static  SemanticMap
	Hints   []FieldHint
	Values  map[string]string
}

// Result is the outcome of forward mapping. An empty Suggestions slice means
// nothing would change.
type Result struct {
	UpdatePayload
	Suggestions []Suggestion `json:"suggestions"`
}

// Derive computes the minimal updates implied by a submitted form.
//
// Fields are visited in ascending id order. Blank values, unmapped fields and
// fields targeting an absent record are skipped. List fields only ever gain
// items; scalar fields change only when the trimmed value differs. Running
// Derive again after applying its updates yields no suggestions.
func Derive(in DeriveInput) Result {
	res := Result{
		UpdatePayload: UpdatePayload{ProjectUpdates: Updates{}, FeatureUpdates: Updates{}},
		Suggestions:   []Suggestion{},
	}

	semantic := Resolve(in.Static, in.Hints)
	details := map[Entity]string{}
	if in.Project != nil {
		details[EntityProject] = detailsOf(in.Project)
	}
	if in.Feature != nil {
		details[EntityFeature] = detailsOf(in.Feature)
	}

	for _, id := range semantic.FieldIDs() {
		meta := semantic[id]
		incoming := strings.TrimSpace(in.Values[id])
		if incoming == "" {
			continue
		}
		doc, ok := details[meta.Entity]
		if !ok {
			continue
		}

		updates := res.updatesFor(meta.Entity)
		// Two fields may share a path; the second sees the first one's write.
		current, pending := updates[meta.Path]
		if !pending {
			current = Lookup(doc, meta.Path)
		}

		next, changed := nextValue(meta, current, incoming)
		if !changed {
			continue
		}

		updates[meta.Path] = next
		res.Suggestions = append(res.Suggestions, Suggestion{
			Entity:   meta.Entity,
			Path:     meta.Path,
			Label:    meta.Label,
			OldValue: current,
			NewValue: next,
		})
	}

	return res
}

func nextValue(meta FieldMeta, current, incoming string) (string, bool) {
	if meta.IsList {
		merged, added := MergeList(SplitList(current), SplitList(incoming))
		if len(added) == 0 {
			return "", false
		}
		return JoinList(merged), true
	}
	if strings.TrimSpace(current) == incoming {
		return "", false
	}
	return incoming, true
}

func (r *Result) updatesFor(e Entity) Updates {
	if e == EntityFeature {
		return r.FeatureUpdates
	}
	return r.ProjectUpdates
}
