package mapper

import (
	"fmt"
	"sort"

	"github.com/tidwall/gjson"
)

// Updates is a set of path to value writes against one details tree.
// It serialises as the nested tree, e.g. {"general":{"name":"Acme"}}.
type Updates map[string]string

// Paths returns the update paths in ascending order.
func (u Updates) Paths() []string {
	paths := make([]string, 0, len(u))
	for p := range u {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Tree renders the updates as a nested JSON object.
func (u Updates) Tree() (string, error) {
	doc := emptyDetails
	for _, p := range u.Paths() {
		var err error
		doc, err = SetValue(doc, p, u[p])
		if err != nil {
			return "", fmt.Errorf("set %s: %w", p, err)
		}
	}
	return doc, nil
}

// Apply merges the updates into details and returns the new document.
func (u Updates) Apply(details string) (string, error) {
	doc := ParseDetails(details)
	for _, p := range u.Paths() {
		var err error
		doc, err = SetValue(doc, p, u[p])
		if err != nil {
			return "", fmt.Errorf("apply %s: %w", p, err)
		}
	}
	return doc, nil
}

func (u Updates) MarshalJSON() ([]byte, error) {
	tree, err := u.Tree()
	if err != nil {
		return nil, err
	}
	return []byte(tree), nil
}

func (u *Updates) UnmarshalJSON(data []byte) error {
	root := gjson.ParseBytes(data)
	if root.Type == gjson.Null {
		*u = nil
		return nil
	}
	if !root.IsObject() {
		return fmt.Errorf("updates must be a JSON object")
	}
	out := make(Updates)
	flatten(root, nil, out)
	*u = out
	return nil
}

func flatten(node gjson.Result, prefix []string, out Updates) {
	node.ForEach(func(key, value gjson.Result) bool {
		path := append(append([]string(nil), prefix...), key.String())
		if value.IsObject() {
			flatten(value, path, out)
			return true
		}
		out[JoinPath(path...)] = valueString(value)
		return true
	})
}

// UpdatePayload carries the writes for both entities.
type UpdatePayload struct {
	ProjectUpdates Updates `json:"projectUpdates"`
	FeatureUpdates Updates `json:"featureUpdates"`
}

// Empty reports whether the payload writes nothing.
func (p UpdatePayload) Empty() bool {
	return len(p.ProjectUpdates) == 0 && len(p.FeatureUpdates) == 0
}

// PayloadFromSuggestions rebuilds a payload from the suggestions a user
// accepted. Later suggestions for the same path win.
func PayloadFromSuggestions(accepted []Suggestion) UpdatePayload {
	p := UpdatePayload{ProjectUpdates: Updates{}, FeatureUpdates: Updates{}}
	for _, s := range accepted {
		switch s.Entity {
		case EntityProject:
			p.ProjectUpdates[s.Path] = s.NewValue
		case EntityFeature:
			p.FeatureUpdates[s.Path] = s.NewValue
		}
	}
	return p
}
