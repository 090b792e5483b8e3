package mapper

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDetails(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"object", `{"general":{"name":"Acme"}}`, `{"general":{"name":"Acme"}}`},
		{"double encoded", `"{\"general\":{\"name\":\"Acme\"}}"`, `{"general":{"name":"Acme"}}`},
		{"empty", "", `{}`},
		{"garbage", "{{nope", `{}`},
		{"array", `[1,2]`, `{}`},
		{"string of garbage", `"hello"`, `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.JSONEq(t, tt.want, ParseDetails(tt.raw))
		})
	}
}

func TestLookupAndSetValue(t *testing.T) {
	doc := `{"general":{"name":"Acme","size":12,"tags":["a","b"],"nested":{"x":1},"none":null}}`

	assert.Equal(t, "Acme", Lookup(doc, "general.name"))
	assert.Equal(t, "12", Lookup(doc, "general.size"))
	assert.Equal(t, "a, b", Lookup(doc, "general.tags"))
	assert.Equal(t, "", Lookup(doc, "general.nested"))
	assert.Equal(t, "", Lookup(doc, "general.none"))
	assert.Equal(t, "", Lookup(doc, "general.missing"))

	out, err := SetValue(`{}`, "general.v1\\.2", "ok")
	require.NoError(t, err)
	assert.JSONEq(t, `{"general":{"v1.2":"ok"}}`, out)
	assert.Equal(t, "ok", Lookup(out, "general.v1\\.2"))

	out, err = SetValue(`{}`, "general.2024", "year")
	require.NoError(t, err)
	assert.JSONEq(t, `{"general":{"2024":"year"}}`, out)
}

func TestWithPhaseData(t *testing.T) {
	details := `{"general":{"name":"Acme"},"phaseData":{"discovery":{"old":"gone"},"testing":{"a":"b"}}}`

	out, err := WithPhaseData(details, "discovery", map[string]string{"projectName": "Acme"})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"projectName": "Acme"}, PhaseValues(out, "discovery"))
	assert.Equal(t, map[string]string{"a": "b"}, PhaseValues(out, "testing"))
	assert.Equal(t, "Acme", Lookup(out, "general.name"))
	assert.Equal(t, []string{"discovery", "testing"}, phaseKeys(out))
	assert.Nil(t, PhaseValues(out, "stories"))
}

func TestMergeList(t *testing.T) {
	merged, added := MergeList(
		SplitList("Alice - PM, Bob - Dev"),
		SplitList("bob - Dev;\nCarol - QA, carol - qa"),
	)
	assert.Equal(t, []string{"Alice - PM", "Bob - Dev", "Carol - QA"}, merged)
	assert.Equal(t, []string{"Carol - QA"}, added)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SplitList(" a ,b;\r\n c ,, ;"))
	assert.Nil(t, SplitList("  \n "))
	assert.Equal(t, "a, b", NormalizeList("a;b"))
}

func TestUpdates_JSON(t *testing.T) {
	u := Updates{"general.name": "Acme", "general.stakeholders": "Alice, Bob"}

	raw, err := json.Marshal(u)
	require.NoError(t, err)
	assert.JSONEq(t, `{"general":{"name":"Acme","stakeholders":"Alice, Bob"}}`, string(raw))

	var back Updates
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, u, back)

	assert.Error(t, json.Unmarshal([]byte(`["x"]`), &back))
}

func TestUpdates_Apply(t *testing.T) {
	u := Updates{"general.name": "Acme Co"}
	out, err := u.Apply(`{"general":{"name":"Acme Corp","goals":"grow"},"phaseData":{}}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"general":{"name":"Acme Co","goals":"grow"},"phaseData":{}}`, out)
}

func TestPayloadFromSuggestions(t *testing.T) {
	p := PayloadFromSuggestions([]Suggestion{
		{Entity: EntityProject, Path: "general.name", NewValue: "Acme"},
		{Entity: EntityFeature, Path: "general.name", NewValue: "Checkout"},
		{Entity: EntityProject, Path: "general.name", NewValue: "Acme Co"},
		{Entity: "other", Path: "general.name", NewValue: "dropped"},
	})

	assert.Equal(t, Updates{"general.name": "Acme Co"}, p.ProjectUpdates)
	assert.Equal(t, Updates{"general.name": "Checkout"}, p.FeatureUpdates)
	assert.False(t, p.Empty())
}

func TestResolve(t *testing.T) {
	static := SemanticMap{
		"a": {Entity: EntityProject, Path: "general.a", Label: "A"},
		"b": {Entity: EntityProject, Path: "general.b"},
	}
	got := Resolve(static, []FieldHint{
		{FieldID: "a", Entity: EntityFeature, Path: "general.alpha", IsList: true},
		{FieldID: "c", Entity: EntityFeature, Path: ""},
		{FieldID: "", Entity: EntityFeature, Path: "general.x"},
	})

	assert.Equal(t, SemanticMap{
		"a": {Entity: EntityFeature, Path: "general.alpha", Label: "A", IsList: true},
		"b": {Entity: EntityProject, Path: "general.b", Label: "b"},
	}, got)
	assert.Equal(t, "", static["b"].Label)
}

func TestResolve_DropsParentOfNestedPath(t *testing.T) {
	got := Resolve(SemanticMap{
		"summary": {Entity: EntityProject, Path: "general"},
		"name":    {Entity: EntityProject, Path: "general.name"},
		"feature": {Entity: EntityFeature, Path: "general"},
		"sibling": {Entity: EntityProject, Path: "generally"},
	}, nil)

	assert.NotContains(t, got, "summary")
	assert.Contains(t, got, "name")
	assert.Contains(t, got, "feature")
	assert.Contains(t, got, "sibling")

	res := Derive(DeriveInput{
		Project: project(`{}`),
		Static: SemanticMap{
			"summary": {Entity: EntityProject, Path: "general"},
			"name":    {Entity: EntityProject, Path: "general.name"},
		},
		Values: map[string]string{"summary": "All of it", "name": "Acme"},
	})
	require.Len(t, res.Suggestions, 1)
	assert.Equal(t, Updates{"general.name": "Acme"}, res.ProjectUpdates)
}
