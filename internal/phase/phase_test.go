package phase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/PhaseWing/internal/mapper"
)

func TestBuiltin(t *testing.T) {
	r := Default()
	assert.Equal(t, []string{
		Discovery, Requirements, Wireframing, Stories, Prioritization, Testing, Communication,
	}, r.Keys())

	for _, p := range r.List() {
		assert.NotEmpty(t, p.Title, p.Key)
		assert.NotEmpty(t, p.Fields, p.Key)
		_, err := p.Render(nil)
		assert.NoError(t, err, p.Key)
	}
}

func TestStaticMap(t *testing.T) {
	p, ok := Default().Get(Discovery)
	require.True(t, ok)

	m := p.StaticMap()
	assert.Equal(t, mapper.FieldMeta{
		Entity: mapper.EntityProject,
		Path:   "general.stakeholders",
		Label:  "Key Stakeholders",
		IsList: true,
	}, m["stakeholders"])
	assert.Equal(t, "general.issues", m["painPoints"].Path)
}

func TestDiscoveryStakeholdersEndToEnd(t *testing.T) {
	p, _ := Default().Get(Discovery)

	res := mapper.Derive(mapper.DeriveInput{
		Project: &mapper.Record{ID: 1, Name: "Acme", Details: `{"general":{"stakeholders":"Alice - PM"}}`},
		Phase:   Discovery,
		Static:  p.StaticMap(),
		Values:  map[string]string{"stakeholders": "Alice - PM\nBob - Dev"},
	})

	require.Len(t, res.Suggestions, 1)
	assert.Equal(t, "Alice - PM", res.Suggestions[0].OldValue)
	assert.Equal(t, "Alice - PM, Bob - Dev", res.Suggestions[0].NewValue)
}

func TestRender(t *testing.T) {
	p, _ := Default().Get(Discovery)

	out, err := p.Render(map[string]string{
		"projectName":  "Acme",
		"stakeholders": "Alice - PM; Bob - Dev",
	})
	require.NoError(t, err)

	assert.Contains(t, out, "running discovery for Acme.")
	assert.Contains(t, out, "- Alice - PM\n- Bob - Dev")
	assert.Contains(t, out, "Budget: TBD")
	assert.Contains(t, out, "- (none provided)")
	assert.NotContains(t, out, "<no value>")
}

func TestRender_Funcs(t *testing.T) {
	p := &Phase{Key: "x", Template: `{{ title .a }}|{{ .b | default "d" }}|{{ lower .c }}|{{ .missing }}`}
	out, err := p.Render(map[string]string{"a": "hello world", "c": "LOUD"})
	require.NoError(t, err)
	assert.Equal(t, "Hello World|d|loud|\n", out)
}

func TestValidate(t *testing.T) {
	p, _ := Default().Get(Prioritization)

	assert.NoError(t, p.Validate(map[string]string{"featureName": "Checkout", "tShirtSize": "M"}))

	err := p.Validate(map[string]string{"tShirtSize": "XXL", "unknown": "x"})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, Prioritization, verr.Phase)
	require.Len(t, verr.Fields, 2)
	assert.Equal(t, "featureName", verr.Fields[0].Field)
	assert.Equal(t, "tShirtSize", verr.Fields[1].Field)
	assert.True(t, strings.HasPrefix(err.Error(), "invalid prioritization submission"))
}

func TestLoader_Overrides(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/phases/discovery.yaml", []byte(`
key: discovery
title: Kickoff
description: Replaced
fields:
  - id: projectName
    label: Name
    kind: text
    semantic: {entity: project, path: general.name}
template: "Kickoff for {{ .projectName }}"
`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/data/phases/extra.yml", []byte(`
phases:
  - key: retro
    title: Retrospective
    fields:
      - id: wins
        label: Wins
        kind: textarea
    template: "Wins: {{ list .wins }}"
`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/data/phases/README.md", []byte("ignored"), 0o644))

	r, err := Load(fs, "/data/phases")
	require.NoError(t, err)

	keys := r.Keys()
	assert.Equal(t, Discovery, keys[0])
	assert.Equal(t, "retro", keys[len(keys)-1])

	d, _ := r.Get(Discovery)
	assert.Equal(t, "Kickoff", d.Title)
	out, err := d.Render(map[string]string{"projectName": "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "Kickoff for Acme\n", out)

	assert.True(t, r.Has("retro"))
}

func TestLoader_MissingDirAndBadFiles(t *testing.T) {
	fs := afero.NewMemMapFs()

	phases, err := NewLoader(fs, "/nope").LoadAll()
	require.NoError(t, err)
	assert.Empty(t, phases)

	require.NoError(t, afero.WriteFile(fs, "/p/bad.yaml", []byte(`
key: broken
fields:
  - id: a
    label: A
    kind: select
template: "x"
`), 0o644))
	_, err = Load(fs, "/p")
	assert.Error(t, err)
}

func TestRegistry_Reload(t *testing.T) {
	r := Default()
	require.NoError(t, r.Reload([]*Phase{{
		Key:      "retro",
		Title:    "Retrospective",
		Fields:   []Field{{ID: "wins", Label: "Wins", Kind: "textarea"}},
		Template: "{{ .wins }}",
	}}))
	assert.True(t, r.Has("retro"))
	assert.True(t, r.Has(Discovery))

	err := r.Reload([]*Phase{{Key: "broken", Fields: []Field{{ID: "a", Label: "A", Kind: "select"}}, Template: "x"}})
	assert.Error(t, err)
	assert.True(t, r.Has("retro"), "failed reload keeps the previous phases")
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	r := Default()
	w, err := NewWatcher(r, dir)
	require.NoError(t, err)
	w.delay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "retro.yaml"), []byte(`
key: retro
title: Retrospective
fields:
  - id: wins
    label: Wins
    kind: textarea
template: "{{ .wins }}"
`), 0o644))

	assert.Eventually(t, func() bool { return r.Has("retro") }, 2*time.Second, 10*time.Millisecond)
}
