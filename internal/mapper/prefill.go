package mapper

import "strings"

// FieldKind is the input type of a rendered form field.
type FieldKind string

const (
	KindText     FieldKind = "text"
	KindTextarea FieldKind = "textarea"
	KindSelect   FieldKind = "select"
	KindDate     FieldKind = "date"
	KindNumber   FieldKind = "number"
)

// Field is one rendered form field and its current value.
type Field struct {
	ID      string    `json:"id"`
	Label   string    `json:"label"`
	Kind    FieldKind `json:"kind"`
	Options []string  `json:"options,omitempty"`
	Value   string    `json:"value"`
}

func (f Field) blank() bool {
	return strings.TrimSpace(f.Value) == ""
}

// FallbackPolicy decides when the label heuristic runs.
type FallbackPolicy string

const (
	// FallbackWhenEmpty runs the heuristic only when no stored data matched any field.
	FallbackWhenEmpty FallbackPolicy = "when-empty"
	// FallbackAlways runs the heuristic for every field still blank.
	FallbackAlways FallbackPolicy = "always"
)

// Fill sources, in the order they are consulted.
const (
	SourceFeatureSubmission = "feature.phaseData"
	SourceProjectSubmission = "project.phaseData"
	SourceFeatureGeneral    = "feature.general"
	SourceProjectGeneral    = "project.general"
	SourceFeaturePhaseField = "feature.phaseField"
	SourceProjectPhaseField = "project.phaseField"
	SourceCarryOver         = "carryOver"
	SourceHeuristic         = "heuristic"
)

// PrefillInput is the data a form can be prefilled from. Project and
// Feature may be nil. CarryOver holds free text keyed by field id, such as
// fields extracted from a pasted AI response.
type PrefillInput struct {
	Project   *Record
	Feature   *Record
	Phase     string
	Static    SemanticMap
	Hints     []FieldHint
	CarryOver map[string]string
	Policy    FallbackPolicy
}

// Fill records which source supplied a field's value.
type Fill struct {
	FieldID string `json:"fieldId"`
	Source  string `json:"source"`
	Value   string `json:"value"`
}

// PrefillResult is the filled copy of the form plus a log of what was filled.
type PrefillResult struct {
	Fields []Field `json:"fields"`
	Filled []Fill  `json:"filled"`
}

type prefiller struct {
	in      PrefillInput
	fields  []Field
	index   map[string]int
	filled  []Fill
	matched int
	feature source
	project source
}

// Prefill fills the blank fields of form from stored data. Fields that already
// hold a value are never touched and the input slice is not modified.
// Running it again over the result with the same data changes nothing.
func Prefill(in PrefillInput, form []Field) PrefillResult {
	p := &prefiller{
		in:      in,
		fields:  make([]Field, len(form)),
		index:   make(map[string]int, len(form)),
		feature: source{record: in.Feature},
		project: source{record: in.Project},
	}
	copy(p.fields, form)
	for i, f := range p.fields {
		p.fields[i].Options = append([]string(nil), f.Options...)
		p.index[f.ID] = i
	}
	if in.Feature != nil {
		p.feature.details = detailsOf(in.Feature)
	}
	if in.Project != nil {
		p.project.details = detailsOf(in.Project)
	}

	p.applySubmission(p.feature, SourceFeatureSubmission)
	p.applySubmission(p.project, SourceProjectSubmission)
	p.applySemantic(Resolve(in.Static, in.Hints))

	policy := in.Policy
	if policy == "" {
		policy = FallbackWhenEmpty
	}
	// The heuristic keys off whether stored data exists for the form, not off
	// what this call wrote, so a second run over the result is a no-op.
	if policy == FallbackAlways || p.matched == 0 {
		p.applyHeuristic()
	}

	filled := p.filled
	if filled == nil {
		filled = []Fill{}
	}
	return PrefillResult{Fields: p.fields, Filled: filled}
}

func (p *prefiller) set(i int, value, src string) {
	p.fields[i].Value = value
	p.filled = append(p.filled, Fill{FieldID: p.fields[i].ID, Source: src, Value: value})
}

// applySubmission restores a previously saved raw submission verbatim.
func (p *prefiller) applySubmission(src source, name string) {
	if src.record == nil {
		return
	}
	values := PhaseValues(src.details, p.in.Phase)
	for _, f := range p.fields {
		v, ok := values[f.ID]
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		p.matched++
		i := p.index[f.ID]
		if p.fields[i].blank() {
			p.set(i, v, name)
		}
	}
}

func (p *prefiller) applySemantic(semantic SemanticMap) {
	for _, id := range semantic.FieldIDs() {
		i, ok := p.index[id]
		if !ok {
			continue
		}
		meta := semantic[id]
		value, src := p.candidate(id, meta)
		if value == "" {
			continue
		}
		p.matched++
		if !p.fields[i].blank() {
			continue
		}
		if meta.IsList {
			value = NormalizeList(value)
		}
		if p.fields[i].Kind == KindSelect {
			opt, ok := BestOption(p.fields[i].Options, value)
			if !ok {
				continue
			}
			value = opt
		}
		p.set(i, value, src)
	}
}

// candidate walks the sources in priority order and returns the first
// non-blank value for a mapped field. Feature data always beats project data,
// whichever record the field maps to.
func (p *prefiller) candidate(id string, meta FieldMeta) (string, string) {
	if v := p.general(p.feature, meta.Path); v != "" {
		return v, SourceFeatureGeneral
	}
	if v := p.general(p.project, meta.Path); v != "" {
		return v, SourceProjectGeneral
	}
	if v := p.phaseField(p.feature, id); v != "" {
		return v, SourceFeaturePhaseField
	}
	if v := p.phaseField(p.project, id); v != "" {
		return v, SourceProjectPhaseField
	}
	if v := strings.TrimSpace(p.in.CarryOver[id]); v != "" {
		return v, SourceCarryOver
	}
	return "", ""
}

func (p *prefiller) general(src source, path string) string {
	if src.record == nil {
		return ""
	}
	v := Lookup(src.details, path)
	if strings.TrimSpace(v) == "" {
		return ""
	}
	return v
}

// phaseField looks for the bare field key in saved phase data, current
// phase first and then the other phases in ascending order.
func (p *prefiller) phaseField(src source, id string) string {
	if src.record == nil {
		return ""
	}
	phases := []string{p.in.Phase}
	for _, k := range phaseKeys(src.details) {
		if k != p.in.Phase {
			phases = append(phases, k)
		}
	}
	for _, phase := range phases {
		if v := strings.TrimSpace(PhaseValues(src.details, phase)[id]); v != "" {
			return v
		}
	}
	return ""
}

func (p *prefiller) applyHeuristic() {
	for i, f := range p.fields {
		if !f.blank() || f.Kind == KindDate || f.Kind == KindNumber {
			continue
		}
		value := heuristicValue(f.Label, p.feature, p.project)
		if value == "" {
			continue
		}
		if f.Kind == KindSelect {
			opt, ok := BestOption(f.Options, value)
			if !ok {
				continue
			}
			value = opt
		}
		p.set(i, value, SourceHeuristic)
	}
}
