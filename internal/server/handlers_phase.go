package server

import (
	"net/http"
	"strings"

	"github.com/josephgoksu/PhaseWing/internal/mapper"
	"github.com/josephgoksu/PhaseWing/internal/store"
	"github.com/josephgoksu/PhaseWing/internal/telemetry"
)

func (s *Server) handleListPhases(w http.ResponseWriter, r *http.Request) {
	writeAPIJSON(w, map[string]any{"phases": s.Phases.List()})
}

func (s *Server) handleGetPhase(w http.ResponseWriter, r *http.Request) {
	p, ok := s.phaseFor(w, r)
	if !ok {
		return
	}
	writeAPIJSON(w, map[string]any{"phase": p, "form": p.Form()})
}

func (s *Server) handleRenderPhase(w http.ResponseWriter, r *http.Request) {
	p, ok := s.phaseFor(w, r)
	if !ok {
		return
	}
	var req struct {
		Values map[string]string `json:"values"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := p.Validate(req.Values); err != nil {
		writeErr(w, err)
		return
	}
	prompt, err := p.Render(req.Values)
	if err != nil {
		writeErr(w, err)
		return
	}
	telemetry.PromptRendered(s.Telemetry, p.Key)
	writeAPIJSON(w, map[string]string{"phase": p.Key, "prompt": prompt})
}

// mapperRequest names the records a form belongs to.
type mapperRequest struct {
	ProjectID *int64             `json:"project_id"`
	FeatureID *int64             `json:"feature_id"`
	Values    map[string]string  `json:"values"`
	Hints     []mapper.FieldHint `json:"hints"`
}

func (s *Server) loadRecords(w http.ResponseWriter, r *http.Request, req mapperRequest) (*store.Project, *store.Feature, bool) {
	user := userFrom(r).ID
	var (
		project *store.Project
		feature *store.Feature
		err     error
	)
	if req.ProjectID != nil {
		if project, err = s.Store.GetProject(user, *req.ProjectID); err != nil {
			writeErr(w, err)
			return nil, nil, false
		}
	}
	if req.FeatureID != nil {
		if project == nil {
			writeError(w, http.StatusBadRequest, "feature_id requires project_id")
			return nil, nil, false
		}
		if feature, err = s.Store.GetFeature(user, project.ID, *req.FeatureID); err != nil {
			writeErr(w, err)
			return nil, nil, false
		}
	}
	return project, feature, true
}

func (s *Server) handleDerive(w http.ResponseWriter, r *http.Request) {
	p, ok := s.phaseFor(w, r)
	if !ok {
		return
	}
	var req mapperRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	project, feature, ok := s.loadRecords(w, r, req)
	if !ok {
		return
	}

	res := mapper.Derive(mapper.DeriveInput{
		Project: project.Record(),
		Feature: feature.Record(),
		Phase:   p.Key,
		Static:  p.StaticMap(),
		Hints:   req.Hints,
		Values:  req.Values,
	})
	telemetry.SuggestionsDerived(s.Telemetry, p.Key, len(res.Suggestions))
	writeAPIJSON(w, res)
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	p, ok := s.phaseFor(w, r)
	if !ok {
		return
	}
	var req struct {
		mapperRequest
		mapper.UpdatePayload
		Accepted []mapper.Suggestion `json:"accepted"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ProjectID == nil {
		writeError(w, http.StatusBadRequest, "project_id is required")
		return
	}
	if err := p.Validate(req.Values); err != nil {
		writeErr(w, err)
		return
	}
	project, feature, ok := s.loadRecords(w, r, req.mapperRequest)
	if !ok {
		return
	}

	payload := req.UpdatePayload
	switch {
	case req.Accepted != nil:
		payload = mapper.PayloadFromSuggestions(req.Accepted)
	case payload.Empty():
		// Nothing chosen explicitly: accept everything the form implies.
		payload = mapper.Derive(mapper.DeriveInput{
			Project: project.Record(),
			Feature: feature.Record(),
			Phase:   p.Key,
			Static:  p.StaticMap(),
			Hints:   req.Hints,
			Values:  req.Values,
		}).UpdatePayload
	}
	if feature == nil {
		payload.FeatureUpdates = nil
	}

	res, err := s.Store.ApplyPhase(userFrom(r).ID, store.ApplyInput{
		ProjectID:      project.ID,
		FeatureID:      req.FeatureID,
		Phase:          p.Key,
		Values:         req.Values,
		ProjectUpdates: payload.ProjectUpdates,
		FeatureUpdates: payload.FeatureUpdates,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	telemetry.SuggestionsApplied(s.Telemetry, p.Key, len(payload.ProjectUpdates), len(payload.FeatureUpdates))
	writeAPIJSON(w, map[string]any{
		"project":        res.Project,
		"feature":        res.Feature,
		"submission":     res.Submission,
		"projectUpdates": payload.ProjectUpdates,
		"featureUpdates": payload.FeatureUpdates,
	})
}

func (s *Server) handlePrefill(w http.ResponseWriter, r *http.Request) {
	p, ok := s.phaseFor(w, r)
	if !ok {
		return
	}
	var req struct {
		mapperRequest
		CarryOver map[string]string     `json:"carry_over"`
		Text      string                `json:"text"`
		Policy    mapper.FallbackPolicy `json:"policy"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Policy != "" && req.Policy != mapper.FallbackWhenEmpty && req.Policy != mapper.FallbackAlways {
		writeError(w, http.StatusBadRequest, "invalid policy: "+string(req.Policy))
		return
	}
	project, feature, ok := s.loadRecords(w, r, req.mapperRequest)
	if !ok {
		return
	}

	res := mapper.Prefill(mapper.PrefillInput{
		Project:   project.Record(),
		Feature:   feature.Record(),
		Phase:     p.Key,
		Static:    p.StaticMap(),
		Hints:     req.Hints,
		CarryOver: s.carryOver(req.Text, req.CarryOver),
		Policy:    req.Policy,
	}, p.FormWith(req.Values))
	writeAPIJSON(w, res)
}

// carryOver merges fields extracted from text under the explicit values.
func (s *Server) carryOver(text string, explicit map[string]string) map[string]string {
	out := map[string]string{}
	if strings.TrimSpace(text) != "" {
		for id, v := range s.Extractor.Extract(text) {
			out[id] = v
		}
	}
	for id, v := range explicit {
		out[id] = v
	}
	return out
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	writeAPIJSON(w, map[string]any{"fields": s.Extractor.Extract(req.Text)})
}
