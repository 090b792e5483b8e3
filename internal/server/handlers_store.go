package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/josephgoksu/PhaseWing/internal/store"
)

// recordRequest is the body for creating or updating a project or feature.
// Details may be a JSON object or a string holding one.
type recordRequest struct {
	Name    *string         `json:"name"`
	Details json.RawMessage `json:"details"`
}

func (req recordRequest) details() *string {
	raw := strings.TrimSpace(string(req.Details))
	if raw == "" || raw == "null" {
		return nil
	}
	var s string
	if json.Unmarshal(req.Details, &s) == nil {
		return &s
	}
	return &raw
}

func (req recordRequest) create() (string, string, bool) {
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		return "", "", false
	}
	details := "{}"
	if d := req.details(); d != nil {
		details = *d
	}
	return strings.TrimSpace(*req.Name), details, true
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.Store.ListProjects(userFrom(r).ID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeAPIJSON(w, map[string]any{"projects": projects})
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := s.Store.GetProject(userFrom(r).ID, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeAPIJSON(w, map[string]any{"project": p})
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	name, details, ok := req.create()
	if !ok {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	p, err := s.Store.CreateProject(userFrom(r).ID, name, details)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeStatusJSON(w, http.StatusCreated, map[string]any{"project": p})
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req recordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := s.Store.UpdateProject(userFrom(r).ID, id, req.Name, req.details())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeAPIJSON(w, map[string]any{"project": p})
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.Store.DeleteProject(userFrom(r).ID, id); err != nil {
		writeErr(w, err)
		return
	}
	writeAPIJSON(w, map[string]any{"success": true})
}

func (s *Server) handleListFeatures(w http.ResponseWriter, r *http.Request) {
	pid, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	features, err := s.Store.ListFeatures(userFrom(r).ID, pid)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeAPIJSON(w, map[string]any{"features": features})
}

func (s *Server) handleCreateFeature(w http.ResponseWriter, r *http.Request) {
	pid, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req recordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	name, details, ok := req.create()
	if !ok {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	f, err := s.Store.CreateFeature(userFrom(r).ID, pid, name, details)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeStatusJSON(w, http.StatusCreated, map[string]any{"feature": f})
}

func (s *Server) handleUpdateFeature(w http.ResponseWriter, r *http.Request) {
	pid, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	fid, ok := pathID(w, r, "fid")
	if !ok {
		return
	}
	var req recordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	f, err := s.Store.UpdateFeature(userFrom(r).ID, pid, fid, req.Name, req.details())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeAPIJSON(w, map[string]any{"feature": f})
}

func (s *Server) handleDeleteFeature(w http.ResponseWriter, r *http.Request) {
	pid, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	fid, ok := pathID(w, r, "fid")
	if !ok {
		return
	}
	if err := s.Store.DeleteFeature(userFrom(r).ID, pid, fid); err != nil {
		writeErr(w, err)
		return
	}
	writeAPIJSON(w, map[string]any{"success": true})
}

func queryID(r *http.Request, name string) (*int64, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, false
	}
	return &id, true
}

func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	pid, ok1 := queryID(r, "project_id")
	fid, ok2 := queryID(r, "feature_id")
	if !ok1 || !ok2 {
		writeError(w, http.StatusBadRequest, "invalid project_id or feature_id")
		return
	}
	subs, err := s.Store.ListSubmissions(userFrom(r).ID, store.SubmissionFilter{ProjectID: pid, FeatureID: fid})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeAPIJSON(w, map[string]any{"submissions": subs})
}

func (s *Server) handleCreateSubmission(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProjectID *int64          `json:"project_id"`
		FeatureID *int64          `json:"feature_id"`
		Phase     string          `json:"phase"`
		Payload   json.RawMessage `json:"payload"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if !s.Phases.Has(req.Phase) {
		writeError(w, http.StatusBadRequest, "unknown phase: "+req.Phase)
		return
	}
	user := userFrom(r).ID
	if req.ProjectID != nil {
		if _, err := s.Store.GetProject(user, *req.ProjectID); err != nil {
			writeErr(w, err)
			return
		}
		if req.FeatureID != nil {
			if _, err := s.Store.GetFeature(user, *req.ProjectID, *req.FeatureID); err != nil {
				writeErr(w, err)
				return
			}
		}
	} else if req.FeatureID != nil {
		writeError(w, http.StatusBadRequest, "feature_id requires project_id")
		return
	}

	payload := string(req.Payload)
	if payload == "" {
		payload = "{}"
	}
	sub, err := s.Store.CreateSubmission(user, req.ProjectID, req.FeatureID, req.Phase, payload)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeStatusJSON(w, http.StatusCreated, map[string]any{"submission": sub})
}

func (s *Server) handleDeleteSubmission(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.Store.DeleteSubmission(userFrom(r).ID, id); err != nil {
		writeErr(w, err)
		return
	}
	writeAPIJSON(w, map[string]any{"success": true})
}
