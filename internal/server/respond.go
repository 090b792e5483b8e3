package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/josephgoksu/PhaseWing/internal/auth"
	"github.com/josephgoksu/PhaseWing/internal/phase"
	"github.com/josephgoksu/PhaseWing/internal/queue"
	"github.com/josephgoksu/PhaseWing/internal/store"
	"github.com/josephgoksu/PhaseWing/internal/synth"
	"github.com/josephgoksu/PhaseWing/internal/transcribe"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 4 << 20

type errorResponse struct {
	Error  string             `json:"error"`
	Fields []phase.FieldError `json:"fields,omitempty"`
}

func writeAPIJSON(w http.ResponseWriter, data any) {
	writeStatusJSON(w, http.StatusOK, data)
}

func writeStatusJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeStatusJSON(w, status, errorResponse{Error: msg})
}

// writeErr maps domain errors to HTTP statuses.
func writeErr(w http.ResponseWriter, err error) {
	var verr *phase.ValidationError
	if errors.As(err, &verr) {
		writeStatusJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Fields: verr.Fields})
		return
	}
	var serr *transcribe.ServiceError
	if errors.As(err, &serr) {
		writeError(w, http.StatusBadGateway, serr.Message)
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, queue.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrConflict), errors.Is(err, store.ErrHasChildren):
		status = http.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, auth.ErrDisabled), errors.Is(err, auth.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, queue.ErrEmptyPrompt),
		errors.Is(err, synth.ErrUnknownPhase),
		errors.Is(err, transcribe.ErrUnsupportedFormat),
		errors.Is(err, transcribe.ErrFileTooLarge):
		status = http.StatusBadRequest
	case errors.Is(err, transcribe.ErrTimedOut):
		status = http.StatusGatewayTimeout
	case errors.Is(err, synth.ErrNoModel):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	writeError(w, status, err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s", name))
		return 0, false
	}
	return id, true
}

func (s *Server) phaseFor(w http.ResponseWriter, r *http.Request) (*phase.Phase, bool) {
	key := r.PathValue("phase")
	p, ok := s.Phases.Get(key)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown phase: %s", key))
		return nil, false
	}
	return p, true
}
