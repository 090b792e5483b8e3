package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/josephgoksu/PhaseWing/internal/queue"
	"github.com/josephgoksu/PhaseWing/internal/telemetry"
	"github.com/josephgoksu/PhaseWing/internal/transcribe"
)

func (s *Server) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phase  string         `json:"phase"`
		Inputs map[string]any `json:"inputs"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if s.Synth == nil {
		writeError(w, http.StatusServiceUnavailable, "prompt synthesizer is not configured")
		return
	}
	resp, err := s.Synth.Synthesize(r.Context(), req.Phase, req.Inputs)
	if err != nil {
		writeErr(w, err)
		return
	}
	telemetry.PromptSynthesized(s.Telemetry, req.Phase, resp.Fallback)
	writeAPIJSON(w, resp)
}

func (s *Server) handleSynthHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.Synth.Health(); err != nil {
		writeStatusJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	writeAPIJSON(w, map[string]string{"status": "healthy", "provider": s.Synth.Provider})
}

func (s *Server) queueAvailable(w http.ResponseWriter) bool {
	if s.Queue == nil {
		writeError(w, http.StatusServiceUnavailable, "completion queue is not configured")
		return false
	}
	return true
}

func (s *Server) handleQueueSubmit(w http.ResponseWriter, r *http.Request) {
	if !s.queueAvailable(w) {
		return
	}
	var req struct {
		Prompt string `json:"prompt"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	ticket, err := s.Queue.Submit(req.Prompt)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeAPIJSON(w, ticket)
}

func (s *Server) handleQueueStatus(w http.ResponseWriter, r *http.Request) {
	if !s.queueAvailable(w) {
		return
	}
	res, err := s.Queue.Status(r.PathValue("id"))
	if errors.Is(err, queue.ErrNotFound) {
		writeStatusJSON(w, http.StatusNotFound, map[string]string{"status": "not_found"})
		return
	}
	if err != nil {
		writeErr(w, err)
		return
	}
	writeAPIJSON(w, res)
}

func (s *Server) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	if !s.queueAvailable(w) {
		return
	}
	writeAPIJSON(w, s.Queue.Stats())
}

// handleTranscribe streams the "video" part of a multipart upload to the
// transcription service. Option fields must precede the file part.
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if s.Transcriber == nil {
		writeError(w, http.StatusServiceUnavailable, "transcription service is not configured")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, transcribe.MaxFileSize+1<<20)

	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart form: "+err.Error())
		return
	}
	opts := transcribe.Options{Language: transcribe.DefaultLanguage}
	for {
		part, err := mr.NextPart()
		if err != nil {
			writeError(w, http.StatusBadRequest, "no video file provided")
			return
		}
		switch part.FormName() {
		case "noise_reduction":
			if n, err := strconv.Atoi(strings.TrimSpace(readSmall(part))); err == nil {
				opts.NoiseReduction = &n
			}
		case "language":
			if lang := strings.TrimSpace(readSmall(part)); lang != "" {
				opts.Language = lang
			}
		case "video":
			if part.FileName() == "" {
				writeError(w, http.StatusBadRequest, "no file selected")
				return
			}
			res, err := s.Transcriber.Transcribe(r.Context(), part.FileName(), part, opts)
			if err != nil {
				writeErr(w, err)
				return
			}
			writeAPIJSON(w, map[string]any{"success": true, "transcription": res.Transcription, "message": res.Message})
			return
		}
	}
}

// readSmall reads a short form value.
func readSmall(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 4096))
	return string(b)
}
