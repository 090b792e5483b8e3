// Package server exposes PhaseWing over HTTP: accounts, projects, phase
// forms, the mapper and the AI helpers.
package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/josephgoksu/PhaseWing/internal/auth"
	"github.com/josephgoksu/PhaseWing/internal/extract"
	"github.com/josephgoksu/PhaseWing/internal/phase"
	"github.com/josephgoksu/PhaseWing/internal/queue"
	"github.com/josephgoksu/PhaseWing/internal/store"
	"github.com/josephgoksu/PhaseWing/internal/synth"
	"github.com/josephgoksu/PhaseWing/internal/telemetry"
	"github.com/josephgoksu/PhaseWing/internal/transcribe"
)

// Transcriber forwards uploads to the transcription service.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, r io.Reader, opts transcribe.Options) (*transcribe.Result, error)
	Health(ctx context.Context) error
}

// Deps are the services the server routes to. Synth, Queue and Transcriber
// may be nil; their routes then answer 503.
type Deps struct {
	Store       *store.Store
	Auth        *auth.Service
	Phases      *phase.Registry
	Extractor   *extract.Extractor
	Synth       *synth.Synthesizer
	Queue       *queue.Queue
	Transcriber Transcriber
	Telemetry   telemetry.Client
}

// Options are the listener settings.
type Options struct {
	Addr         string
	CORSOrigins  []string
	DashboardURL string
	Version      string
}

type Server struct {
	Deps
	opts    Options
	origins map[string]struct{}
	server  *http.Server
	cancel  context.CancelFunc
}

// New wires the routes. Nothing listens until Start.
func New(deps Deps, opts Options) *Server {
	if deps.Phases == nil {
		deps.Phases = phase.Default()
	}
	if deps.Extractor == nil {
		deps.Extractor = extract.New(extract.DefaultRules)
	}
	if deps.Telemetry == nil {
		deps.Telemetry = telemetry.NewNoopClient()
	}

	s := &Server{
		Deps:    deps,
		opts:    opts,
		origins: make(map[string]struct{}, len(opts.CORSOrigins)),
	}
	for _, o := range opts.CORSOrigins {
		s.origins[o] = struct{}{}
	}
	s.server = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.registerRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the full middleware-wrapped router.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start serves in the background and runs the completion queue worker.
// Listener failures are sent to errChan.
func (s *Server) Start(wg *sync.WaitGroup, errChan chan<- error) {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if s.Queue != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Queue.Run(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("API server listening", "addr", s.opts.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()
}

// Shutdown stops the listener and the queue worker.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	return s.server.Shutdown(ctx)
}
