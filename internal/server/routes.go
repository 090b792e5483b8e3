package server

import "net/http"

// registerRoutes sets up all API endpoints
func (s *Server) registerRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/info", s.handleInfo)

	// Accounts
	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	mux.Handle("GET /api/auth/me", s.requireUser(s.handleMe))
	mux.Handle("GET /api/auth/users", s.requireSuperuser(s.handleListUsers))
	mux.Handle("POST /api/auth/users/create", s.requireSuperuser(s.handleCreateUser))
	mux.Handle("PUT /api/auth/users/{id}", s.requireSuperuser(s.handleUpdateUser))
	mux.Handle("DELETE /api/auth/users/{id}", s.requireSuperuser(s.handleDeleteUser))

	// Projects, features and submissions
	mux.Handle("GET /api/auth/projects", s.requireUser(s.handleListProjects))
	mux.Handle("POST /api/auth/projects", s.requireUser(s.handleCreateProject))
	mux.Handle("GET /api/auth/projects/{id}", s.requireUser(s.handleGetProject))
	mux.Handle("PUT /api/auth/projects/{id}", s.requireUser(s.handleUpdateProject))
	mux.Handle("DELETE /api/auth/projects/{id}", s.requireUser(s.handleDeleteProject))
	mux.Handle("GET /api/auth/projects/{id}/features", s.requireUser(s.handleListFeatures))
	mux.Handle("POST /api/auth/projects/{id}/features", s.requireUser(s.handleCreateFeature))
	mux.Handle("PUT /api/auth/projects/{id}/features/{fid}", s.requireUser(s.handleUpdateFeature))
	mux.Handle("DELETE /api/auth/projects/{id}/features/{fid}", s.requireUser(s.handleDeleteFeature))
	mux.Handle("GET /api/auth/submissions", s.requireUser(s.handleListSubmissions))
	mux.Handle("POST /api/auth/submissions", s.requireUser(s.handleCreateSubmission))
	mux.Handle("DELETE /api/auth/submissions/{id}", s.requireUser(s.handleDeleteSubmission))

	// Phases
	mux.HandleFunc("GET /api/phases", s.handleListPhases)
	mux.HandleFunc("GET /api/phases/{phase}", s.handleGetPhase)
	mux.HandleFunc("POST /api/phases/{phase}/render", s.handleRenderPhase)

	// Mapper
	mux.Handle("POST /api/mapper/{phase}/derive", s.requireUser(s.handleDerive))
	mux.Handle("POST /api/mapper/{phase}/apply", s.requireUser(s.handleApply))
	mux.Handle("POST /api/mapper/{phase}/prefill", s.requireUser(s.handlePrefill))
	mux.HandleFunc("POST /api/extract", s.handleExtract)

	// AI helpers
	mux.HandleFunc("POST /api/prompt-synthesizer", s.handleSynthesize)
	mux.HandleFunc("GET /api/prompt-synthesizer/health", s.handleSynthHealth)
	mux.HandleFunc("POST /gpt/queue", s.handleQueueSubmit)
	mux.HandleFunc("GET /gpt/status/{id}", s.handleQueueStatus)
	mux.HandleFunc("GET /gpt/queue/status", s.handleQueueStats)
	mux.HandleFunc("POST /api/transcribe", s.handleTranscribe)

	return s.recoverMiddleware(s.logMiddleware(s.corsMiddleware(mux)))
}
