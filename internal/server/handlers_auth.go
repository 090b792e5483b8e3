package server

import (
	"net/http"

	"github.com/josephgoksu/PhaseWing/internal/auth"
	"github.com/josephgoksu/PhaseWing/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if err := s.Store.Ping(); err != nil {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	writeStatusJSON(w, code, map[string]string{"status": status})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeAPIJSON(w, map[string]any{
		"version":      s.opts.Version,
		"dashboardUrl": s.opts.DashboardURL,
		"phases":       s.Phases.Keys(),
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req auth.Registration
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := s.Auth.Register(req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeStatusJSON(w, http.StatusCreated, map[string]any{"user": u})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	identifier := req.Username
	if identifier == "" {
		identifier = req.Email
	}
	login, err := s.Auth.Login(identifier, req.Password)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeAPIJSON(w, login)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.Auth.Logout(r.Header.Get("Authorization")); err != nil {
		writeErr(w, err)
		return
	}
	writeAPIJSON(w, map[string]any{"success": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeAPIJSON(w, map[string]any{"user": userFrom(r)})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.Store.ListUsers()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeAPIJSON(w, map[string]any{"users": users})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		auth.Registration
		IsSuperuser bool `json:"is_superuser"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Registration.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := s.Store.CreateUser(req.Username, req.Email, req.Password, req.IsSuperuser)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeStatusJSON(w, http.StatusCreated, map[string]any{"user": u})
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Email       *string `json:"email"`
		Password    *string `json:"password"`
		IsActive    *bool   `json:"is_active"`
		IsSuperuser *bool   `json:"is_superuser"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Password != nil && len(*req.Password) < 6 {
		writeError(w, http.StatusBadRequest, "invalid password: failed min check")
		return
	}
	if me := userFrom(r); me != nil && me.ID == id && req.IsActive != nil && !*req.IsActive {
		writeError(w, http.StatusBadRequest, "cannot deactivate your own account")
		return
	}

	u, err := s.Store.UpdateUser(id, store.UserUpdate{
		Email:       req.Email,
		Password:    req.Password,
		IsActive:    req.IsActive,
		IsSuperuser: req.IsSuperuser,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeAPIJSON(w, map[string]any{"user": u})
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if me := userFrom(r); me != nil && me.ID == id {
		writeError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}
	if err := s.Store.DeleteUser(id); err != nil {
		writeErr(w, err)
		return
	}
	writeAPIJSON(w, map[string]any{"success": true})
}
