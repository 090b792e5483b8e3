// Package auth implements username/password login with opaque session tokens.
package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/josephgoksu/PhaseWing/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrDisabled           = errors.New("account is disabled")
	ErrUnauthenticated    = errors.New("missing or invalid session token")
	ErrForbidden          = errors.New("superuser required")
)

var validate = validator.New()

// Registration is the input to Register.
type Registration struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Validate checks registration fields and returns a readable error.
func (r Registration) Validate() error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid %s: failed %s check", strings.ToLower(verrs[0].Field()), verrs[0].Tag())
		}
		return err
	}
	return nil
}

// Login is a successful login.
type Login struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *store.User `json:"user"`
}

// Service authenticates users against the store.
type Service struct {
	store *store.Store
	ttl   time.Duration
}

// NewService creates a Service issuing tokens valid for ttl (24h when zero).
func NewService(s *store.Store, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = store.DefaultSessionTTL
	}
	return &Service{store: s, ttl: ttl}
}

// Register creates a regular account.
func (s *Service) Register(reg Registration) (*store.User, error) {
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(reg.Email)
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return s.store.CreateUser(reg.Username, reg.Email, reg.Password, false)
}

// Login checks credentials and issues a session. The identifier may be a
// username or an email address.
func (s *Service) Login(identifier, password string) (*Login, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.store.GetUserByUsername(identifier)
	if errors.Is(err, store.ErrNotFound) && strings.Contains(identifier, "@") {
		u, err = s.store.GetUserByEmail(identifier)
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !u.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrDisabled
	}

	sess, err := s.store.CreateSession(u.ID, s.ttl)
	if err != nil {
		return nil, err
	}
	if err := s.store.TouchLastLogin(u.ID); err != nil {
		slog.Warn("failed to record last login", "user", u.Username, "error", err)
	}
	if n, err := s.store.PurgeExpiredSessions(); err != nil {
		slog.Warn("failed to purge expired sessions", "error", err)
	} else if n > 0 {
		slog.Debug("purged expired sessions", "count", n)
	}
	slog.Debug("user logged in", "user", u.Username)
	return &Login{Token: sess.Token, ExpiresAt: sess.ExpiresAt, User: u}, nil
}

// Logout invalidates token.
func (s *Service) Logout(token string) error {
	token = StripBearer(token)
	if token == "" {
		return ErrUnauthenticated
	}
	return s.store.DeleteSession(token)
}

// Authenticate resolves a token, with or without a "Bearer " prefix, to
// its active user.
func (s *Service) Authenticate(token string) (*store.User, error) {
	token = StripBearer(token)
	if token == "" {
		return nil, ErrUnauthenticated
	}
	sess, err := s.store.GetSession(token)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	u, err := s.store.GetUser(sess.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrDisabled
	}
	return u, nil
}

// RequireSuperuser authenticates token and checks the superuser flag.
func (s *Service) RequireSuperuser(token string) (*store.User, error) {
	u, err := s.Authenticate(token)
	if err != nil {
		return nil, err
	}
	if !u.IsSuperuser {
		return nil, ErrForbidden
	}
	return u, nil
}

// StripBearer removes an optional case-insensitive "Bearer" scheme.
func StripBearer(header string) string {
	fields := strings.Fields(header)
	if len(fields) > 0 && strings.EqualFold(fields[0], "bearer") {
		fields = fields[1:]
	}
	return strings.Join(fields, " ")
}
