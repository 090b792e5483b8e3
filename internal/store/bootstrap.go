package store

import (
	"fmt"
	"log/slog"
)

// DefaultAdminUsername is the superuser created on an empty database.
const DefaultAdminUsername = "admin"

// EnsureAdmin creates the default superuser when no account exists. When
// password is empty a random one is generated and logged once.
func (s *Store) EnsureAdmin(email, password string) (*User, error) {
	n, err := s.CountUsers()
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, nil
	}

	generated := password == ""
	if generated {
		token, err := newToken()
		if err != nil {
			return nil, err
		}
		password = token[:16]
	}
	if email == "" {
		email = "admin@localhost"
	}

	u, err := s.CreateUser(DefaultAdminUsername, email, password, true)
	if err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	if generated {
		slog.Warn("created default superuser with a generated password; change it after first login",
			"username", u.Username, "password", password)
	} else {
		slog.Info("created default superuser", "username", u.Username)
	}
	return u, nil
}
