package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const userColumns = `id, username, email, password_hash, is_superuser, is_active, created_at, last_login`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u         User
		createdAt string
		lastLogin sql.NullString
		super     int
		active    int
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &super, &active, &createdAt, &lastLogin); err != nil {
		return nil, err
	}
	u.IsSuperuser = super != 0
	u.IsActive = active != 0
	u.CreatedAt = parseTime(createdAt)
	u.LastLogin = parseNullTime(lastLogin)
	return &u, nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the user's hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// CreateUser inserts a new active user.
func (s *Store) CreateUser(username, email, password string, superuser bool) (*User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	res, err := s.db.Exec(`
		INSERT INTO users (username, email, password_hash, is_superuser, is_active, created_at)
		VALUES (?, ?, ?, ?, 1, ?)
	`, strings.TrimSpace(username), strings.ToLower(strings.TrimSpace(email)), hash, boolInt(superuser), s.timestamp())
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("user %q: %w", username, ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("user id: %w", err)
	}
	return s.GetUser(id)
}

func (s *Store) queryUser(where string, arg any) (*User, error) {
	u, err := scanUser(s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}

// GetUser returns the user with id.
func (s *Store) GetUser(id int64) (*User, error) {
	return s.queryUser("id = ?", id)
}

// GetUserByUsername returns the user with username.
func (s *Store) GetUserByUsername(username string) (*User, error) {
	return s.queryUser("username = ?", strings.TrimSpace(username))
}

// GetUserByEmail returns the user with email, compared case-insensitively.
func (s *Store) GetUserByEmail(email string) (*User, error) {
	return s.queryUser("email = ?", strings.ToLower(strings.TrimSpace(email)))
}

// ListUsers returns every user ordered by id.
func (s *Store) ListUsers() ([]User, error) {
	rows, err := s.db.Query(`SELECT ` + userColumns + ` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := checkRowsErr(rows); err != nil {
		return nil, err
	}
	return users, nil
}

// CountUsers returns the number of accounts.
func (s *Store) CountUsers() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// UpdateUser applies the non-nil fields of upd.
func (s *Store) UpdateUser(id int64, upd UserUpdate) (*User, error) {
	var (
		sets []string
		args []any
	)
	if upd.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, strings.ToLower(strings.TrimSpace(*upd.Email)))
	}
	if upd.Password != nil {
		hash, err := HashPassword(*upd.Password)
		if err != nil {
			return nil, err
		}
		sets = append(sets, "password_hash = ?")
		args = append(args, hash)
	}
	if upd.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, boolInt(*upd.IsActive))
	}
	if upd.IsSuperuser != nil {
		sets = append(sets, "is_superuser = ?")
		args = append(args, boolInt(*upd.IsSuperuser))
	}
	if len(sets) == 0 {
		return s.GetUser(id)
	}

	args = append(args, id)
	res, err := s.db.Exec(`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("email: %w", ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	if err := affected(res); err != nil {
		return nil, err
	}
	return s.GetUser(id)
}

// DeleteUser removes a user and everything they own.
func (s *Store) DeleteUser(id int64) error {
	res, err := s.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return affected(res)
}

// TouchLastLogin records a successful login.
func (s *Store) TouchLastLogin(id int64) error {
	if _, err := s.db.Exec(`UPDATE users SET last_login = ? WHERE id = ?`, s.timestamp(), id); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}
