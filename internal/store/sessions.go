package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

// DefaultSessionTTL is how long a login token stays valid.
const DefaultSessionTTL = 24 * time.Hour

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// CreateSession issues a new token for userID valid for ttl.
func (s *Store) CreateSession(userID int64, ttl time.Duration) (*Session, error) {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	sess := &Session{Token: token, UserID: userID, CreatedAt: now, ExpiresAt: now.Add(ttl)}

	_, err = s.db.Exec(`
		INSERT INTO sessions (user_id, session_token, created_at, expires_at)
		VALUES (?, ?, ?, ?)
	`, userID, token, now.Format(timeFormat), sess.ExpiresAt.Format(timeFormat))
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

// GetSession returns the unexpired session for token.
func (s *Store) GetSession(token string) (*Session, error) {
	var (
		sess               Session
		created, expiresAt string
	)
	err := s.db.QueryRow(`
		SELECT session_token, user_id, created_at, expires_at
		FROM sessions WHERE session_token = ? AND expires_at > ?
	`, token, s.timestamp()).Scan(&sess.Token, &sess.UserID, &created, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	sess.CreatedAt = parseTime(created)
	sess.ExpiresAt = parseTime(expiresAt)
	return &sess, nil
}

// DeleteSession removes a token. Deleting an unknown token is not an error.
func (s *Store) DeleteSession(token string) error {
	if _, err := s.db.Exec(`DELETE FROM sessions WHERE session_token = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpiredSessions deletes expired tokens and returns how many were removed.
func (s *Store) PurgeExpiredSessions() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE expires_at <= ?`, s.timestamp())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
