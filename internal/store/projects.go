package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const projectColumns = `id, user_id, name, details, created_at, updated_at`

func scanProject(row rowScanner) (*Project, error) {
	var (
		p                  Project
		created, updatedAt string
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Details, &created, &updatedAt); err != nil {
		return nil, err
	}
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

// ListProjects returns the user's projects, most recently updated first.
func (s *Store) ListProjects(userID int64) ([]Project, error) {
	rows, err := s.db.Query(`
		SELECT `+projectColumns+` FROM projects
		WHERE user_id = ? ORDER BY updated_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	projects := []Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	if err := checkRowsErr(rows); err != nil {
		return nil, err
	}
	return projects, nil
}

// GetProject returns a project owned by userID.
func (s *Store) GetProject(userID, id int64) (*Project, error) {
	p, err := scanProject(s.db.QueryRow(`
		SELECT `+projectColumns+` FROM projects WHERE id = ? AND user_id = ?
	`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query project: %w", err)
	}
	return p, nil
}

// CreateProject inserts a project for userID. Names are unique per user.
func (s *Store) CreateProject(userID int64, name, details string) (*Project, error) {
	now := s.timestamp()
	res, err := s.db.Exec(`
		INSERT INTO projects (user_id, name, details, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, userID, strings.TrimSpace(name), normalizeDetails(details), now, now)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("project %q: %w", name, ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("project id: %w", err)
	}
	return s.GetProject(userID, id)
}

// UpdateProject changes the name and/or details of a project. Nil
// arguments are left alone.
func (s *Store) UpdateProject(userID, id int64, name, details *string) (*Project, error) {
	sets := []string{"updated_at = ?"}
	args := []any{s.timestamp()}
	if name != nil {
		sets = append(sets, "name = ?")
		args = append(args, strings.TrimSpace(*name))
	}
	if details != nil {
		sets = append(sets, "details = ?")
		args = append(args, normalizeDetails(*details))
	}
	args = append(args, id, userID)

	res, err := s.db.Exec(`UPDATE projects SET `+strings.Join(sets, ", ")+` WHERE id = ? AND user_id = ?`, args...)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("project name: %w", ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	if err := affected(res); err != nil {
		return nil, err
	}
	return s.GetProject(userID, id)
}

// DeleteProject removes a project. It refuses while the project has features.
func (s *Store) DeleteProject(userID, id int64) error {
	if _, err := s.GetProject(userID, id); err != nil {
		return err
	}

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM project_features WHERE project_id = ?`, id).Scan(&n); err != nil {
		return fmt.Errorf("count features: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("project has %d features: %w", n, ErrHasChildren)
	}

	res, err := s.db.Exec(`DELETE FROM projects WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return affected(res)
}
