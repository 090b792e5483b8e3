package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Features are reached through their project so ownership is always checked
// against projects.user_id.
const featureSelect = `
	SELECT f.id, f.project_id, f.name, f.details, f.created_at, f.updated_at
	FROM project_features f JOIN projects p ON p.id = f.project_id`

func scanFeature(row rowScanner) (*Feature, error) {
	var (
		f                  Feature
		created, updatedAt string
	)
	if err := row.Scan(&f.ID, &f.ProjectID, &f.Name, &f.Details, &created, &updatedAt); err != nil {
		return nil, err
	}
	f.CreatedAt = parseTime(created)
	f.UpdatedAt = parseTime(updatedAt)
	return &f, nil
}

// ListFeatures returns a project's features, most recently updated first.
func (s *Store) ListFeatures(userID, projectID int64) ([]Feature, error) {
	if _, err := s.GetProject(userID, projectID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(featureSelect+`
		WHERE f.project_id = ? AND p.user_id = ?
		ORDER BY f.updated_at DESC, f.id DESC
	`, projectID, userID)
	if err != nil {
		return nil, fmt.Errorf("query features: %w", err)
	}
	defer func() { _ = rows.Close() }()

	features := []Feature{}
	for rows.Next() {
		f, err := scanFeature(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feature: %w", err)
		}
		features = append(features, *f)
	}
	if err := checkRowsErr(rows); err != nil {
		return nil, err
	}
	return features, nil
}

// GetFeature returns a feature of a project owned by userID.
func (s *Store) GetFeature(userID, projectID, id int64) (*Feature, error) {
	f, err := scanFeature(s.db.QueryRow(featureSelect+`
		WHERE f.id = ? AND f.project_id = ? AND p.user_id = ?
	`, id, projectID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query feature: %w", err)
	}
	return f, nil
}

// CreateFeature inserts a feature. Names are unique per project.
func (s *Store) CreateFeature(userID, projectID int64, name, details string) (*Feature, error) {
	if _, err := s.GetProject(userID, projectID); err != nil {
		return nil, err
	}

	now := s.timestamp()
	res, err := s.db.Exec(`
		INSERT INTO project_features (project_id, name, details, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, projectID, strings.TrimSpace(name), normalizeDetails(details), now, now)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("feature %q: %w", name, ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("insert feature: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("feature id: %w", err)
	}
	return s.GetFeature(userID, projectID, id)
}

// UpdateFeature changes the name and/or details of a feature.
func (s *Store) UpdateFeature(userID, projectID, id int64, name, details *string) (*Feature, error) {
	if _, err := s.GetFeature(userID, projectID, id); err != nil {
		return nil, err
	}

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
	args = append(args, id, projectID)

	res, err := s.db.Exec(`UPDATE project_features SET `+strings.Join(sets, ", ")+` WHERE id = ? AND project_id = ?`, args...)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("feature name: %w", ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("update feature: %w", err)
	}
	if err := affected(res); err != nil {
		return nil, err
	}
	return s.GetFeature(userID, projectID, id)
}

// DeleteFeature removes a feature.
func (s *Store) DeleteFeature(userID, projectID, id int64) error {
	if _, err := s.GetFeature(userID, projectID, id); err != nil {
		return err
	}
	res, err := s.db.Exec(`DELETE FROM project_features WHERE id = ? AND project_id = ?`, id, projectID)
	if err != nil {
		return fmt.Errorf("delete feature: %w", err)
	}
	return affected(res)
}
