package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const submissionColumns = `id, user_id, project_id, feature_id, phase, payload, created_at, updated_at`

func scanSubmission(row rowScanner) (*Submission, error) {
	var (
		sub                Submission
		projectID          sql.NullInt64
		featureID          sql.NullInt64
		created, updatedAt string
	)
	if err := row.Scan(&sub.ID, &sub.UserID, &projectID, &featureID, &sub.Phase, &sub.Payload, &created, &updatedAt); err != nil {
		return nil, err
	}
	if projectID.Valid {
		sub.ProjectID = &projectID.Int64
	}
	if featureID.Valid {
		sub.FeatureID = &featureID.Int64
	}
	sub.CreatedAt = parseTime(created)
	sub.UpdatedAt = parseTime(updatedAt)
	return &sub, nil
}

func nullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

// CreateSubmission saves a raw phase submission. Referenced projects and
// features must belong to userID.
func (s *Store) CreateSubmission(userID int64, projectID, featureID *int64, phase, payload string) (*Submission, error) {
	if projectID != nil {
		if _, err := s.GetProject(userID, *projectID); err != nil {
			return nil, fmt.Errorf("submission project: %w", err)
		}
		if featureID != nil {
			if _, err := s.GetFeature(userID, *projectID, *featureID); err != nil {
				return nil, fmt.Errorf("submission feature: %w", err)
			}
		}
	} else if featureID != nil {
		return nil, fmt.Errorf("submission feature without project: %w", ErrNotFound)
	}

	now := s.timestamp()
	res, err := s.db.Exec(`
		INSERT INTO phase_submissions (user_id, project_id, feature_id, phase, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, userID, nullID(projectID), nullID(featureID), phase, normalizeDetails(payload), now, now)
	if err != nil {
		return nil, fmt.Errorf("insert submission: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("submission id: %w", err)
	}

	return s.GetSubmission(userID, id)
}

// ListSubmissions returns the user's submissions, newest first.
func (s *Store) ListSubmissions(userID int64, filter SubmissionFilter) ([]Submission, error) {
	where := []string{"user_id = ?"}
	args := []any{userID}
	if filter.ProjectID != nil {
		where = append(where, "project_id = ?")
		args = append(args, *filter.ProjectID)
	}
	if filter.FeatureID != nil {
		where = append(where, "feature_id = ?")
		args = append(args, *filter.FeatureID)
	}

	rows, err := s.db.Query(`SELECT `+submissionColumns+` FROM phase_submissions
		WHERE `+strings.Join(where, " AND ")+` ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	subs := []Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		subs = append(subs, *sub)
	}
	if err := checkRowsErr(rows); err != nil {
		return nil, err
	}
	return subs, nil
}

// DeleteSubmission removes one of the user's submissions.
func (s *Store) DeleteSubmission(userID, id int64) error {
	res, err := s.db.Exec(`DELETE FROM phase_submissions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete submission: %w", err)
	}
	return affected(res)
}

// GetSubmission returns one of the user's submissions.
func (s *Store) GetSubmission(userID, id int64) (*Submission, error) {
	sub, err := scanSubmission(s.db.QueryRow(`SELECT `+submissionColumns+` FROM phase_submissions WHERE id = ? AND user_id = ?`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query submission: %w", err)
	}
	return sub, nil
}
