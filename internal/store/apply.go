package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/josephgoksu/PhaseWing/internal/mapper"
)

// ApplyInput is a confirmed phase submission to persist.
type ApplyInput struct {
	ProjectID      int64
	FeatureID      *int64
	Phase          string
	Values         map[string]string
	ProjectUpdates mapper.Updates
	FeatureUpdates mapper.Updates
}

// ApplyResult holds the records as they are after the apply.
type ApplyResult struct {
	Project    *Project    `json:"project"`
	Feature    *Feature    `json:"feature,omitempty"`
	Submission *Submission `json:"submission"`
}

// ApplyPhase writes accepted updates into the project and feature details,
// stores the raw values under phaseData for the phase (on the feature when
// there is one, else on the project) and records a submission row. Either
// everything is written or nothing is.
func (s *Store) ApplyPhase(userID int64, in ApplyInput) (*ApplyResult, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.timestamp()

	var projectDetails string
	err = tx.QueryRow(`SELECT details FROM projects WHERE id = ? AND user_id = ?`, in.ProjectID, userID).Scan(&projectDetails)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %d: %w", in.ProjectID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query project: %w", err)
	}

	projectDetails, err = in.ProjectUpdates.Apply(projectDetails)
	if err != nil {
		return nil, fmt.Errorf("apply project updates: %w", err)
	}

	if in.FeatureID != nil {
		var featureDetails string
		err = tx.QueryRow(`SELECT details FROM project_features WHERE id = ? AND project_id = ?`, *in.FeatureID, in.ProjectID).Scan(&featureDetails)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("feature %d: %w", *in.FeatureID, ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("query feature: %w", err)
		}
		if featureDetails, err = in.FeatureUpdates.Apply(featureDetails); err != nil {
			return nil, fmt.Errorf("apply feature updates: %w", err)
		}
		if featureDetails, err = mapper.WithPhaseData(featureDetails, in.Phase, in.Values); err != nil {
			return nil, fmt.Errorf("store phase data: %w", err)
		}
		if _, err = tx.Exec(`UPDATE project_features SET details = ?, updated_at = ? WHERE id = ?`, featureDetails, now, *in.FeatureID); err != nil {
			return nil, fmt.Errorf("update feature: %w", err)
		}
	} else if projectDetails, err = mapper.WithPhaseData(projectDetails, in.Phase, in.Values); err != nil {
		return nil, fmt.Errorf("store phase data: %w", err)
	}

	if _, err = tx.Exec(`UPDATE projects SET details = ?, updated_at = ? WHERE id = ?`, projectDetails, now, in.ProjectID); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}

	payload, err := json.Marshal(in.Values)
	if err != nil {
		return nil, fmt.Errorf("marshal values: %w", err)
	}
	res, err := tx.Exec(`
		INSERT INTO phase_submissions (user_id, project_id, feature_id, phase, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, userID, in.ProjectID, nullID(in.FeatureID), in.Phase, string(payload), now, now)
	if err != nil {
		return nil, fmt.Errorf("insert submission: %w", err)
	}
	subID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("submission id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	out := &ApplyResult{}
	if out.Project, err = s.GetProject(userID, in.ProjectID); err != nil {
		return nil, err
	}
	if in.FeatureID != nil {
		if out.Feature, err = s.GetFeature(userID, in.ProjectID, *in.FeatureID); err != nil {
			return nil, err
		}
	}
	if out.Submission, err = s.GetSubmission(userID, subID); err != nil {
		return nil, err
	}
	return out, nil
}
