package store

import (
	"time"

	"github.com/josephgoksu/PhaseWing/internal/mapper"
)

// User is an account.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	IsSuperuser  bool       `json:"is_superuser"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// UserUpdate holds optional changes to a user. Nil fields are left alone.
type UserUpdate struct {
	Email       *string
	Password    *string
	IsActive    *bool
	IsSuperuser *bool
}

// Session is a login token.
type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Project is a user's project. Details is the JSON details tree.
type Project struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"-"`
	Name      string    `json:"name"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Record returns the mapper view of the project.
func (p *Project) Record() *mapper.Record {
	if p == nil {
		return nil
	}
	return &mapper.Record{ID: p.ID, Name: p.Name, Details: p.Details}
}

// Feature belongs to exactly one project.
type Feature struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	Name      string    `json:"name"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Record returns the mapper view of the feature.
func (f *Feature) Record() *mapper.Record {
	if f == nil {
		return nil
	}
	return &mapper.Record{ID: f.ID, Name: f.Name, Details: f.Details}
}

// Submission is a saved raw phase form submission.
type Submission struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"-"`
	ProjectID *int64    `json:"project_id"`
	FeatureID *int64    `json:"feature_id"`
	Phase     string    `json:"phase"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SubmissionFilter narrows ListSubmissions. Nil fields match everything.
type SubmissionFilter struct {
	ProjectID *int64
	FeatureID *int64
}
