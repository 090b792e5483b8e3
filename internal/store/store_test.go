package store

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/PhaseWing/internal/mapper"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestUser(t *testing.T, s *Store, name string) *User {
	t.Helper()
	u, err := s.CreateUser(name, name+"@example.com", "secret1", false)
	require.NoError(t, err)
	return u
}

func TestUsers(t *testing.T) {
	s := newTestStore(t)

	u, err := s.CreateUser("alice", "Alice@Example.com", "secret1", false)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.True(t, u.IsActive)
	assert.False(t, u.IsSuperuser)
	assert.True(t, u.CheckPassword("secret1"))
	assert.False(t, u.CheckPassword("wrong"))
	assert.Nil(t, u.LastLogin)

	_, err = s.CreateUser("alice", "other@example.com", "secret1", false)
	assert.ErrorIs(t, err, ErrConflict)
	_, err = s.CreateUser("alice2", "ALICE@example.com", "secret1", false)
	assert.ErrorIs(t, err, ErrConflict)

	byEmail, err := s.GetUserByEmail("alice@EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = s.GetUserByUsername("nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	inactive := false
	newPass := "changed1"
	updated, err := s.UpdateUser(u.ID, UserUpdate{IsActive: &inactive, Password: &newPass})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.True(t, updated.CheckPassword("changed1"))

	require.NoError(t, s.TouchLastLogin(u.ID))
	u, err = s.GetUser(u.ID)
	require.NoError(t, err)
	assert.NotNil(t, u.LastLogin)

	users, err := s.ListUsers()
	require.NoError(t, err)
	assert.Len(t, users, 1)

	require.NoError(t, s.DeleteUser(u.ID))
	assert.ErrorIs(t, s.DeleteUser(u.ID), ErrNotFound)
}

func TestSessions(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "bob")

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	sess, err := s.CreateSession(u.ID, time.Hour)
	require.NoError(t, err)
	assert.Len(t, sess.Token, 43)

	got, err := s.GetSession(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.UserID)
	assert.True(t, now.Add(time.Hour).Equal(got.ExpiresAt))

	now = now.Add(2 * time.Hour)
	_, err = s.GetSession(sess.Token)
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := s.PurgeExpiredSessions()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	sess, err = s.CreateSession(u.ID, 0)
	require.NoError(t, err)
	require.NoError(t, s.DeleteSession(sess.Token))
	_, err = s.GetSession(sess.Token)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProjectsAndFeatures(t *testing.T) {
	s := newTestStore(t)
	alice := newTestUser(t, s, "alice")
	bob := newTestUser(t, s, "bob")

	p, err := s.CreateProject(alice.ID, " Acme ", "")
	require.NoError(t, err)
	assert.Equal(t, "Acme", p.Name)
	assert.Equal(t, "{}", p.Details)

	_, err = s.CreateProject(alice.ID, "Acme", "{}")
	assert.ErrorIs(t, err, ErrConflict)
	_, err = s.CreateProject(bob.ID, "Acme", "{}")
	assert.NoError(t, err)

	_, err = s.GetProject(bob.ID, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	details := `{"general":{"name":"Acme"}}`
	p, err = s.UpdateProject(alice.ID, p.ID, nil, &details)
	require.NoError(t, err)
	assert.Equal(t, details, p.Details)

	f, err := s.CreateFeature(alice.ID, p.ID, "Checkout", `{"general":{}}`)
	require.NoError(t, err)
	assert.Equal(t, p.ID, f.ProjectID)

	_, err = s.CreateFeature(bob.ID, p.ID, "Sneaky", "{}")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.CreateFeature(alice.ID, p.ID, "Checkout", "{}")
	assert.ErrorIs(t, err, ErrConflict)

	name := "Checkout v2"
	f, err = s.UpdateFeature(alice.ID, p.ID, f.ID, &name, nil)
	require.NoError(t, err)
	assert.Equal(t, "Checkout v2", f.Name)

	features, err := s.ListFeatures(alice.ID, p.ID)
	require.NoError(t, err)
	assert.Len(t, features, 1)

	err = s.DeleteProject(alice.ID, p.ID)
	assert.True(t, errors.Is(err, ErrHasChildren))

	require.NoError(t, s.DeleteFeature(alice.ID, p.ID, f.ID))
	require.NoError(t, s.DeleteProject(alice.ID, p.ID))

	projects, err := s.ListProjects(alice.ID)
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestListProjectsOrder(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "carol")

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	first, err := s.CreateProject(u.ID, "First", "{}")
	require.NoError(t, err)
	s.now = func() time.Time { return base.Add(time.Minute) }
	_, err = s.CreateProject(u.ID, "Second", "{}")
	require.NoError(t, err)
	s.now = func() time.Time { return base.Add(2 * time.Minute) }
	name := "First (renamed)"
	_, err = s.UpdateProject(u.ID, first.ID, &name, nil)
	require.NoError(t, err)

	projects, err := s.ListProjects(u.ID)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "First (renamed)", projects[0].Name)
}

func TestSubmissions(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "dave")
	p, err := s.CreateProject(u.ID, "Acme", "{}")
	require.NoError(t, err)

	sub, err := s.CreateSubmission(u.ID, &p.ID, nil, "discovery", `{"projectName":"Acme"}`)
	require.NoError(t, err)
	assert.Equal(t, p.ID, *sub.ProjectID)
	assert.Nil(t, sub.FeatureID)

	_, err = s.CreateSubmission(u.ID, nil, nil, "testing", "")
	require.NoError(t, err)

	missing := int64(999)
	_, err = s.CreateSubmission(u.ID, &missing, nil, "testing", "")
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := s.ListSubmissions(u.ID, SubmissionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byProject, err := s.ListSubmissions(u.ID, SubmissionFilter{ProjectID: &p.ID})
	require.NoError(t, err)
	require.Len(t, byProject, 1)
	assert.Equal(t, "discovery", byProject[0].Phase)

	require.NoError(t, s.DeleteSubmission(u.ID, sub.ID))
	assert.ErrorIs(t, s.DeleteSubmission(u.ID, sub.ID), ErrNotFound)
}

func TestApplyPhase(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "erin")
	p, err := s.CreateProject(u.ID, "Acme", `{"general":{"stakeholders":"Alice - PM"}}`)
	require.NoError(t, err)
	f, err := s.CreateFeature(u.ID, p.ID, "Checkout", "{}")
	require.NoError(t, err)

	values := map[string]string{"stakeholders": "Alice - PM, Bob - Dev", "featureName": "Checkout"}
	res, err := s.ApplyPhase(u.ID, ApplyInput{
		ProjectID:      p.ID,
		FeatureID:      &f.ID,
		Phase:          "discovery",
		Values:         values,
		ProjectUpdates: mapper.Updates{"general.stakeholders": "Alice - PM, Bob - Dev"},
		FeatureUpdates: mapper.Updates{"general.tShirtSize": "M"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Alice - PM, Bob - Dev", mapper.Lookup(res.Project.Details, "general.stakeholders"))
	assert.Equal(t, "M", mapper.Lookup(res.Feature.Details, "general.tShirtSize"))
	assert.Equal(t, values, mapper.PhaseValues(res.Feature.Details, "discovery"))
	assert.Nil(t, mapper.PhaseValues(res.Project.Details, "discovery"))
	assert.Equal(t, "discovery", res.Submission.Phase)
}

func TestApplyPhase_RollsBackOnMissingFeature(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "frank")
	p, err := s.CreateProject(u.ID, "Acme", `{"general":{"name":"Acme"}}`)
	require.NoError(t, err)

	missing := int64(42)
	_, err = s.ApplyPhase(u.ID, ApplyInput{
		ProjectID:      p.ID,
		FeatureID:      &missing,
		Phase:          "discovery",
		ProjectUpdates: mapper.Updates{"general.name": "Changed"},
	})
	assert.ErrorIs(t, err, ErrNotFound)

	p, err = s.GetProject(u.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, `{"general":{"name":"Acme"}}`, p.Details)

	subs, err := s.ListSubmissions(u.ID, SubmissionFilter{})
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestEnsureAdmin(t *testing.T) {
	s := newTestStore(t)

	admin, err := s.EnsureAdmin("", "")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.True(t, admin.IsSuperuser)
	assert.Equal(t, DefaultAdminUsername, admin.Username)

	again, err := s.EnsureAdmin("", "pw")
	require.NoError(t, err)
	assert.Nil(t, again)
}
