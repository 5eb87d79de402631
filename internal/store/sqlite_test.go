package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talentwire.com/sourcing/internal/linkedin"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestUser(t *testing.T, s *SQLiteStore) *User {
	t.Helper()
	user := &User{
		ExternalUserID:  "ext-1",
		Email:           "recruiter@example.com",
		DisplayName:     "Recruiter",
		EncryptedAPIKey: "enc-key",
	}
	require.NoError(t, s.CreateUser(user))
	return user
}

func TestUserLifecycle(t *testing.T) {
	s := newTestStore(t)
	user := createTestUser(t, s)
	require.NotZero(t, user.ID)

	loaded, err := s.GetUserByExternalID("ext-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "recruiter@example.com", loaded.Email)

	loaded.SourcingAgentID = "agent-1"
	loaded.SourcingAgentVersion = "1.2.1"
	require.NoError(t, s.UpdateUser(loaded))

	reloaded, err := s.GetUserByExternalID("ext-1")
	require.NoError(t, err)
	assert.Equal(t, "agent-1", reloaded.SourcingAgentID)

	missing, err := s.GetUserByExternalID("nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSearchSessionLifecycle(t *testing.T) {
	s := newTestStore(t)
	user := createTestUser(t, s)

	jd := "jd-9"
	session, err := s.CreateSearchSession(user.ID, "Find golang engineers...", "Find golang engineers in Berlin", &jd)
	require.NoError(t, err)
	require.NotEmpty(t, session.ID)

	_, err = s.AppendConversationTurn(session.ID, "user", "Find golang engineers in Berlin")
	require.NoError(t, err)
	_, err = s.AppendConversationTurn(session.ID, "assistant", "Here are some candidates")
	require.NoError(t, err)

	loaded, err := s.GetSearchSessionByID(session.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, user.ID, loaded.UserID)
	require.NotNil(t, loaded.AttachedJDID)
	assert.Equal(t, "jd-9", *loaded.AttachedJDID)
	assert.Equal(t, 1, loaded.SchemaVersion)

	require.Len(t, loaded.Turns, 2)
	assert.Equal(t, "user", loaded.Turns[0].Role)
	assert.Equal(t, "assistant", loaded.Turns[1].Role)

	sessions, err := s.GetSearchSessionsByUserID(user.ID)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)

	missing, err := s.GetSearchSessionByID("no-such-session")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestConversationTurnsKeepInsertionOrder(t *testing.T) {
	s := newTestStore(t)
	user := createTestUser(t, s)
	session, err := s.CreateSearchSession(user.ID, "t", "q", nil)
	require.NoError(t, err)

	// Identical timestamps must not reorder turns; the row id decides.
	for i := 0; i < 10; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		_, err := s.AppendConversationTurn(session.ID, role, string(rune('a'+i)))
		require.NoError(t, err)
	}

	loaded, err := s.GetSearchSessionByID(session.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Turns, 10)
	for i, turn := range loaded.Turns {
		assert.Equal(t, string(rune('a'+i)), turn.Content)
	}
}

func TestToolResultsRoundTripAndOverwrite(t *testing.T) {
	s := newTestStore(t)
	user := createTestUser(t, s)
	session, err := s.CreateSearchSession(user.ID, "t", "q", nil)
	require.NoError(t, err)

	first := &ToolResults{
		AllProfiles: []linkedin.DisplayProfile{
			{PublicID: "jane-doe-1", FullName: "Jane Doe", YearsOfExperience: 2.5, Education: []linkedin.Education{{School: "MIT"}}},
			{PublicID: "john-smith-2", FullName: "John Smith", Education: []linkedin.Education{}},
		},
		Timestamp: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.SetSessionToolResults(session.ID, first))

	loaded, err := s.GetSearchSessionByID(session.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.ToolResults)
	assert.Equal(t, first.AllProfiles, loaded.ToolResults.AllProfiles)

	// A later tool call replaces the slot entirely.
	second := &ToolResults{
		AllProfiles: []linkedin.DisplayProfile{{PublicID: "ada-l-3", FullName: "Ada L", Education: []linkedin.Education{}}},
		Timestamp:   time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.SetSessionToolResults(session.ID, second))

	reloaded, err := s.GetSearchSessionByID(session.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.ToolResults)
	require.Len(t, reloaded.ToolResults.AllProfiles, 1)
	assert.Equal(t, "ada-l-3", reloaded.ToolResults.AllProfiles[0].PublicID)
}

func TestSetToolResultsUnknownSession(t *testing.T) {
	s := newTestStore(t)
	err := s.SetSessionToolResults("ghost", &ToolResults{Timestamp: time.Now()})
	assert.Error(t, err)
}

func TestUpsertCandidateProfileIsIdempotent(t *testing.T) {
	s := newTestStore(t)

	firstPayload := json.RawMessage(`{"public_id":"jane-doe-1","full_name":"Jane Doe","company":"Acme"}`)
	created, err := s.UpsertCandidateProfile("jane-doe-1", firstPayload)
	require.NoError(t, err)
	assert.True(t, created)

	secondPayload := json.RawMessage(`{"public_id":"jane-doe-1","full_name":"Jane Doe","company":"Beta"}`)
	created, err = s.UpsertCandidateProfile("jane-doe-1", secondPayload)
	require.NoError(t, err)
	assert.False(t, created, "second sighting updates, not inserts")

	profile, err := s.GetCandidateProfile("jane-doe-1")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.JSONEq(t, string(secondPayload), string(profile.RawData), "last write wins on raw data")

	profiles, err := s.GetCandidateProfilesByPublicIDs([]string{"jane-doe-1", "missing"})
	require.NoError(t, err)
	assert.Len(t, profiles, 1, "unknown ids are simply absent")
}
