package store

import (
	"encoding/json"
	"time"

	"talentwire.com/sourcing/internal/linkedin"
)

type User struct {
	ID                   int64     `json:"id"`
	ExternalUserID       string    `json:"external_user_id"`
	Email                string    `json:"email"`
	DisplayName          string    `json:"display_name"`
	EncryptedAPIKey      string    `json:"-"` // Platform API key, never exposed
	SourcingAgentID      string    `json:"sourcing_agent_id"`
	SourcingAgentVersion string    `json:"sourcing_agent_version"`
	MatchingAgentID      string    `json:"matching_agent_id"`
	MatchingAgentVersion string    `json:"matching_agent_version"`
	CreatedAt            time.Time `json:"created_at"`
}

// SearchSession is one multi-turn sourcing conversation. Turns live in their
// own table (append-only, insertion ordered); ToolResults is a single slot
// overwritten by each tool call, holding only the latest search's output.
type SearchSession struct {
	ID            string             `json:"id"` // UUID
	UserID        int64              `json:"user_id"`
	Title         string             `json:"title"`
	InitialQuery  string             `json:"initial_query"`
	AttachedJDID  *string            `json:"attached_jd_id"`
	Turns         []ConversationTurn `json:"conversation_history"`
	ToolResults   *ToolResults       `json:"tool_results,omitempty"`
	SchemaVersion int                `json:"schema_version"`
	CreatedAt     time.Time          `json:"created_at"`
}

type ConversationTurn struct {
	ID        int64     `json:"-"`
	SessionID string    `json:"-"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ToolResults is the session's tool-output slot.
type ToolResults struct {
	AllProfiles []linkedin.DisplayProfile `json:"allProfiles"`
	Timestamp   time.Time                 `json:"timestamp"`
}

// CandidateProfile is a persisted candidate record, keyed by the search API's
// stable public id. RawData is the upstream document stored verbatim.
type CandidateProfile struct {
	PublicID      string          `json:"public_id"`
	RawData       json.RawMessage `json:"raw_data"`
	LastFetchedAt time.Time       `json:"last_fetched_at"`
}
