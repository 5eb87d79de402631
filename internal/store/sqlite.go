package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serializes writers anyway; a single pooled connection avoids
	// SQLITE_BUSY and keeps :memory: databases coherent.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        external_user_id TEXT UNIQUE NOT NULL,
        email TEXT NOT NULL,
        display_name TEXT NOT NULL DEFAULT '',
        encrypted_api_key TEXT NOT NULL DEFAULT '',
        sourcing_agent_id TEXT NOT NULL DEFAULT '',
        sourcing_agent_version TEXT NOT NULL DEFAULT '',
        matching_agent_id TEXT NOT NULL DEFAULT '',
        matching_agent_version TEXT NOT NULL DEFAULT '',
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS search_sessions (
        id TEXT PRIMARY KEY, -- UUID
        user_id INTEGER NOT NULL,
        title TEXT NOT NULL,
        initial_query TEXT NOT NULL,
        attached_jd_id TEXT,
        tool_results_json TEXT,
        schema_version INTEGER NOT NULL DEFAULT 1,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (user_id) REFERENCES users (id)
    );

    CREATE TABLE IF NOT EXISTS conversation_turns (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        session_id TEXT NOT NULL,
        role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
        content TEXT NOT NULL,
        timestamp DATETIME NOT NULL,
        FOREIGN KEY (session_id) REFERENCES search_sessions (id)
    );

    CREATE TABLE IF NOT EXISTS candidate_profiles (
        public_id TEXT PRIMARY KEY,
        raw_data TEXT NOT NULL,
        last_fetched_at DATETIME NOT NULL
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// User methods

func (s *SQLiteStore) GetUserByExternalID(externalUserID string) (*User, error) {
	var user User
	err := s.db.QueryRow(`SELECT id, external_user_id, email, display_name, encrypted_api_key,
        sourcing_agent_id, sourcing_agent_version, matching_agent_id, matching_agent_version, created_at
        FROM users WHERE external_user_id = ?`, externalUserID).
		Scan(&user.ID, &user.ExternalUserID, &user.Email, &user.DisplayName, &user.EncryptedAPIKey,
			&user.SourcingAgentID, &user.SourcingAgentVersion, &user.MatchingAgentID, &user.MatchingAgentVersion, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

func (s *SQLiteStore) CreateUser(user *User) error {
	res, err := s.db.Exec(`INSERT INTO users (external_user_id, email, display_name, encrypted_api_key,
        sourcing_agent_id, sourcing_agent_version, matching_agent_id, matching_agent_version)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ExternalUserID, user.Email, user.DisplayName, user.EncryptedAPIKey,
		user.SourcingAgentID, user.SourcingAgentVersion, user.MatchingAgentID, user.MatchingAgentVersion)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	user.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) UpdateUser(user *User) error {
	res, err := s.db.Exec(`UPDATE users SET email = ?, display_name = ?, encrypted_api_key = ?,
        sourcing_agent_id = ?, sourcing_agent_version = ?, matching_agent_id = ?, matching_agent_version = ?
        WHERE id = ?`,
		user.Email, user.DisplayName, user.EncryptedAPIKey,
		user.SourcingAgentID, user.SourcingAgentVersion, user.MatchingAgentID, user.MatchingAgentVersion,
		user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("user %d not found, nothing updated", user.ID)
	}
	return nil
}

// SearchSession methods

func (s *SQLiteStore) CreateSearchSession(userID int64, title, initialQuery string, attachedJDID *string) (*SearchSession, error) {
	session := &SearchSession{
		ID:            uuid.NewString(),
		UserID:        userID,
		Title:         title,
		InitialQuery:  initialQuery,
		AttachedJDID:  attachedJDID,
		SchemaVersion: 1,
		CreatedAt:     time.Now(),
	}

	_, err := s.db.Exec(`INSERT INTO search_sessions (id, user_id, title, initial_query, attached_jd_id, schema_version, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.UserID, session.Title, session.InitialQuery, session.AttachedJDID, session.SchemaVersion, session.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert search session: %w", err)
	}
	return session, nil
}

// GetSearchSessionByID loads a session with its turns and tool results.
// Returns nil, nil when the session does not exist.
func (s *SQLiteStore) GetSearchSessionByID(sessionID string) (*SearchSession, error) {
	var session SearchSession
	var toolResultsJSON sql.NullString
	err := s.db.QueryRow(`SELECT id, user_id, title, initial_query, attached_jd_id, tool_results_json, schema_version, created_at
        FROM search_sessions WHERE id = ?`, sessionID).
		Scan(&session.ID, &session.UserID, &session.Title, &session.InitialQuery, &session.AttachedJDID,
			&toolResultsJSON, &session.SchemaVersion, &session.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get search session: %w", err)
	}

	if toolResultsJSON.Valid && toolResultsJSON.String != "" {
		var results ToolResults
		if err := json.Unmarshal([]byte(toolResultsJSON.String), &results); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tool results for session %s: %w", sessionID, err)
		}
		session.ToolResults = &results
	}

	turns, err := s.getTurnsBySessionID(sessionID)
	if err != nil {
		return nil, err
	}
	session.Turns = turns

	return &session, nil
}

func (s *SQLiteStore) GetSearchSessionsByUserID(userID int64) ([]SearchSession, error) {
	rows, err := s.db.Query(`SELECT id, user_id, title, initial_query, attached_jd_id, schema_version, created_at
        FROM search_sessions WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query search sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SearchSession
	for rows.Next() {
		var session SearchSession
		if err := rows.Scan(&session.ID, &session.UserID, &session.Title, &session.InitialQuery,
			&session.AttachedJDID, &session.SchemaVersion, &session.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan search session row: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// AppendConversationTurn adds a turn to the session's ordered history. The
// autoincrement row id is the ordering token; turns are never updated.
func (s *SQLiteStore) AppendConversationTurn(sessionID, role, content string) (*ConversationTurn, error) {
	turn := &ConversationTurn{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}

	res, err := s.db.Exec(`INSERT INTO conversation_turns (session_id, role, content, timestamp) VALUES (?, ?, ?, ?)`,
		turn.SessionID, turn.Role, turn.Content, turn.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to insert conversation turn: %w", err)
	}
	turn.ID, _ = res.LastInsertId()
	return turn, nil
}

func (s *SQLiteStore) getTurnsBySessionID(sessionID string) ([]ConversationTurn, error) {
	rows, err := s.db.Query(`SELECT id, session_id, role, content, timestamp
        FROM conversation_turns WHERE session_id = ? ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation turns: %w", err)
	}
	defer rows.Close()

	var turns []ConversationTurn
	for rows.Next() {
		var turn ConversationTurn
		if err := rows.Scan(&turn.ID, &turn.SessionID, &turn.Role, &turn.Content, &turn.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan conversation turn row: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

// SetSessionToolResults overwrites the session's tool-results slot. Only the
// latest tool call's output survives; last write wins across concurrent calls.
func (s *SQLiteStore) SetSessionToolResults(sessionID string, results *ToolResults) error {
	payload, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to marshal tool results: %w", err)
	}

	res, err := s.db.Exec(`UPDATE search_sessions SET tool_results_json = ? WHERE id = ?`, string(payload), sessionID)
	if err != nil {
		return fmt.Errorf("failed to update tool results: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("session %s not found, tool results not stored", sessionID)
	}
	return nil
}

// CandidateProfile methods

// UpsertCandidateProfile inserts a profile on first sight and overwrites
// raw_data / last_fetched_at on every subsequent one. Returns whether the
// profile was newly created.
func (s *SQLiteStore) UpsertCandidateProfile(publicID string, rawData []byte) (bool, error) {
	existing, err := s.GetCandidateProfile(publicID)
	if err != nil {
		return false, err
	}

	now := time.Now()
	if existing == nil {
		_, err := s.db.Exec(`INSERT INTO candidate_profiles (public_id, raw_data, last_fetched_at) VALUES (?, ?, ?)`,
			publicID, string(rawData), now)
		if err != nil {
			return false, fmt.Errorf("failed to insert candidate profile: %w", err)
		}
		return true, nil
	}

	_, err = s.db.Exec(`UPDATE candidate_profiles SET raw_data = ?, last_fetched_at = ? WHERE public_id = ?`,
		string(rawData), now, publicID)
	if err != nil {
		return false, fmt.Errorf("failed to update candidate profile: %w", err)
	}
	return false, nil
}

func (s *SQLiteStore) GetCandidateProfile(publicID string) (*CandidateProfile, error) {
	var profile CandidateProfile
	var rawData string
	err := s.db.QueryRow(`SELECT public_id, raw_data, last_fetched_at FROM candidate_profiles WHERE public_id = ?`, publicID).
		Scan(&profile.PublicID, &rawData, &profile.LastFetchedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get candidate profile: %w", err)
	}
	profile.RawData = json.RawMessage(rawData)
	return &profile, nil
}

func (s *SQLiteStore) GetCandidateProfilesByPublicIDs(publicIDs []string) ([]CandidateProfile, error) {
	profiles := make([]CandidateProfile, 0, len(publicIDs))
	for _, publicID := range publicIDs {
		profile, err := s.GetCandidateProfile(publicID)
		if err != nil {
			return nil, err
		}
		if profile != nil {
			profiles = append(profiles, *profile)
		}
	}
	return profiles, nil
}
