package core

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"talentwire.com/sourcing/internal/agent"
	"talentwire.com/sourcing/internal/auth"
	"talentwire.com/sourcing/internal/cache"
	"talentwire.com/sourcing/internal/locations"
	"talentwire.com/sourcing/internal/pubsub"
	"talentwire.com/sourcing/internal/store"
)

const sessionTitleLimit = 50

// ChatService is the front door for a user's natural-language sourcing query.
// It owns session lifecycle around the agent platform call and recovers the
// structured tool results the search tool wrote out-of-band while the agent
// was reasoning.
type ChatService struct {
	store   *store.SQLiteStore
	agent   *agent.Client
	cache   *cache.ResultCache
	crypter *auth.Crypter
	broker  *pubsub.Broker
}

func NewChatService(s *store.SQLiteStore, a *agent.Client, c *cache.ResultCache, crypter *auth.Crypter, broker *pubsub.Broker) *ChatService {
	return &ChatService{store: s, agent: a, cache: c, crypter: crypter, broker: broker}
}

type UserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type SendRequest struct {
	Query     string   `json:"query"`
	JDID      string   `json:"jdId"`
	User      UserInfo `json:"user"`
	SessionID string   `json:"sessionId"`
}

// Send runs one conversation turn: create or load the session, delegate to
// the agent platform, then re-read the session to pick up any tool results
// that landed during the agent's tool call.
func (s *ChatService) Send(ctx context.Context, req SendRequest) (string, string, *store.ToolResults, error) {
	user, session, err := s.prepareTurn(req)
	if err != nil {
		return "", "", nil, err
	}

	apiKey, err := s.crypter.Decrypt(user.EncryptedAPIKey)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to decrypt platform API key for user %s: %w", user.ExternalUserID, err)
	}

	log.Printf("Calling sourcing agent %s for session %s (user %s)", user.SourcingAgentID, session.ID, user.Email)

	chatResp, err := s.agent.Chat(ctx, apiKey, agent.ChatRequest{
		UserID:                user.Email,
		AgentID:               user.SourcingAgentID,
		SessionID:             session.ID,
		Message:               req.Query,
		SystemPromptVariables: s.systemPromptVariables(user, session.ID),
	})
	if err != nil {
		return "", "", nil, fmt.Errorf("agent chat failed for session %s: %w", session.ID, err)
	}

	toolResults := s.recoverToolResults(session.ID)

	if _, err := s.store.AppendConversationTurn(session.ID, "assistant", chatResp.Response); err != nil {
		log.Printf("Warning: failed to store assistant turn for session %s: %v", session.ID, err)
	}

	return chatResp.Response, session.ID, toolResults, nil
}

// StartSearch creates a session, kicks off a streaming agent run in the
// background and returns the session id immediately. Stream consumers attach
// via the broker.
func (s *ChatService) StartSearch(ctx context.Context, req SendRequest) (string, error) {
	req.SessionID = "" // streaming kickoff always opens a fresh conversation
	user, session, err := s.prepareTurn(req)
	if err != nil {
		return "", err
	}

	apiKey, err := s.crypter.Decrypt(user.EncryptedAPIKey)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt platform API key for user %s: %w", user.ExternalUserID, err)
	}

	chatReq := agent.ChatRequest{
		UserID:                user.Email,
		AgentID:               user.SourcingAgentID,
		SessionID:             session.ID,
		Message:               req.Query,
		SystemPromptVariables: s.systemPromptVariables(user, session.ID),
	}

	go func() {
		// Detached from the request context: the kickoff response returns
		// before the stream finishes.
		streamCtx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
		defer cancel()

		if err := s.streamAndPublish(streamCtx, apiKey, chatReq); err != nil {
			log.Printf("Error streaming agent response for session %s: %v", session.ID, err)
			s.broker.Publish(session.ID, pubsub.Event{Type: "error", Error: err.Error()})
		}
	}()

	return session.ID, nil
}

// prepareTurn validates the request, resolves the user, and returns the
// session with the new user turn already appended.
func (s *ChatService) prepareTurn(req SendRequest) (*store.User, *store.SearchSession, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, nil, &ValidationError{Field: "query", Message: "Query is required"}
	}
	if req.User.ID == "" || req.User.Email == "" {
		return nil, nil, &ValidationError{Field: "user", Message: "User information is required"}
	}

	user, err := s.store.GetUserByExternalID(req.User.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, nil, ErrUserNotFound
	}

	var session *store.SearchSession
	if req.SessionID == "" {
		var jdID *string
		if req.JDID != "" {
			jdID = &req.JDID
		}
		session, err = s.store.CreateSearchSession(user.ID, sessionTitle(req.Query), req.Query, jdID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create search session: %w", err)
		}
		log.Printf("Created new search session %s for user %s", session.ID, user.Email)
	} else {
		session, err = s.store.GetSearchSessionByID(req.SessionID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load search session: %w", err)
		}
		if session == nil {
			return nil, nil, ErrSessionNotFound
		}
		log.Printf("Continuing search session %s for user %s", session.ID, user.Email)
	}

	if _, err := s.store.AppendConversationTurn(session.ID, "user", req.Query); err != nil {
		return nil, nil, fmt.Errorf("failed to store user turn: %w", err)
	}

	return user, session, nil
}

// recoverToolResults reads the session's tool-results slot, falling back to
// the in-memory cache. Failure here is non-fatal: the agent's text answer is
// still returned without structured profiles.
func (s *ChatService) recoverToolResults(sessionID string) *store.ToolResults {
	session, err := s.store.GetSearchSessionByID(sessionID)
	if err != nil {
		log.Printf("Warning: failed to re-load session %s for tool result recovery: %v", sessionID, err)
	} else if session != nil && session.ToolResults != nil {
		log.Printf("Recovered %d profiles from session %s", len(session.ToolResults.AllProfiles), sessionID)
		return session.ToolResults
	}

	if cached, ok := s.cache.GetLatestByToolName(sessionID, SearchToolName); ok {
		if results, ok := cached.(*store.ToolResults); ok {
			log.Printf("Recovered %d profiles from result cache for session %s", len(results.AllProfiles), sessionID)
			return results
		}
	}
	return nil
}

func (s *ChatService) systemPromptVariables(user *store.User, sessionID string) map[string]any {
	name := user.DisplayName
	if name == "" {
		name = strings.SplitN(user.Email, "@", 2)[0]
	}
	return map[string]any{
		"user_name":           name,
		"session_id":          sessionID,
		"available_locations": locations.Serialized(),
		"datetime":            time.Now().Format(time.RFC3339),
	}
}

// streamAndPublish consumes the platform's SSE stream, republishing each
// "data:" chunk through the broker until the [DONE] marker. The accumulated
// text is persisted as the assistant turn once the stream completes.
func (s *ChatService) streamAndPublish(ctx context.Context, apiKey string, req agent.ChatRequest) error {
	stream, err := s.agent.StreamChat(ctx, apiKey, req)
	if err != nil {
		return err
	}
	defer stream.Close()

	var assistantText strings.Builder

	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data: "))
		if data == "[DONE]" {
			break
		}
		assistantText.WriteString(data)
		s.broker.Publish(req.SessionID, pubsub.Event{Type: "chunk", Data: data})
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading agent stream: %w", err)
	}

	if assistantText.Len() > 0 {
		if _, err := s.store.AppendConversationTurn(req.SessionID, "assistant", assistantText.String()); err != nil {
			log.Printf("Warning: failed to store streamed assistant turn for session %s: %v", req.SessionID, err)
		}
	}

	log.Printf("Stream completed for session %s", req.SessionID)
	s.broker.Publish(req.SessionID, pubsub.Event{Type: "done"})
	return nil
}

func sessionTitle(query string) string {
	if len(query) > sessionTitleLimit {
		return query[:sessionTitleLimit] + "..."
	}
	return query
}
