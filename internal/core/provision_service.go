package core

import (
	"context"
	"fmt"
	"log"
	"strings"

	"talentwire.com/sourcing/internal/agent"
	"talentwire.com/sourcing/internal/auth"
	"talentwire.com/sourcing/internal/store"
)

// ProvisionService keeps a user's platform-side agents and tools in line with
// the pinned definitions. Tools are per-user: each carries that user's
// encrypted x-token so tool calls can be attributed and authenticated.
type ProvisionService struct {
	store      *store.SQLiteStore
	agent      *agent.Client
	crypter    *auth.Crypter
	appBaseURL string
}

func NewProvisionService(s *store.SQLiteStore, a *agent.Client, crypter *auth.Crypter, appBaseURL string) *ProvisionService {
	return &ProvisionService{store: s, agent: a, crypter: crypter, appBaseURL: appBaseURL}
}

// CreateOrUpdateUser provisions agents and tools for a first-time user, or
// refreshes the stored API key and pushes stale agent definitions for a
// returning one.
func (s *ProvisionService) CreateOrUpdateUser(ctx context.Context, info UserInfo, apiKey string) (*store.User, error) {
	if info.ID == "" || info.Email == "" {
		return nil, &ValidationError{Field: "user", Message: "User information is required"}
	}
	if apiKey == "" {
		return nil, &ValidationError{Field: "apiKey", Message: "Platform API key is required"}
	}

	encryptedKey, err := s.crypter.Encrypt(apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt API key: %w", err)
	}

	user, err := s.store.GetUserByExternalID(info.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if user == nil {
		return s.createUser(ctx, info, apiKey, encryptedKey)
	}

	log.Printf("Updating existing user %s", user.Email)
	user.EncryptedAPIKey = encryptedKey

	toolIDs, err := s.createTools(ctx, apiKey, info.ID)
	if err != nil {
		return nil, err
	}

	if user.SourcingAgentVersion != agent.SourcingAgentVersion {
		log.Printf("Updating sourcing agent for user %s from v%s to v%s", user.Email, user.SourcingAgentVersion, agent.SourcingAgentVersion)
		payload := agent.SourcingAgentDefinition(filterSearchTools(toolIDs))
		if err := s.agent.UpdateAgent(ctx, apiKey, user.SourcingAgentID, payload); err != nil {
			return nil, fmt.Errorf("failed to update sourcing agent: %w", err)
		}
		user.SourcingAgentVersion = agent.SourcingAgentVersion
	}

	if user.MatchingAgentVersion != agent.MatchingAgentVersion {
		log.Printf("Updating matching agent for user %s from v%s to v%s", user.Email, user.MatchingAgentVersion, agent.MatchingAgentVersion)
		if err := s.agent.UpdateAgent(ctx, apiKey, user.MatchingAgentID, agent.MatchingAgentDefinition()); err != nil {
			return nil, fmt.Errorf("failed to update matching agent: %w", err)
		}
		user.MatchingAgentVersion = agent.MatchingAgentVersion
	}

	if err := s.store.UpdateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *ProvisionService) createUser(ctx context.Context, info UserInfo, apiKey, encryptedKey string) (*store.User, error) {
	log.Printf("Creating new user and agents for %s", info.Email)

	toolIDs, err := s.createTools(ctx, apiKey, info.ID)
	if err != nil {
		return nil, err
	}

	sourcingAgentID, err := s.agent.CreateAgent(ctx, apiKey, agent.SourcingAgentDefinition(filterSearchTools(toolIDs)))
	if err != nil {
		return nil, fmt.Errorf("failed to create sourcing agent: %w", err)
	}

	matchingAgentID, err := s.agent.CreateAgent(ctx, apiKey, agent.MatchingAgentDefinition())
	if err != nil {
		return nil, fmt.Errorf("failed to create matching agent: %w", err)
	}

	displayName := info.Name
	if displayName == "" {
		displayName = strings.SplitN(info.Email, "@", 2)[0]
	}

	user := &store.User{
		ExternalUserID:       info.ID,
		Email:                info.Email,
		DisplayName:          displayName,
		EncryptedAPIKey:      encryptedKey,
		SourcingAgentID:      sourcingAgentID,
		SourcingAgentVersion: agent.SourcingAgentVersion,
		MatchingAgentID:      matchingAgentID,
		MatchingAgentVersion: agent.MatchingAgentVersion,
	}
	if err := s.store.CreateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

// createTools registers the tool set for one user. The context token baked
// into the tool's default headers is the user's id, encrypted; the search tool
// handler decrypts it to authenticate callbacks.
func (s *ProvisionService) createTools(ctx context.Context, apiKey, userID string) ([]string, error) {
	contextToken, err := s.crypter.Encrypt(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool context token: %w", err)
	}

	toolSetName := fmt.Sprintf("%s_v%s", agent.ToolSetName, agent.ToolVersion)
	schema := agent.SearchToolSchema(s.appBaseURL, userID)

	toolIDs, err := s.agent.CreateTool(ctx, apiKey, toolSetName, schema, contextToken)
	if err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	log.Printf("Registered %d tools for user %s", len(toolIDs), userID)
	return toolIDs, nil
}

func filterSearchTools(toolIDs []string) []string {
	var filtered []string
	for _, id := range toolIDs {
		if strings.Contains(id, SearchToolName) {
			filtered = append(filtered, id)
		}
	}
	if filtered == nil {
		return toolIDs
	}
	return filtered
}
