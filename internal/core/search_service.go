package core

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"talentwire.com/sourcing/internal/linkedin"
	"talentwire.com/sourcing/internal/store"
)

// MaxSearchLimit caps the per-search result count regardless of what the
// agent asks for.
const MaxSearchLimit = 50

// SearchToolName is the logical tool identity used when publishing results;
// registered platform tool names contain it as a substring.
const SearchToolName = "search_candidates"

// SearchService implements the search_candidates tool: it runs the external
// search, persists the returned profiles, and publishes the result set for the
// conversation's chat turn to pick up.
type SearchService struct {
	store      *store.SQLiteStore
	search     *linkedin.Client
	publishers []ResultPublisher
}

func NewSearchService(s *store.SQLiteStore, search *linkedin.Client, publishers ...ResultPublisher) *SearchService {
	return &SearchService{store: s, search: search, publishers: publishers}
}

// SearchRequest carries the tool call's body. GeoCodes arrive as raw strings
// from the agent and are sanitized here.
type SearchRequest struct {
	SessionID           string   `json:"session_id"`
	Keywords            string   `json:"keywords"`
	TitleKeywords       []string `json:"title_keywords"`
	CurrentCompanyNames []string `json:"current_company_names"`
	PastCompanyNames    []string `json:"past_company_names"`
	GeoCodes            []string `json:"geo_codes"`
	Limit               int      `json:"limit"`
}

type SearchSummary struct {
	Message      string
	TotalCount   int
	TotalFetched int
	TotalStored  int
	TotalSkipped int
	Data         []linkedin.LLMProfile
	AllProfiles  []linkedin.DisplayProfile
}

// SearchCandidates validates the request, runs the blocking search, upserts
// each returned profile, and publishes the display list keyed by session id.
// Per-profile failures are skipped and counted, never fatal to the call.
func (s *SearchService) SearchCandidates(ctx context.Context, req SearchRequest) (*SearchSummary, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return nil, &ValidationError{
			Field:   "session_id",
			Message: "session_id parameter is required; the agent must supply it from the conversation context (system prompt variable session_id)",
		}
	}

	keywords := strings.TrimSpace(req.Keywords)
	if keywords == "" {
		return nil, &ValidationError{
			Field:   "keywords",
			Message: "keywords parameter is required and must be a non-empty string",
		}
	}

	limit := req.Limit
	if limit <= 0 || limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	params := linkedin.SearchParams{
		Keywords:            keywords,
		TitleKeywords:       req.TitleKeywords,
		CurrentCompanyNames: req.CurrentCompanyNames,
		PastCompanyNames:    req.PastCompanyNames,
		GeoCodes:            SanitizeGeoCodes(req.GeoCodes),
		Limit:               limit,
	}

	log.Printf("Executing candidate search for session %s: keywords=%q limit=%d", req.SessionID, keywords, limit)

	results, err := s.search.Search(ctx, params)
	if err != nil {
		return nil, err
	}

	if len(results.Data) == 0 {
		return &SearchSummary{
			Message:     "No candidates found matching the search criteria.",
			TotalCount:  results.TotalCount,
			Data:        []linkedin.LLMProfile{},
			AllProfiles: []linkedin.DisplayProfile{},
		}, nil
	}

	summary := &SearchSummary{
		TotalCount:  results.TotalCount,
		Data:        make([]linkedin.LLMProfile, 0, len(results.Data)),
		AllProfiles: make([]linkedin.DisplayProfile, 0, len(results.Data)),
	}

	for i := range results.Data {
		profile := &results.Data[i]

		if profile.PublicID == "" {
			log.Printf("Skipping profile without public_id: %s", nameOrUnknown(profile))
			summary.TotalSkipped++
			continue
		}

		created, err := s.store.UpsertCandidateProfile(profile.PublicID, profile.Raw)
		if err != nil {
			log.Printf("Failed to persist profile %s: %v", profile.PublicID, err)
			summary.TotalSkipped++
			continue
		}
		if created {
			summary.TotalStored++
		}

		summary.Data = append(summary.Data, linkedin.FormatForLLM(profile))
		summary.AllProfiles = append(summary.AllProfiles, linkedin.FormatForDisplay(profile))
	}

	summary.TotalFetched = len(summary.AllProfiles)
	summary.Message = fmt.Sprintf("Found %d candidates matching your criteria.", len(summary.Data))
	log.Printf("Profile processing complete for session %s: %d stored, %d skipped, %d processed",
		req.SessionID, summary.TotalStored, summary.TotalSkipped, summary.TotalFetched)

	s.publish(ctx, req.SessionID, summary.AllProfiles)

	return summary, nil
}

// publish delivers the display list to every configured publisher. Publication
// failure never fails the tool call; the response body still carries the full
// result to the platform.
func (s *SearchService) publish(ctx context.Context, sessionID string, profiles []linkedin.DisplayProfile) {
	results := &store.ToolResults{
		AllProfiles: profiles,
		Timestamp:   time.Now(),
	}

	for _, publisher := range s.publishers {
		if err := publisher.Publish(ctx, sessionID, SearchToolName, results); err != nil {
			log.Printf("Warning: failed to publish tool results for session %s: %v", sessionID, err)
		}
	}
}

// SanitizeGeoCodes parses raw location codes, silently dropping entries that
// are not integers. Dropped values are logged for observability.
func SanitizeGeoCodes(raw []string) []int {
	var codes []int
	for _, value := range raw {
		code, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			log.Printf("Dropping unparsable geo code %q", value)
			continue
		}
		codes = append(codes, code)
	}
	return codes
}

func nameOrUnknown(p *linkedin.Profile) string {
	if p.FullName != "" {
		return p.FullName
	}
	return "Unknown"
}
