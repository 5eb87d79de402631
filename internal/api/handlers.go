package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"talentwire.com/sourcing/internal/auth"
	"talentwire.com/sourcing/internal/core"
	"talentwire.com/sourcing/internal/linkedin"
	"talentwire.com/sourcing/internal/pubsub"
	"talentwire.com/sourcing/internal/store"
)

type APIHandler struct {
	chatService      *core.ChatService
	searchService    *core.SearchService
	provisionService *core.ProvisionService
	dbStore          *store.SQLiteStore
	broker           *pubsub.Broker
	crypter          *auth.Crypter
	apiAuthToken     string
}

func NewAPIHandler(
	cs *core.ChatService,
	ss *core.SearchService,
	ps *core.ProvisionService,
	db *store.SQLiteStore,
	broker *pubsub.Broker,
	crypter *auth.Crypter,
	apiAuthToken string,
) *APIHandler {
	return &APIHandler{
		chatService:      cs,
		searchService:    ss,
		provisionService: ps,
		dbStore:          db,
		broker:           broker,
		crypter:          crypter,
		apiAuthToken:     apiAuthToken,
	}
}

type errorResponse struct {
	Success bool   `json:"success,omitempty"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, summary, details string) {
	writeJSON(w, status, errorResponse{Error: summary, Details: details})
}

// BearerAuthMiddleware guards the UI-facing endpoints with the static service
// token.
func (h *APIHandler) BearerAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || authHeader != "Bearer "+h.apiAuthToken {
			writeError(w, http.StatusUnauthorized, "Unauthorized - Invalid token", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type chatSendResponse struct {
	Success     bool                      `json:"success"`
	Response    string                    `json:"response"`
	SessionID   string                    `json:"sessionId"`
	AllProfiles []linkedin.DisplayProfile `json:"all_profiles"`
	Message     string                    `json:"message"`
}

func (h *APIHandler) ChatSendHandler(w http.ResponseWriter, r *http.Request) {
	var req core.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	response, sessionID, toolResults, err := h.chatService.Send(r.Context(), req)
	if err != nil {
		h.writeChatError(w, err)
		return
	}

	resp := chatSendResponse{
		Success:   true,
		Response:  response,
		SessionID: sessionID,
		Message:   "Chat completed successfully",
	}
	if toolResults != nil {
		resp.AllProfiles = toolResults.AllProfiles
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *APIHandler) StartSearchHandler(w http.ResponseWriter, r *http.Request) {
	var req core.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	sessionID, err := h.chatService.StartSearch(r.Context(), req)
	if err != nil {
		h.writeChatError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"sessionId": sessionID,
		"message":   "Search initiated. Connect to stream endpoint for real-time updates.",
	})
}

// StreamHandler relays a session's streaming events to the client as SSE.
func (h *APIHandler) StreamHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported", "")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, cancel := h.broker.Subscribe(sessionID)
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-events:
			if !open {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				log.Printf("Error encoding stream event for session %s: %v", sessionID, err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			if event.Type == "done" || event.Type == "error" {
				return
			}
		}
	}
}

var toolCORSHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Methods": "POST, OPTIONS",
	"Access-Control-Allow-Headers": "Content-Type, x-token",
}

func setToolCORSHeaders(w http.ResponseWriter) {
	for key, value := range toolCORSHeaders {
		w.Header().Set(key, value)
	}
}

// SearchToolOptionsHandler answers the agent platform's CORS preflight.
func (h *APIHandler) SearchToolOptionsHandler(w http.ResponseWriter, r *http.Request) {
	setToolCORSHeaders(w)
	w.WriteHeader(http.StatusOK)
}

type searchToolResponse struct {
	Success      bool                      `json:"success"`
	Message      string                    `json:"message"`
	TotalCount   int                       `json:"total_count"`
	TotalFetched int                       `json:"total_fetched"`
	TotalStored  int                       `json:"total_stored"`
	TotalSkipped int                       `json:"total_skipped"`
	Data         []linkedin.LLMProfile     `json:"data"`
	AllProfiles  []linkedin.DisplayProfile `json:"all_profiles"`
}

// SearchToolHandler is the endpoint the agent platform invokes when the
// sourcing agent decides a candidate search is needed.
func (h *APIHandler) SearchToolHandler(w http.ResponseWriter, r *http.Request) {
	setToolCORSHeaders(w)

	token := r.Header.Get("x-token")
	if token == "" {
		writeError(w, http.StatusUnauthorized, "Missing authentication token", "")
		return
	}
	userID, err := h.crypter.Decrypt(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid authentication token", "")
		return
	}

	var req core.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	log.Printf("Received search_candidates call from user %s for session %s", userID, req.SessionID)

	summary, err := h.searchService.SearchCandidates(r.Context(), req)
	if err != nil {
		var vErr *core.ValidationError
		if errors.As(err, &vErr) {
			writeError(w, http.StatusBadRequest, vErr.Message, "")
			return
		}
		log.Printf("Error in search_candidates for session %s: %v", req.SessionID, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Failed to search candidates",
			Details: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, searchToolResponse{
		Success:      true,
		Message:      summary.Message,
		TotalCount:   summary.TotalCount,
		TotalFetched: summary.TotalFetched,
		TotalStored:  summary.TotalStored,
		TotalSkipped: summary.TotalSkipped,
		Data:         summary.Data,
		AllProfiles:  summary.AllProfiles,
	})
}

type candidatesByIDsRequest struct {
	PublicIDs []string `json:"public_ids"`
}

func (h *APIHandler) CandidatesByIDsHandler(w http.ResponseWriter, r *http.Request) {
	var req candidatesByIDsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if len(req.PublicIDs) == 0 {
		writeError(w, http.StatusBadRequest, "public_ids is required", "")
		return
	}

	profiles, err := h.dbStore.GetCandidateProfilesByPublicIDs(req.PublicIDs)
	if err != nil {
		log.Printf("Error fetching candidates by ids: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch candidates", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"profiles": profiles,
	})
}

type provisionRequest struct {
	User   core.UserInfo `json:"user"`
	APIKey string        `json:"apiKey"`
}

func (h *APIHandler) ProvisionUserHandler(w http.ResponseWriter, r *http.Request) {
	var req provisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	user, err := h.provisionService.CreateOrUpdateUser(r.Context(), req.User, req.APIKey)
	if err != nil {
		var vErr *core.ValidationError
		if errors.As(err, &vErr) {
			writeError(w, http.StatusBadRequest, vErr.Message, "")
			return
		}
		log.Printf("Error provisioning user %s: %v", req.User.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to provision user", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    user,
	})
}

// writeChatError maps chat orchestration failures to the error taxonomy:
// validation 400, unknown user/session 404, everything downstream 500 with the
// underlying detail attached.
func (h *APIHandler) writeChatError(w http.ResponseWriter, err error) {
	var vErr *core.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, vErr.Message, "")
	case errors.Is(err, core.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "User not found in database", "")
	case errors.Is(err, core.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "Session not found", "")
	default:
		log.Printf("Error in chat orchestration: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to process chat", err.Error())
	}
}
