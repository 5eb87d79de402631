package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	// All API routes will be under /api
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})

		// Tool callbacks from the agent platform authenticate with an
		// encrypted x-token, not the service bearer token, and need CORS
		// since the platform is a third-party origin.
		r.Options("/tools/search_candidates", apiHandler.SearchToolOptionsHandler)
		r.Post("/tools/search_candidates", apiHandler.SearchToolHandler)

		// UI-facing routes behind the static service token
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.BearerAuthMiddleware)

			r.Post("/chat/send", apiHandler.ChatSendHandler)
			r.Post("/chat/start-search", apiHandler.StartSearchHandler)
			r.Get("/chat/stream/{sessionID}", apiHandler.StreamHandler)

			r.Post("/candidates/get-by-ids", apiHandler.CandidatesByIDsHandler)
			r.Post("/users/provision", apiHandler.ProvisionUserHandler)
		})
	})

	return r
}
