package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nerrad567/kodibridge/internal/action"
)

// IntentPath is the route for structured intents.
const IntentPath = "/kodi"

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	if s.limiter != nil {
		r.Use(rateLimitMiddleware(s.limiter))
	}
	r.Use(s.bodySizeLimitMiddleware)

	// Unauthenticated
	r.Get("/health", s.handleHealth)
	r.Get("/", s.landing.ServeHTTP)
	r.NotFound(s.landing.ServeHTTP)

	// Remote control, one route per action
	r.Post(IntentPath, s.handleIntent)
	for _, a := range action.Table() {
		r.Method(a.Method, a.Path, s.actionHandler(a))
	}

	return r
}

// actionHandler validates the request, then dispatches a.
func (s *Server) actionHandler(a action.Action) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc, err := s.validator.Validate(r)
		if err != nil {
			writeValidationError(w, err)
			return
		}
		s.dispatcher.Dispatch(w, r, rc, a)
	})
}

// handleIntent validates the request, then dispatches on query.action.
func (s *Server) handleIntent(w http.ResponseWriter, r *http.Request) {
	rc, err := s.validator.Validate(r)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	s.dispatcher.DispatchIntent(w, r, rc)
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   s.version,
		"instances": s.targets.IDs(),
	})
}
