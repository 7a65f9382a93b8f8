package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// buildRouter mounts every route under /api/v1.
//
// Middleware order matters: the request ID is assigned first so the access
// log and panic records carry it, and the body limit is applied last so it
// only wraps handlers.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.withRequestID, s.accessLog, s.recoverPanics, s.cors, limitBody)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, r.Method+" not allowed on "+r.URL.Path)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/drivers", s.handleListDrivers)

		r.Route("/filter", func(r chi.Router) {
			r.Get("/", s.handleGetFilter)
			r.Put("/", s.handlePutFilter)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			r.Post("/log", s.handleLog)
			r.Post("/store", s.handleStore)
		})

		r.Get("/events", s.handleListEvents)
		r.Get("/tail", s.handleTail)
	})

	return r
}

// handleHealth reports liveness and the running version.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"drivers": len(s.bonsai.Drivers()),
	})
}
