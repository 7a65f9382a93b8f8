package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/bonsai/internal/infrastructure/event"
)

// EventsResponse is the body of GET /api/v1/events.
type EventsResponse struct {
	Events []event.Record `json:"events"`
	Count  int            `json:"count"`
}

// handleListEvents returns the newest journaled records, newest first.
//
// Query parameters:
//   - limit: number of records (journal default and cap apply)
//   - kind: "store" for store payloads; anything else lists log events
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeUnavailable(w, "journal is not enabled")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	var (
		records []event.Record
		err     error
	)
	if r.URL.Query().Get("kind") == string(event.KindStore) {
		records, err = s.journal.RecentStores(r.Context(), limit)
	} else {
		records, err = s.journal.Recent(r.Context(), limit)
	}
	if err != nil {
		s.logger.Error("journal query failed",
			"error", err,
			"request_id", requestID(r.Context()),
		)
		writeInternalError(w, "failed to query journal")
		return
	}

	writeJSON(w, http.StatusOK, EventsResponse{Events: records, Count: len(records)})
}
