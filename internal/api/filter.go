package api

import (
	"encoding/json"
	"net/http"

	"github.com/nerrad567/bonsai/internal/bonsai"
)

// FilterResponse is the body of GET and PUT /api/v1/filter.
type FilterResponse struct {
	MinimumLevel bonsai.Level `json:"minimum_level"`
	DebugFocus   bool         `json:"debug_focus"`
	Mode         string       `json:"mode"`
}

// DriverInfo describes one registered driver.
type DriverInfo struct {
	Name    string  `json:"name"`
	Dropped *uint64 `json:"dropped,omitempty"`
	Failed  *uint64 `json:"failed,omitempty"`
}

// DriversResponse is the body of GET /api/v1/drivers.
type DriversResponse struct {
	Drivers []string     `json:"drivers"`
	Count   int          `json:"count"`
	Details []DriverInfo `json:"details"`
}

func newFilterResponse(f bonsai.Filter) FilterResponse {
	return FilterResponse{
		MinimumLevel: f.MinimumLevel,
		DebugFocus:   f.DebugFocus,
		Mode:         f.Mode(),
	}
}

// handleGetFilter returns the current filter configuration.
func (s *Server) handleGetFilter(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, newFilterResponse(s.bonsai.Filter()))
}

// handlePutFilter applies a partial filter update. Omitted fields keep
// their current value.
func (s *Server) handlePutFilter(w http.ResponseWriter, r *http.Request) {
	var patch bonsai.FilterPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeBadRequest(w, "invalid filter body: "+err.Error())
		return
	}
	if patch.MinimumLevel == nil && patch.DebugFocus == nil {
		writeValidationError(w, "minimum_level or debug_focus is required")
		return
	}

	f := s.bonsai.PatchFilter(patch)
	s.logger.Info("filter updated",
		"minimum_level", f.MinimumLevel.String(),
		"debug_focus", f.DebugFocus,
		"request_id", requestID(r.Context()),
	)
	writeJSON(w, http.StatusOK, newFilterResponse(f))
}

// dropCounter and failCounter are implemented by the queueing drivers.
type dropCounter interface{ Dropped() uint64 }
type failCounter interface{ Failed() uint64 }

// handleListDrivers lists registered drivers in registration order.
func (s *Server) handleListDrivers(w http.ResponseWriter, _ *http.Request) {
	drivers := s.bonsai.Drivers()

	resp := DriversResponse{
		Drivers: make([]string, 0, len(drivers)),
		Count:   len(drivers),
		Details: make([]DriverInfo, 0, len(drivers)),
	}
	for _, d := range drivers {
		info := DriverInfo{Name: bonsai.DriverName(d)}
		if dc, ok := d.(dropCounter); ok {
			n := dc.Dropped()
			info.Dropped = &n
		}
		if fc, ok := d.(failCounter); ok {
			n := fc.Failed()
			info.Failed = &n
		}
		resp.Drivers = append(resp.Drivers, info.Name)
		resp.Details = append(resp.Details, info)
	}
	writeJSON(w, http.StatusOK, resp)
}
