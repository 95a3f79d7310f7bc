package api

import (
	"log/slog"
	"net/http"

	"osmandlink/pkg/tracker"
)

// StatsHandler reports geocoder and action counters.
type StatsHandler struct {
	tracker *tracker.Tracker
	bridge  *BridgeHandler
}

// NewStatsHandler creates a StatsHandler. bridge may be nil.
func NewStatsHandler(t *tracker.Tracker, bridge *BridgeHandler) *StatsHandler {
	return &StatsHandler{tracker: t, bridge: bridge}
}

type ProviderStatsDTO struct {
	APISuccess    int64 `json:"api_success"`
	APIZeroResult int64 `json:"api_zero"`
	APIFailures   int64 `json:"api_errors"`
	SuccessRate   int64 `json:"success_rate"` // percent of requests that did not fail
}

type StatsResponse struct {
	Providers map[string]ProviderStatsDTO `json:"providers"`
	Actions   map[string]int64            `json:"actions"`
	Sessions  int                         `json:"sessions"`
	Busy      bool                        `json:"busy"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		Providers: make(map[string]ProviderStatsDTO),
		Actions:   h.tracker.Outcomes(),
	}
	for name, s := range h.tracker.Snapshot() {
		dto := ProviderStatsDTO{
			APISuccess:    s.APISuccess,
			APIZeroResult: s.APIZeroResult,
			APIFailures:   s.APIFailures,
		}
		if total := s.APISuccess + s.APIFailures; total > 0 {
			dto.SuccessRate = s.APISuccess * 100 / total
		}
		resp.Providers[name] = dto
	}
	if h.bridge != nil {
		resp.Sessions = h.bridge.SessionCount()
		resp.Busy = h.bridge.Busy()
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleReset zeroes the counters.
func (h *StatsHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	h.tracker.Reset()
	slog.Info("Stats reset via API")
	w.WriteHeader(http.StatusNoContent)
}
