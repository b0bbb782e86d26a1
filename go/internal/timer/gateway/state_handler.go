package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mcdev12/courtclock/go/internal/timer/orchestrator"
	"github.com/rs/zerolog/log"
)

// StateProvider returns a consistent view of the timer.
type StateProvider interface {
	State(ctx context.Context) (orchestrator.StateView, error)
}

// StateHandler serves the timer state over plain HTTP for dashboards that do
// not hold a websocket.
type StateHandler struct {
	stateProvider StateProvider
}

func NewStateHandler(provider StateProvider) *StateHandler {
	return &StateHandler{
		stateProvider: provider,
	}
}

// HandleGetState handles GET /api/state
func (h *StateHandler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	state, err := h.stateProvider.State(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to get timer state")
		http.Error(w, "Failed to get timer state", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(state); err != nil {
		log.Error().Err(err).Msg("failed to encode timer state response")
	}
}

// RegisterStateRoutes registers state-related HTTP routes
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/state", h.HandleGetState)
}
