package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// HealthStatus is the result of one health check.
type HealthStatus struct {
	Healthy         bool     `json:"healthy"`
	LoopResponsive  bool     `json:"loop_responsive"`
	NATSConnected   *bool    `json:"nats_connected,omitempty"`
	Connections     int      `json:"connections"`
	ServerTimestamp int64    `json:"server_timestamp"`
	Errors          []string `json:"errors"`
}

// HealthChecker checks the orchestrator loop and the optional relay.
type HealthChecker struct {
	state   StateProvider
	cm      *ConnectionManager
	relay   *EventRelay
	timeout time.Duration
}

func NewHealthChecker(state StateProvider, cm *ConnectionManager, relay *EventRelay, timeout time.Duration) *HealthChecker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HealthChecker{state: state, cm: cm, relay: relay, timeout: timeout}
}

// Check reports unhealthy when the orchestrator does not answer within the
// timeout or the relay has lost its NATS connection.
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Healthy:     true,
		Connections: h.cm.GetConnectionStats().TotalConnections,
		Errors:      []string{},
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	view, err := h.state.State(ctx)
	if err != nil {
		status.Healthy = false
		status.Errors = append(status.Errors, fmt.Sprintf("orchestrator unresponsive: %v", err))
	} else {
		status.LoopResponsive = true
		status.ServerTimestamp = view.ServerMillis
	}

	if h.relay != nil {
		connected := h.relay.Connected()
		status.NATSConnected = &connected
		if !connected {
			status.Healthy = false
			status.Errors = append(status.Errors, "NATS disconnected")
		}
	}
	return status
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := h.Check(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(status); err != nil {
		log.Error().Err(err).Msg("failed to encode health response")
	}
}
