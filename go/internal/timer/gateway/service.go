package gateway

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Sink is what the gateway needs from the orchestrator.
type Sink interface {
	CommandSink
	StateProvider
}

// Service wires websocket connections, the state endpoint and the optional
// NATS relay around one orchestrator.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
	health            *HealthChecker
	relay             *EventRelay
}

// NewService binds cm to sink. relay may be nil.
func NewService(cm *ConnectionManager, sink Sink, relay *EventRelay) *Service {
	cm.SetSink(sink)
	if relay != nil {
		cm.SetRelay(relay)
	}
	return &Service{
		connectionManager: cm,
		wsHandler:         NewWebSocketHandler(cm),
		stateHandler:      NewStateHandler(sink),
		health:            NewHealthChecker(sink, cm, relay, 0),
		relay:             relay,
	}
}

// Start blocks until ctx is cancelled, then shuts the gateway down.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Bool("relay", s.relay != nil).Msg("starting timer gateway service")
	<-ctx.Done()
	log.Info().Msg("timer gateway service shutting down")
	return s.Stop()
}

// Stop closes every connection and the relay.
func (s *Service) Stop() error {
	s.connectionManager.Shutdown()
	if s.relay != nil {
		if err := s.relay.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop event relay")
		}
	}
	log.Info().Msg("timer gateway service stopped")
	return nil
}

// RegisterRoutes registers the websocket, state and health routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterStateRoutes(mux)
	mux.Handle("GET /health", s.health)
	log.Info().Msg("timer gateway routes registered")
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats() ConnectionStats {
	return s.connectionManager.GetConnectionStats()
}
