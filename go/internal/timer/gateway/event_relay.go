package gateway

import (
	"fmt"
	"time"

	"github.com/mcdev12/courtclock/go/internal/timer/events"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// RelayConfig holds configuration for the NATS event relay
type RelayConfig struct {
	URL           string
	SubjectPrefix string // events go to <prefix>.<event>
	IncludeSync   bool   // sync frames are high volume and skipped by default
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultRelayConfig returns default relay configuration
func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "courtclock.events",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// EventRelay mirrors broadcast events onto NATS so scoreboards and loggers
// outside the websocket fan-out can follow the session.
type EventRelay struct {
	nc      *nats.Conn
	config  RelayConfig
	publish func(subject string, data []byte) error
}

// NewEventRelay connects to NATS.
func NewEventRelay(config RelayConfig) (*EventRelay, error) {
	opts := []nats.Option{
		nats.Name("courtclock"),
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	log.Info().
		Str("url", nc.ConnectedUrl()).
		Str("subject_prefix", config.SubjectPrefix).
		Msg("NATS event relay connected")

	return &EventRelay{nc: nc, config: config, publish: nc.Publish}, nil
}

// Subject returns the subject an event is published on.
func (r *EventRelay) Subject(name events.Name) string {
	return r.config.SubjectPrefix + "." + string(name)
}

// Publish encodes ev and hands it to the NATS client. It does not wait for
// the server; failures are logged.
func (r *EventRelay) Publish(ev events.Event) {
	if ev.EventName() == events.NameSync && !r.config.IncludeSync {
		return
	}
	data, err := events.Encode(ev)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode relayed event")
		return
	}
	if err := r.publish(r.Subject(ev.EventName()), data); err != nil {
		log.Warn().Err(err).Str("event", string(ev.EventName())).Msg("failed to relay event")
	}
}

// Connected reports whether the NATS connection is currently up.
func (r *EventRelay) Connected() bool {
	return r.nc != nil && r.nc.IsConnected()
}

// Stop flushes pending messages and closes the connection.
func (r *EventRelay) Stop() error {
	log.Info().Msg("stopping event relay")
	if r.nc == nil {
		return nil
	}
	if err := r.nc.Drain(); err != nil {
		r.nc.Close()
		return fmt.Errorf("drain NATS connection: %w", err)
	}
	return nil
}
