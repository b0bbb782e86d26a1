// Package siren relays blast sequences to the venue siren controller.
package siren

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// Command is the payload published for one blast sequence.
type Command struct {
	Blasts   int   `json:"blasts"`
	LengthMs int64 `json:"lengthMs"`
	PauseMs  int64 `json:"pauseMs"`
}

// Config holds the MQTT connection settings.
type Config struct {
	BrokerURL      string
	Topic          string
	ClientID       string
	QoS            byte
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

// DefaultConfig returns the siren defaults. BrokerURL must be set by the caller.
func DefaultConfig() Config {
	return Config{
		Topic:          "courtclock/siren",
		ClientID:       "courtclock",
		QoS:            1,
		ConnectTimeout: 10 * time.Second,
		PublishTimeout: 5 * time.Second,
	}
}

// publisher is the part of mqtt.Client the siren uses.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTSiren publishes blast commands to an MQTT topic.
type MQTTSiren struct {
	client  publisher
	config  Config
	closeFn func()
}

// NewMQTTSiren connects to the broker.
func NewMQTTSiren(config Config) (*MQTTSiren, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.BrokerURL)
	opts.SetClientID(config.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(config.ConnectTimeout)
	opts.OnConnect = func(mqtt.Client) {
		log.Info().Str("broker", config.BrokerURL).Msg("connected to MQTT broker")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Str("broker", config.BrokerURL).Msg("MQTT connection lost")
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(config.ConnectTimeout) {
		return nil, fmt.Errorf("connect to MQTT broker %s: timed out", config.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to MQTT broker %s: %w", config.BrokerURL, err)
	}

	return &MQTTSiren{
		client:  client,
		config:  config,
		closeFn: func() { client.Disconnect(250) },
	}, nil
}

// Sound publishes the sequence without waiting for the broker. Delivery
// failures are logged; the timer never waits on the siren.
func (s *MQTTSiren) Sound(blasts int, length, pause time.Duration) {
	payload, err := json.Marshal(Command{
		Blasts:   blasts,
		LengthMs: length.Milliseconds(),
		PauseMs:  pause.Milliseconds(),
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to encode siren command")
		return
	}

	token := s.client.Publish(s.config.Topic, s.config.QoS, false, payload)
	go func() {
		if !token.WaitTimeout(s.config.PublishTimeout) {
			log.Warn().Str("topic", s.config.Topic).Int("blasts", blasts).Msg("siren publish timed out")
			return
		}
		if err := token.Error(); err != nil {
			log.Error().Err(err).Str("topic", s.config.Topic).Int("blasts", blasts).Msg("siren publish failed")
			return
		}
		log.Debug().Str("topic", s.config.Topic).Int("blasts", blasts).Msg("siren sounded")
	}()
}

// Close disconnects from the broker.
func (s *MQTTSiren) Close() {
	if s.closeFn != nil {
		s.closeFn()
	}
}

// LogSiren only logs. It stands in when no broker is configured.
type LogSiren struct{}

func (LogSiren) Sound(blasts int, length, pause time.Duration) {
	log.Info().
		Int("blasts", blasts).
		Dur("length", length).
		Dur("pause", pause).
		Msg("siren")
}
