package main

import (
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/courtclock/go/internal/clock"
	"github.com/mcdev12/courtclock/go/internal/config"
	"github.com/mcdev12/courtclock/go/internal/schedule"
	"github.com/mcdev12/courtclock/go/internal/timer/gateway"
	"github.com/mcdev12/courtclock/go/internal/timer/orchestrator"
	"github.com/mcdev12/courtclock/go/internal/timer/siren"
	"github.com/mcdev12/courtclock/go/internal/users"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type Services struct {
	Clock        *clock.Source
	Users        *users.App
	Orchestrator *orchestrator.Orchestrator
	Gateway      *gateway.Service

	closers []func()
}

func setupServices(cfg config.Config) (*Services, error) {
	// Clock → Users → Orchestrator ↔ Gateway

	src, err := clock.New(clockwork.NewRealClock(), cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("clock: %w", err)
	}

	userApp, err := users.NewApp(users.Config{
		AdminUsername: cfg.AdminUsername,
		AdminPassword: cfg.AdminPassword,
		BcryptCost:    cfg.BcryptCost,
	})
	if err != nil {
		return nil, fmt.Errorf("users: %w", err)
	}
	userApp.Seed(cfg.Operators)

	s := &Services{Clock: src, Users: userApp}

	var sirenOut orchestrator.Siren = siren.LogSiren{}
	if cfg.MQTTBrokerURL != "" {
		sc := siren.DefaultConfig()
		sc.BrokerURL = cfg.MQTTBrokerURL
		sc.Topic = cfg.MQTTTopic
		sc.ClientID = cfg.MQTTClientID
		mqttSiren, err := siren.NewMQTTSiren(sc)
		if err != nil {
			log.Warn().Err(err).Msg("MQTT siren unavailable, logging blasts instead")
		} else {
			sirenOut = mqttSiren
			s.closers = append(s.closers, mqttSiren.Close)
		}
	}

	var relay *gateway.EventRelay
	if cfg.NATSURL != "" {
		rc := gateway.DefaultRelayConfig()
		rc.URL = cfg.NATSURL
		rc.SubjectPrefix = cfg.NATSSubjectPrefix
		relay, err = gateway.NewEventRelay(rc)
		if err != nil {
			log.Warn().Err(err).Msg("NATS relay unavailable, continuing without it")
			relay = nil
		}
	}

	connCfg := gateway.DefaultConnectionConfig()
	connCfg.MaxConnections = cfg.MaxConnections
	connCfg.CommandRate = rate.Limit(cfg.CommandRate)
	connCfg.CommandBurst = cfg.CommandBurst
	cm := gateway.NewConnectionManager(connCfg)

	s.Orchestrator = orchestrator.NewOrchestrator(src, userApp, cm, cm, sirenOut, orchestrator.Config{
		TickInterval:     cfg.TickInterval,
		ScheduleInterval: cfg.ScheduleInterval,
		Debounce:         schedule.DefaultDebounce,
		ImportSource:     orchestrator.DefaultConfig().ImportSource,
		Defaults:         cfg.Defaults,
	})
	s.Gateway = gateway.NewService(cm, s.Orchestrator, relay)

	return s, nil
}

// Close releases external connections. The gateway closes its relay itself.
func (s *Services) Close() {
	for _, c := range s.closers {
		c()
	}
}
