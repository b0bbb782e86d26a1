package orchestrator

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/courtclock/go/internal/clock"
	"github.com/mcdev12/courtclock/go/internal/models"
	"github.com/mcdev12/courtclock/go/internal/schedule"
	"github.com/mcdev12/courtclock/go/internal/session"
	"github.com/mcdev12/courtclock/go/internal/timer/events"
	"github.com/mcdev12/courtclock/go/internal/users"
	"github.com/rs/zerolog/log"
)

// Registry resolves and updates the principal bound to a connection.
type Registry interface {
	Principal(connID string) (models.Principal, bool)
	SetPrincipal(connID string, p models.Principal)
}

// Broadcaster delivers events to connections. Implementations must not block.
type Broadcaster interface {
	Broadcast(ev events.Event)
	Send(connID string, ev events.Event)
	SendWhere(match func(models.Principal) bool, ev events.Event)
}

// Siren sounds a sequence of blasts on the venue siren.
type Siren interface {
	Sound(blasts int, length, pause time.Duration)
}

// Config holds orchestrator timing and defaults.
type Config struct {
	TickInterval     time.Duration
	ScheduleInterval time.Duration
	Debounce         time.Duration
	ImportSource     string
	Defaults         models.Settings
}

// DefaultConfig returns the production cadence.
func DefaultConfig() Config {
	return Config{
		TickInterval:     100 * time.Millisecond,
		ScheduleInterval: 20 * time.Second,
		Debounce:         schedule.DefaultDebounce,
		ImportSource:     "HelloClub",
		Defaults:         models.DefaultSettings(),
	}
}

// schedulerPrincipal is the identity the weekly trigger starts sessions under.
var schedulerPrincipal = models.Principal{Role: models.RoleOperator, Username: "scheduler"}

// Orchestrator owns the session clock, the schedule book and the credential
// set. Every mutation runs on the goroutine executing Run.
type Orchestrator struct {
	clock    *clock.Source
	session  *session.Clock
	book     *schedule.Book
	trigger  *schedule.Trigger
	users    *users.App
	registry Registry
	out      Broadcaster
	siren    Siren
	config   Config

	integration models.IntegrationSettings

	reqCh      chan request
	instanceID string
}

type request struct {
	fn   func()
	done chan struct{}
}

// NewOrchestrator creates the coordinator. siren may be nil.
func NewOrchestrator(src *clock.Source, userApp *users.App, registry Registry, out Broadcaster, siren Siren, config Config) *Orchestrator {
	defaults := models.ClampSettings(config.Defaults)
	config.Defaults = defaults
	return &Orchestrator{
		clock:       src,
		session:     session.New(defaults),
		book:        schedule.NewBook(),
		trigger:     schedule.NewTrigger(config.Debounce),
		users:       userApp,
		registry:    registry,
		out:         out,
		siren:       siren,
		config:      config,
		integration: models.DefaultIntegrationSettings(),
		reqCh:       make(chan request),
		instanceID:  uuid.New().String()[:8],
	}
}

// Run drives the timer tick and the schedule evaluation and executes queued
// requests until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	tick := o.clock.NewTicker(o.config.TickInterval)
	defer tick.Stop()
	sched := o.clock.NewTicker(o.config.ScheduleInterval)
	defer sched.Stop()

	log.Info().
		Str("instance", o.instanceID).
		Dur("tick_interval", o.config.TickInterval).
		Dur("schedule_interval", o.config.ScheduleInterval).
		Str("timezone", o.clock.Timezone()).
		Msg("orchestrator started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("instance", o.instanceID).Msg("orchestrator shutting down")
			return nil
		case req := <-o.reqCh:
			o.safely("request", req.fn)
			close(req.done)
		case <-tick.Chan():
			o.safely("tick", o.tick)
		case <-sched.Chan():
			o.safely("schedule", o.evaluateSchedule)
		}
	}
}

// Submit queues a command from connID and waits until it has been applied.
func (o *Orchestrator) Submit(ctx context.Context, connID string, cmd events.Command) error {
	return o.do(ctx, func() { o.handle(connID, cmd) })
}

// Connected sends the initial state to a newly registered connection.
func (o *Orchestrator) Connected(ctx context.Context, connID string) error {
	return o.do(ctx, func() { o.greet(connID) })
}

// StateView is a consistent snapshot of everything a dashboard needs.
type StateView struct {
	Timer             models.TimerSnapshot `json:"timer"`
	Settings          models.Settings      `json:"settings"`
	SchedulingEnabled bool                 `json:"schedulingEnabled"`
	Schedules         int                  `json:"schedules"`
	Timezone          string               `json:"timezone"`
	ServerMillis      int64                `json:"serverMillis"`
}

// State returns a point-in-time view taken on the orchestrator goroutine.
func (o *Orchestrator) State(ctx context.Context) (StateView, error) {
	var view StateView
	err := o.do(ctx, func() {
		now := o.clock.Now()
		view = StateView{
			Timer:             o.session.SnapshotAt(now),
			Settings:          o.session.Settings(),
			SchedulingEnabled: o.book.SchedulingEnabled(),
			Schedules:         len(o.book.Entries()),
			Timezone:          o.clock.Timezone(),
			ServerMillis:      now.UnixMilli(),
		}
	})
	return view, err
}

func (o *Orchestrator) do(ctx context.Context, fn func()) error {
	req := request{fn: fn, done: make(chan struct{})}
	select {
	case o.reqCh <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// safely keeps the loop alive when a handler panics.
func (o *Orchestrator) safely(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("instance", o.instanceID).
				Str("phase", what).
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("recovered from panic")
		}
	}()
	fn()
}

func (o *Orchestrator) greet(connID string) {
	now := o.clock.Now()
	o.out.Send(connID, events.Sync{TimerSnapshot: o.session.SnapshotAt(now), ServerMillis: now.UnixMilli()})
	o.out.Send(connID, events.Settings{Settings: o.session.Settings()})
	o.out.Send(connID, events.SchedulingStatus{Enabled: o.book.SchedulingEnabled()})
	o.out.Send(connID, events.Timezone{Timezone: o.clock.Timezone()})
}

func (o *Orchestrator) tick() {
	o.emit(o.session.Tick(o.clock.Now()))
}

// emit translates session events to the wire and broadcasts them in order.
func (o *Orchestrator) emit(evs []session.Event) {
	if len(evs) == 0 {
		return
	}
	ms := o.clock.Now().UnixMilli()
	for _, ev := range evs {
		switch e := ev.(type) {
		case session.RoundStarted:
			o.out.Broadcast(events.RoundStarted{
				First:         e.First,
				GameDuration:  e.GameDuration,
				BreakDuration: e.BreakDuration,
				CurrentRound:  e.Round,
				NumRounds:     e.NumRounds,
				ServerMillis:  ms,
			})
			log.Info().Int("round", e.Round).Int("num_rounds", e.NumRounds).Msg("round started")
		case session.BreakEnded:
			o.out.Broadcast(events.BreakEnded{CurrentRound: e.Round})
			o.sound(1)
		case session.RoundEnded:
			o.sound(2)
		case session.Paused:
			o.out.Broadcast(events.Paused{
				MainRemaining:  e.Snapshot.MainRemaining,
				BreakRemaining: e.Snapshot.BreakRemaining,
				CurrentRound:   e.Snapshot.CurrentRound,
				ServerMillis:   ms,
			})
		case session.Resumed:
			o.out.Broadcast(events.Resumed{
				MainRemaining:  e.Snapshot.MainRemaining,
				BreakRemaining: e.Snapshot.BreakRemaining,
				CurrentRound:   e.Snapshot.CurrentRound,
				ServerMillis:   ms,
			})
		case session.Reset:
			o.out.Broadcast(events.ResetDone{ServerMillis: ms})
		case session.Finished:
			o.out.Broadcast(events.Finished{NumRounds: e.Rounds, ServerMillis: ms})
			log.Info().Int("rounds", e.Rounds).Msg("session finished")
		case session.SettingsChanged:
			o.out.Broadcast(events.Settings{Settings: e.Settings})
		case session.Sync:
			o.out.Broadcast(events.Sync{TimerSnapshot: e.Snapshot, ServerMillis: ms})
		default:
			log.Warn().Str("type", fmt.Sprintf("%T", ev)).Msg("unhandled session event")
		}
	}
}

func (o *Orchestrator) sound(blasts int) {
	if o.siren == nil {
		return
	}
	s := o.session.Settings()
	o.siren.Sound(blasts, time.Duration(s.SirenLength)*time.Millisecond, time.Duration(s.SirenPause)*time.Millisecond)
}
