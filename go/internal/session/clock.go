// Package session implements the shared countdown state machine. It performs
// no I/O and reads no clocks; every transition takes the current instant.
package session

import (
	"time"

	"github.com/mcdev12/courtclock/go/internal/models"
)

// Clock is the state of the single shared session timer.
// It is not safe for concurrent use; the orchestrator owns it.
type Clock struct {
	settings models.Settings

	status         models.TimerStatus
	mainRemaining  int64
	breakRemaining int64
	currentRound   int
	breakSounded   bool

	// lastAdvance is the instant up to which remaining values are accounted.
	lastAdvance time.Time
}

// New creates an idle clock with the given settings.
func New(settings models.Settings) *Clock {
	return &Clock{
		settings:     settings,
		status:       models.TimerStatusIdle,
		currentRound: 1,
	}
}

func (c *Clock) Status() models.TimerStatus { return c.status }

func (c *Clock) Settings() models.Settings { return c.settings }

// Start begins round one. It is a no-op unless the clock is IDLE or FINISHED.
func (c *Clock) Start(now time.Time) []Event {
	if !c.status.CanStart() {
		return nil
	}
	c.status = models.TimerStatusRunning
	c.currentRound = 1
	c.loadRound(now)
	return []Event{c.roundStarted(true)}
}

// Pause toggles between RUNNING and PAUSED. Other states are left untouched.
func (c *Clock) Pause(now time.Time) []Event {
	switch c.status {
	case models.TimerStatusRunning:
		events := c.advance(now)
		if c.status != models.TimerStatusRunning {
			// the session finished exactly at the pause instant
			return events
		}
		c.status = models.TimerStatusPaused
		return append(events, Paused{Snapshot: c.snapshot()})
	case models.TimerStatusPaused:
		c.status = models.TimerStatusRunning
		c.lastAdvance = now
		return []Event{Resumed{Snapshot: c.snapshot()}}
	default:
		return nil
	}
}

// Tick accounts for time elapsed since the last advance and emits a sync
// snapshot. It does nothing unless the clock is RUNNING.
func (c *Clock) Tick(now time.Time) []Event {
	if c.status != models.TimerStatusRunning {
		return nil
	}
	events := c.advance(now)
	return append(events, Sync{Snapshot: c.snapshot()})
}

// Reset returns the clock to IDLE from any state.
func (c *Clock) Reset() []Event {
	c.status = models.TimerStatusIdle
	c.mainRemaining = 0
	c.breakRemaining = 0
	c.currentRound = 1
	c.breakSounded = false
	return []Event{Reset{}}
}

// SaveSettings replaces the settings. The caller is responsible for clamping.
// Status and remaining values are unchanged; the current round is capped to
// the new round count.
func (c *Clock) SaveSettings(s models.Settings) []Event {
	c.settings = s
	if c.currentRound > s.NumRounds {
		c.currentRound = s.NumRounds
	}
	return []Event{SettingsChanged{Settings: s}}
}

// Snapshot returns the state as of the last transition.
func (c *Clock) Snapshot() models.TimerSnapshot {
	return c.snapshot()
}

// SnapshotAt returns the state extrapolated to now without mutating the clock.
func (c *Clock) SnapshotAt(now time.Time) models.TimerSnapshot {
	snap := c.snapshot()
	if c.status != models.TimerStatusRunning {
		return snap
	}
	elapsed := elapsedMillis(c.lastAdvance, now)
	snap.MainRemaining = max(0, snap.MainRemaining-elapsed)
	if c.settings.BreakTimerEnabled {
		snap.BreakRemaining = max(0, snap.BreakRemaining-elapsed)
	}
	return snap
}

func (c *Clock) loadRound(now time.Time) {
	c.mainRemaining = c.settings.GameDuration
	c.breakRemaining = c.settings.BreakDuration
	c.breakSounded = false
	c.lastAdvance = now
}

// advance subtracts elapsed time and performs round transitions.
// Any overshoot past zero is discarded when the next round is loaded.
func (c *Clock) advance(now time.Time) []Event {
	elapsed := elapsedMillis(c.lastAdvance, now)
	c.lastAdvance = c.lastAdvance.Add(time.Duration(elapsed) * time.Millisecond)

	var events []Event
	c.mainRemaining = max(0, c.mainRemaining-elapsed)
	if c.settings.BreakTimerEnabled {
		c.breakRemaining = max(0, c.breakRemaining-elapsed)
		if c.breakRemaining == 0 && !c.breakSounded && c.settings.BreakDuration > 0 {
			c.breakSounded = true
			events = append(events, BreakEnded{Round: c.currentRound})
		}
	}

	roundOver := c.mainRemaining == 0 && (!c.settings.BreakTimerEnabled || c.breakRemaining == 0)
	if !roundOver {
		return events
	}

	if c.currentRound < c.settings.NumRounds {
		events = append(events, RoundEnded{Round: c.currentRound})
		c.currentRound++
		c.loadRound(now)
		return append(events, c.roundStarted(false))
	}

	events = append(events, RoundEnded{Round: c.currentRound, Last: true})
	c.status = models.TimerStatusFinished
	c.mainRemaining = 0
	c.breakRemaining = 0
	return append(events, Finished{Rounds: c.currentRound})
}

func (c *Clock) roundStarted(first bool) RoundStarted {
	return RoundStarted{
		First:         first,
		Round:         c.currentRound,
		NumRounds:     c.settings.NumRounds,
		GameDuration:  c.settings.GameDuration,
		BreakDuration: c.settings.BreakDuration,
	}
}

func (c *Clock) snapshot() models.TimerSnapshot {
	return models.TimerSnapshot{
		Status:         c.status,
		MainRemaining:  c.mainRemaining,
		BreakRemaining: c.breakRemaining,
		CurrentRound:   c.currentRound,
		NumRounds:      c.settings.NumRounds,
	}
}

func elapsedMillis(from, to time.Time) int64 {
	if from.IsZero() || !to.After(from) {
		return 0
	}
	return to.Sub(from).Milliseconds()
}
