// Package viewer is the client side of the timer protocol: it keeps a local
// baseline from server snapshots and counts down between them.
package viewer

import (
	"sync"
	"time"

	"github.com/mcdev12/courtclock/go/internal/models"
	"github.com/mcdev12/courtclock/go/internal/timer/events"
)

// Extrapolator turns the server's periodic snapshots into a smooth local
// countdown. It is safe for concurrent use.
type Extrapolator struct {
	mu sync.Mutex

	base       models.TimerSnapshot
	receivedAt time.Time
	serverMs   int64
	breakOn    bool
}

func NewExtrapolator() *Extrapolator {
	return &Extrapolator{
		base:    models.TimerSnapshot{Status: models.TimerStatusIdle, CurrentRound: 1},
		breakOn: true,
	}
}

// Apply folds ev received at local time now into the baseline. It reports
// whether the baseline changed. Snapshots older than the last authoritative
// event are ignored.
func (x *Extrapolator) Apply(ev events.Event, now time.Time) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	switch e := ev.(type) {
	case events.Sync:
		if !x.accept(e.ServerMillis) {
			return false
		}
		x.rebase(e.TimerSnapshot, now)
	case events.RoundStarted:
		if !x.accept(e.ServerMillis) {
			return false
		}
		x.rebase(models.TimerSnapshot{
			Status:         models.TimerStatusRunning,
			MainRemaining:  e.GameDuration,
			BreakRemaining: e.BreakDuration,
			CurrentRound:   e.CurrentRound,
			NumRounds:      e.NumRounds,
		}, now)
	case events.Paused:
		if !x.accept(e.ServerMillis) {
			return false
		}
		x.rebase(x.frozen(models.TimerStatusPaused, e.MainRemaining, e.BreakRemaining, e.CurrentRound), now)
	case events.Resumed:
		if !x.accept(e.ServerMillis) {
			return false
		}
		x.rebase(x.frozen(models.TimerStatusRunning, e.MainRemaining, e.BreakRemaining, e.CurrentRound), now)
	case events.ResetDone:
		if !x.accept(e.ServerMillis) {
			return false
		}
		x.rebase(models.TimerSnapshot{Status: models.TimerStatusIdle, CurrentRound: 1, NumRounds: x.base.NumRounds}, now)
	case events.Finished:
		if !x.accept(e.ServerMillis) {
			return false
		}
		x.rebase(models.TimerSnapshot{Status: models.TimerStatusFinished, CurrentRound: x.base.CurrentRound, NumRounds: e.NumRounds}, now)
	case events.Settings:
		x.breakOn = e.Settings.BreakTimerEnabled
		x.base.NumRounds = e.Settings.NumRounds
	default:
		return false
	}
	return true
}

// View returns the countdown as it should be displayed at now.
func (x *Extrapolator) View(now time.Time) models.TimerSnapshot {
	x.mu.Lock()
	defer x.mu.Unlock()

	snap := x.base
	if snap.Status != models.TimerStatusRunning || x.receivedAt.IsZero() {
		return snap
	}
	elapsed := now.Sub(x.receivedAt).Milliseconds()
	if elapsed < 0 {
		elapsed = 0
	}
	snap.MainRemaining = max(0, snap.MainRemaining-elapsed)
	if x.breakOn {
		snap.BreakRemaining = max(0, snap.BreakRemaining-elapsed)
	}
	return snap
}

// accept advances the server watermark. A zero timestamp is always accepted.
func (x *Extrapolator) accept(serverMs int64) bool {
	if serverMs == 0 {
		return true
	}
	if serverMs < x.serverMs {
		return false
	}
	x.serverMs = serverMs
	return true
}

func (x *Extrapolator) rebase(snap models.TimerSnapshot, now time.Time) {
	x.base = snap
	x.receivedAt = now
}

func (x *Extrapolator) frozen(status models.TimerStatus, main, brk int64, round int) models.TimerSnapshot {
	return models.TimerSnapshot{
		Status:         status,
		MainRemaining:  main,
		BreakRemaining: brk,
		CurrentRound:   round,
		NumRounds:      x.base.NumRounds,
	}
}
