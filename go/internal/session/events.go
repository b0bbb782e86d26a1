package session

import "github.com/mcdev12/courtclock/go/internal/models"

// Event is a state change produced by the session clock.
type Event interface {
	isSessionEvent()
}

// RoundStarted is emitted when a round begins. First is set for round one of a fresh session.
type RoundStarted struct {
	First         bool
	Round         int
	NumRounds     int
	GameDuration  int64
	BreakDuration int64
}

// BreakEnded is emitted once per round when the break countdown reaches zero.
type BreakEnded struct {
	Round int
}

// RoundEnded is emitted when the main countdown of a round expires, before the
// next round starts or the session finishes.
type RoundEnded struct {
	Round int
	Last  bool
}

// Paused carries the remaining values frozen at the pause instant.
type Paused struct {
	Snapshot models.TimerSnapshot
}

// Resumed carries the values counting restarts from.
type Resumed struct {
	Snapshot models.TimerSnapshot
}

type Reset struct{}

type Finished struct {
	Rounds int
}

type SettingsChanged struct {
	Settings models.Settings
}

// Sync is the periodic authoritative snapshot.
type Sync struct {
	Snapshot models.TimerSnapshot
}

func (RoundStarted) isSessionEvent()    {}
func (BreakEnded) isSessionEvent()      {}
func (RoundEnded) isSessionEvent()      {}
func (Paused) isSessionEvent()          {}
func (Resumed) isSessionEvent()         {}
func (Reset) isSessionEvent()           {}
func (Finished) isSessionEvent()        {}
func (SettingsChanged) isSessionEvent() {}
func (Sync) isSessionEvent()            {}
