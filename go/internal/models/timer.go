package models

// TimerStatus is the lifecycle state of the shared session timer.
type TimerStatus string

const (
	TimerStatusIdle     TimerStatus = "IDLE"
	TimerStatusRunning  TimerStatus = "RUNNING"
	TimerStatusPaused   TimerStatus = "PAUSED"
	TimerStatusFinished TimerStatus = "FINISHED"
)

// CanStart reports whether a fresh session may be started from this status.
func (s TimerStatus) CanStart() bool {
	return s == TimerStatusIdle || s == TimerStatusFinished
}

// TimerSnapshot is a point-in-time view of the session timer.
type TimerSnapshot struct {
	Status         TimerStatus `json:"status"`
	MainRemaining  int64       `json:"mainTimerRemaining"`
	BreakRemaining int64       `json:"breakTimerRemaining"`
	CurrentRound   int         `json:"currentRound"`
	NumRounds      int         `json:"numRounds"`
}
