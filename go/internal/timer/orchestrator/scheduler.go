package orchestrator

import (
	"github.com/mcdev12/courtclock/go/internal/models"
	"github.com/mcdev12/courtclock/go/internal/timer/events"
	"github.com/rs/zerolog/log"
)

// evaluateSchedule starts the session when an enabled entry matches the
// current wall-clock minute. It never preempts a running or paused session.
func (o *Orchestrator) evaluateSchedule() {
	if !o.book.SchedulingEnabled() || !o.session.Status().CanStart() {
		return
	}

	wall := o.clock.Wall()
	entry, ok := o.trigger.Due(o.book.Entries(), wall)
	if !ok {
		return
	}

	// same authorization path as an operator start
	if err := o.dispatch("", schedulerPrincipal, events.Start{}); err != nil {
		log.Error().Err(err).Str("schedule_id", entry.ID).Msg("scheduled start rejected")
		return
	}
	if o.session.Status() != models.TimerStatusRunning {
		return
	}
	o.trigger.MarkFired(entry.ID, wall)

	log.Info().
		Str("schedule_id", entry.ID).
		Str("club", entry.ClubName).
		Str("owner", entry.OwnerUsername).
		Time("wall", wall).
		Msg("scheduled session started")
	o.out.Broadcast(events.ScheduleStarted{Schedule: entry})
}
