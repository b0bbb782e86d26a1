package orchestrator

import (
	"errors"
	"fmt"

	"github.com/mcdev12/courtclock/go/internal/authz"
	"github.com/mcdev12/courtclock/go/internal/models"
	"github.com/mcdev12/courtclock/go/internal/schedule"
	"github.com/mcdev12/courtclock/go/internal/timer/events"
	"github.com/rs/zerolog/log"
)

// handle applies one command from connID. Failures are reported to the issuer
// only; nothing is mutated when a command fails.
func (o *Orchestrator) handle(connID string, cmd events.Command) {
	p, ok := o.registry.Principal(connID)
	if !ok {
		log.Debug().Str("connection_id", connID).Str("action", string(cmd.Action())).Msg("dropping command from closed connection")
		return
	}

	if err := o.dispatch(connID, p, cmd); err != nil {
		log.Warn().
			Err(err).
			Str("connection_id", connID).
			Str("username", p.Username).
			Str("action", string(cmd.Action())).
			Msg("command rejected")
		o.reply(connID, events.Error{Message: err.Error()})
		return
	}

	log.Debug().
		Str("connection_id", connID).
		Str("username", p.Username).
		Str("action", string(cmd.Action())).
		Msg("command applied")
}

func (o *Orchestrator) dispatch(connID string, p models.Principal, cmd events.Command) error {
	switch c := cmd.(type) {
	case events.Authenticate:
		o.authenticate(connID, c)
		return nil

	case events.Start:
		if err := authz.Authorize(p, authz.TimerControl, ""); err != nil {
			return err
		}
		now := o.clock.Now()
		evs := o.session.Start(now)
		if len(evs) == 0 {
			// already running: re-baseline the issuer instead of restarting
			o.reply(connID, events.Sync{TimerSnapshot: o.session.SnapshotAt(now), ServerMillis: now.UnixMilli()})
			return nil
		}
		log.Info().Str("username", p.Username).Msg("session started")
		o.emit(evs)
		return nil

	case events.Pause:
		if err := authz.Authorize(p, authz.TimerControl, ""); err != nil {
			return err
		}
		o.emit(o.session.Pause(o.clock.Now()))
		return nil

	case events.Reset:
		if err := authz.Authorize(p, authz.TimerControl, ""); err != nil {
			return err
		}
		o.emit(o.session.Reset())
		return nil

	case events.SaveSettings:
		if err := authz.Authorize(p, authz.TimerControl, ""); err != nil {
			return err
		}
		settings := models.ClampSettings(c.Settings.Apply(o.session.Settings()))
		o.reply(connID, events.SettingsSaved{})
		o.emit(o.session.SaveSettings(settings))
		return nil

	case events.GetSettings:
		o.reply(connID, events.Settings{Settings: o.session.Settings()})
		return nil

	case events.EnableScheduling:
		if err := authz.Authorize(p, authz.SchedulingToggle, ""); err != nil {
			return err
		}
		o.book.SetSchedulingEnabled(c.Enabled)
		log.Info().Str("username", p.Username).Bool("enabled", c.Enabled).Msg("scheduling toggled")
		o.out.Broadcast(events.SchedulingStatus{Enabled: c.Enabled})
		return nil

	case events.GetSchedulingStatus:
		o.reply(connID, events.SchedulingStatus{Enabled: o.book.SchedulingEnabled()})
		return nil

	case events.GetSchedules:
		if err := authz.Authorize(p, authz.ViewSchedules, ""); err != nil {
			return err
		}
		o.reply(connID, events.SchedulesList{Schedules: o.book.VisibleTo(p), SchedulingEnabled: o.book.SchedulingEnabled()})
		return nil

	case events.AddSchedule:
		if err := authz.Authorize(p, authz.AddSchedule, ""); err != nil {
			return err
		}
		entry, err := o.book.Add(c.Schedule, p.Username, o.clock.Now())
		if err != nil {
			return err
		}
		o.notifySchedule(entry.OwnerUsername, events.ScheduleAdded{Schedule: entry})
		return nil

	case events.UpdateSchedule:
		existing, found := o.book.Get(c.Schedule.ID)
		if err := authz.Authorize(p, authz.EditSchedule, ownerOr(existing, found, p)); err != nil {
			return err
		}
		if !found {
			return schedule.ErrNotFound
		}
		entry, err := o.book.Update(c.Schedule)
		if err != nil {
			return err
		}
		o.notifySchedule(entry.OwnerUsername, events.ScheduleUpdated{Schedule: entry})
		return nil

	case events.DeleteSchedule:
		existing, found := o.book.Get(c.ID)
		if err := authz.Authorize(p, authz.DeleteSchedule, ownerOr(existing, found, p)); err != nil {
			return err
		}
		if !found {
			return schedule.ErrNotFound
		}
		removed, err := o.book.Delete(c.ID)
		if err != nil {
			return err
		}
		o.trigger.Forget(removed.ID)
		o.notifySchedule(removed.OwnerUsername, events.ScheduleDeleted{ID: removed.ID})
		return nil

	case events.CheckConflict:
		if err := authz.Authorize(p, authz.CheckConflict, ""); err != nil {
			return err
		}
		entries := o.book.Entries()
		res := events.ConflictResult{Overlaps: schedule.FindOverlaps(entries, c.Schedule)}
		if with, ok := schedule.FindConflict(entries, c.Schedule); ok {
			res.Conflict = true
			res.ConflictWith = &with
		}
		if res.Overlaps == nil {
			res.Overlaps = []models.ScheduleEntry{}
		}
		o.reply(connID, res)
		return nil

	case events.ImportSchedules:
		if err := authz.Authorize(p, authz.Administration, ""); err != nil {
			return err
		}
		return o.importSchedules(connID, c)

	case events.GetOperators:
		if err := authz.Authorize(p, authz.Administration, ""); err != nil {
			return err
		}
		o.reply(connID, events.OperatorsList{Operators: o.users.Operators()})
		return nil

	case events.AddOperator:
		if err := authz.Authorize(p, authz.Administration, ""); err != nil {
			return err
		}
		if err := o.users.AddOperator(c.Username, c.Password); err != nil {
			return err
		}
		o.out.SendWhere(isAdmin, events.OperatorAdded{Username: c.Username})
		return nil

	case events.RemoveOperator:
		if err := authz.Authorize(p, authz.Administration, ""); err != nil {
			return err
		}
		if err := o.users.RemoveOperator(c.Username); err != nil {
			return err
		}
		o.out.SendWhere(isAdmin, events.OperatorRemoved{Username: c.Username})
		return nil

	case events.ChangePassword:
		if err := authz.Authorize(p, authz.ChangePassword, ""); err != nil {
			return err
		}
		if err := o.users.ChangePassword(p, c.OldPassword, c.NewPassword); err != nil {
			return err
		}
		o.reply(connID, events.PasswordChanged{})
		return nil

	case events.FactoryReset:
		if err := authz.Authorize(p, authz.Administration, ""); err != nil {
			return err
		}
		o.factoryReset(connID, p)
		return nil

	case events.SetTimezone:
		if err := authz.Authorize(p, authz.Administration, ""); err != nil {
			return err
		}
		if err := o.clock.SetTimezone(c.Timezone); err != nil {
			return err
		}
		log.Info().Str("timezone", o.clock.Timezone()).Msg("timezone changed")
		o.out.Broadcast(events.Timezone{Timezone: o.clock.Timezone()})
		return nil

	case events.GetIntegrationSettings:
		if err := authz.Authorize(p, authz.Administration, ""); err != nil {
			return err
		}
		o.reply(connID, events.IntegrationSettings{IntegrationSettings: o.integration.Masked()})
		return nil

	case events.SaveIntegrationSettings:
		if err := authz.Authorize(p, authz.Administration, ""); err != nil {
			return err
		}
		next, err := c.IntegrationPatch.Apply(o.integration)
		if err != nil {
			return err
		}
		o.integration = next
		log.Info().
			Bool("enabled", next.Enabled).
			Int("days_ahead", next.DaysAhead).
			Int("sync_hour", next.SyncHour).
			Msg("integration settings saved")
		o.reply(connID, events.IntegrationSettingsSaved{})
		return nil

	case events.Invalid:
		return errors.New(c.Reason)

	default:
		return fmt.Errorf("unsupported action: %s", cmd.Action())
	}
}

func (o *Orchestrator) authenticate(connID string, c events.Authenticate) {
	p, err := o.users.Authenticate(c.Username, c.Password)
	if err != nil {
		o.registry.SetPrincipal(connID, models.Viewer())
		log.Warn().Str("connection_id", connID).Str("username", c.Username).Msg("authentication failed")
		o.reply(connID, events.AuthFailed{Message: "Invalid username or password"})
		return
	}
	o.registry.SetPrincipal(connID, p)
	log.Info().Str("connection_id", connID).Str("username", p.Username).Str("role", string(p.Role)).Msg("connection authenticated")
	o.reply(connID, events.AuthSuccess{Role: p.Role, Username: p.Username})
}

func (o *Orchestrator) importSchedules(connID string, c events.ImportSchedules) error {
	source := c.Source
	if source == "" {
		source = o.config.ImportSource
	}
	wall := o.clock.Wall()
	res := o.book.Import(source, c.Schedules, wall.Location(), wall)
	for _, e := range res.Imported {
		o.notifySchedule(e.OwnerUsername, events.ScheduleAdded{Schedule: e})
	}
	for _, e := range res.Updated {
		o.notifySchedule(e.OwnerUsername, events.ScheduleUpdated{Schedule: e})
	}
	log.Info().
		Str("source", source).
		Int("imported", len(res.Imported)).
		Int("updated", len(res.Updated)).
		Int("skipped", len(res.Skipped)).
		Msg("schedules imported")
	o.reply(connID, events.ImportComplete{Source: source, ImportResult: res})
	return nil
}

func (o *Orchestrator) factoryReset(connID string, p models.Principal) {
	o.users.FactoryReset()
	o.book.Clear()
	o.trigger.Reset()
	o.integration = models.DefaultIntegrationSettings()
	o.emit(o.session.Reset())
	o.emit(o.session.SaveSettings(o.config.Defaults))
	o.out.Broadcast(events.SchedulingStatus{Enabled: false})
	log.Warn().Str("username", p.Username).Msg("factory reset")
	o.reply(connID, events.FactoryResetComplete{})
}

// notifySchedule targets a schedule change at every connection allowed to see it.
func (o *Orchestrator) notifySchedule(owner string, ev events.Event) {
	o.out.SendWhere(func(q models.Principal) bool { return authz.CanView(q, owner) }, ev)
}

func (o *Orchestrator) reply(connID string, ev events.Event) {
	if connID == "" {
		return
	}
	o.out.Send(connID, ev)
}

// ownerOr returns the stored owner, or p's own name when the entry does not
// exist so that role checks still run before the not-found error.
func ownerOr(e models.ScheduleEntry, found bool, p models.Principal) string {
	if found {
		return e.OwnerUsername
	}
	return p.Username
}

func isAdmin(p models.Principal) bool {
	return p.Role == models.RoleAdmin
}
