package events

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mcdev12/courtclock/go/internal/models"
	"github.com/mcdev12/courtclock/go/internal/schedule"
)

// Name identifies an outbound event.
type Name string

const (
	NameAuthSuccess          Name = "auth_success"
	NameAuthFailed           Name = "auth_failed"
	NameStart                Name = "start"
	NameNewRound             Name = "new_round"
	NameSync                 Name = "sync"
	NamePause                Name = "pause"
	NameResume               Name = "resume"
	NameBreakEnded           Name = "break_ended"
	NameReset                Name = "reset"
	NameFinished             Name = "finished"
	NameSettings             Name = "settings"
	NameSettingsSaved        Name = "settings_saved"
	NameSchedulingStatus     Name = "scheduling_status"
	NameSchedulesList        Name = "schedules_list"
	NameScheduleAdded        Name = "schedule_added"
	NameScheduleUpdated      Name = "schedule_updated"
	NameScheduleDeleted      Name = "schedule_deleted"
	NameScheduleStarted      Name = "schedule_started"
	NameConflictResult       Name = "conflict_result"
	NameImportComplete       Name = "import_complete"
	NameOperatorsList        Name = "operators_list"
	NameOperatorAdded        Name = "operator_added"
	NameOperatorRemoved      Name = "operator_removed"
	NamePasswordChanged      Name = "password_changed"
	NameFactoryResetComplete Name = "factory_reset_complete"
	NameTimezone             Name = "timezone"
	NameError                Name = "error"

	NameIntegrationSettings      Name = "integration_settings"
	NameIntegrationSettingsSaved Name = "integration_settings_saved"
)

// Event is an outbound message.
type Event interface {
	EventName() Name
}

type AuthSuccess struct {
	Role     models.Role `json:"role"`
	Username string      `json:"username"`
}

type AuthFailed struct {
	Message string `json:"message"`
}

// RoundStarted is sent as "start" for the first round of a session and as
// "new_round" afterwards.
type RoundStarted struct {
	First         bool  `json:"-"`
	GameDuration  int64 `json:"gameDuration"`
	BreakDuration int64 `json:"breakDuration"`
	CurrentRound  int   `json:"currentRound"`
	NumRounds     int   `json:"numRounds"`
	ServerMillis  int64 `json:"serverMillis"`
}

type Sync struct {
	models.TimerSnapshot
	ServerMillis int64 `json:"serverMillis"`
}

// Paused and Resumed carry the frozen values so clients can re-baseline at once.
type Paused struct {
	MainRemaining  int64 `json:"mainTimerRemaining"`
	BreakRemaining int64 `json:"breakTimerRemaining"`
	CurrentRound   int   `json:"currentRound"`
	ServerMillis   int64 `json:"serverMillis"`
}

type Resumed Paused

type BreakEnded struct {
	CurrentRound int `json:"currentRound"`
}

type ResetDone struct {
	ServerMillis int64 `json:"serverMillis"`
}

type Finished struct {
	NumRounds    int   `json:"numRounds"`
	ServerMillis int64 `json:"serverMillis"`
}

type Settings struct {
	Settings models.Settings `json:"settings"`
}

type SettingsSaved struct{}

type SchedulingStatus struct {
	Enabled bool `json:"enabled"`
}

type SchedulesList struct {
	Schedules         []models.ScheduleEntry `json:"schedules"`
	SchedulingEnabled bool                   `json:"schedulingEnabled"`
}

type ScheduleAdded struct {
	Schedule models.ScheduleEntry `json:"schedule"`
}

type ScheduleUpdated struct {
	Schedule models.ScheduleEntry `json:"schedule"`
}

type ScheduleDeleted struct {
	ID string `json:"id"`
}

type ScheduleStarted struct {
	Schedule models.ScheduleEntry `json:"schedule"`
}

type ConflictResult struct {
	Conflict     bool                   `json:"conflict"`
	ConflictWith *models.ScheduleEntry  `json:"conflictWith,omitempty"`
	Overlaps     []models.ScheduleEntry `json:"overlaps"`
}

type ImportComplete struct {
	Source string `json:"source"`
	schedule.ImportResult
}

type OperatorsList struct {
	Operators []models.Operator `json:"operators"`
}

type OperatorAdded struct {
	Username string `json:"username"`
}

type OperatorRemoved struct {
	Username string `json:"username"`
}

type PasswordChanged struct{}

type FactoryResetComplete struct{}

type Timezone struct {
	Timezone string `json:"timezone"`
}

type Error struct {
	Message string `json:"message"`
}

// IntegrationSettings always carries the masked key.
type IntegrationSettings struct {
	models.IntegrationSettings
}

type IntegrationSettingsSaved struct{}

func (AuthSuccess) EventName() Name { return NameAuthSuccess }
func (AuthFailed) EventName() Name  { return NameAuthFailed }
func (e RoundStarted) EventName() Name {
	if e.First {
		return NameStart
	}
	return NameNewRound
}
func (Sync) EventName() Name                 { return NameSync }
func (Paused) EventName() Name               { return NamePause }
func (Resumed) EventName() Name              { return NameResume }
func (BreakEnded) EventName() Name           { return NameBreakEnded }
func (ResetDone) EventName() Name            { return NameReset }
func (Finished) EventName() Name             { return NameFinished }
func (Settings) EventName() Name             { return NameSettings }
func (SettingsSaved) EventName() Name        { return NameSettingsSaved }
func (SchedulingStatus) EventName() Name     { return NameSchedulingStatus }
func (SchedulesList) EventName() Name        { return NameSchedulesList }
func (ScheduleAdded) EventName() Name        { return NameScheduleAdded }
func (ScheduleUpdated) EventName() Name      { return NameScheduleUpdated }
func (ScheduleDeleted) EventName() Name      { return NameScheduleDeleted }
func (ScheduleStarted) EventName() Name      { return NameScheduleStarted }
func (ConflictResult) EventName() Name       { return NameConflictResult }
func (ImportComplete) EventName() Name       { return NameImportComplete }
func (OperatorsList) EventName() Name        { return NameOperatorsList }
func (OperatorAdded) EventName() Name        { return NameOperatorAdded }
func (OperatorRemoved) EventName() Name      { return NameOperatorRemoved }
func (PasswordChanged) EventName() Name      { return NamePasswordChanged }
func (FactoryResetComplete) EventName() Name { return NameFactoryResetComplete }
func (Timezone) EventName() Name             { return NameTimezone }
func (Error) EventName() Name                { return NameError }

func (IntegrationSettings) EventName() Name      { return NameIntegrationSettings }
func (IntegrationSettingsSaved) EventName() Name { return NameIntegrationSettingsSaved }

// Encode renders e as a flat JSON object with an "event" field first.
func Encode(e Event) ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", e.EventName(), err)
	}
	head, _ := json.Marshal(e.EventName())

	var buf bytes.Buffer
	buf.Grow(len(body) + len(head) + 10)
	buf.WriteString(`{"event":`)
	buf.Write(head)
	if len(body) > 2 {
		buf.WriteByte(',')
		buf.Write(body[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}

// DecodeEvent parses an outbound frame. Unknown event names return a nil event
// and no error so clients can ignore what they do not understand.
func DecodeEvent(data []byte) (Event, error) {
	var head struct {
		Event Name `json:"event"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("malformed event: %w", err)
	}

	switch head.Event {
	case NameAuthSuccess:
		return decodeEvent[AuthSuccess](data)
	case NameAuthFailed:
		return decodeEvent[AuthFailed](data)
	case NameStart, NameNewRound:
		ev, err := decodeEvent[RoundStarted](data)
		if err != nil {
			return nil, err
		}
		rs := ev.(RoundStarted)
		rs.First = head.Event == NameStart
		return rs, nil
	case NameSync:
		return decodeEvent[Sync](data)
	case NamePause:
		return decodeEvent[Paused](data)
	case NameResume:
		return decodeEvent[Resumed](data)
	case NameBreakEnded:
		return decodeEvent[BreakEnded](data)
	case NameReset:
		return decodeEvent[ResetDone](data)
	case NameFinished:
		return decodeEvent[Finished](data)
	case NameSettings:
		return decodeEvent[Settings](data)
	case NameSettingsSaved:
		return SettingsSaved{}, nil
	case NameSchedulingStatus:
		return decodeEvent[SchedulingStatus](data)
	case NameSchedulesList:
		return decodeEvent[SchedulesList](data)
	case NameScheduleAdded:
		return decodeEvent[ScheduleAdded](data)
	case NameScheduleUpdated:
		return decodeEvent[ScheduleUpdated](data)
	case NameScheduleDeleted:
		return decodeEvent[ScheduleDeleted](data)
	case NameScheduleStarted:
		return decodeEvent[ScheduleStarted](data)
	case NameConflictResult:
		return decodeEvent[ConflictResult](data)
	case NameImportComplete:
		return decodeEvent[ImportComplete](data)
	case NameOperatorsList:
		return decodeEvent[OperatorsList](data)
	case NameOperatorAdded:
		return decodeEvent[OperatorAdded](data)
	case NameOperatorRemoved:
		return decodeEvent[OperatorRemoved](data)
	case NamePasswordChanged:
		return PasswordChanged{}, nil
	case NameFactoryResetComplete:
		return FactoryResetComplete{}, nil
	case NameTimezone:
		return decodeEvent[Timezone](data)
	case NameError:
		return decodeEvent[Error](data)
	default:
		return nil, nil
	}
}

func decodeEvent[T Event](data []byte) (Event, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", v.EventName(), err)
	}
	return v, nil
}
