// Package events defines the websocket protocol: inbound commands and
// outbound events, both flat JSON objects tagged by "action" or "event".
package events

import (
	"encoding/json"
	"fmt"

	"github.com/mcdev12/courtclock/go/internal/models"
	"github.com/mcdev12/courtclock/go/internal/schedule"
)

// Action names an inbound command.
type Action string

const (
	ActionAuthenticate        Action = "authenticate"
	ActionStart               Action = "start"
	ActionPause               Action = "pause"
	ActionReset               Action = "reset"
	ActionSaveSettings        Action = "save_settings"
	ActionGetSettings         Action = "get_settings"
	ActionEnableScheduling    Action = "enable_scheduling"
	ActionGetSchedulingStatus Action = "get_scheduling_status"
	ActionGetSchedules        Action = "get_schedules"
	ActionAddSchedule         Action = "add_schedule"
	ActionUpdateSchedule      Action = "update_schedule"
	ActionDeleteSchedule      Action = "delete_schedule"
	ActionCheckConflict       Action = "check_conflict"
	ActionImportSchedules     Action = "import_schedules"
	ActionGetOperators        Action = "get_operators"
	ActionAddOperator         Action = "add_operator"
	ActionRemoveOperator      Action = "remove_operator"
	ActionChangePassword      Action = "change_password"
	ActionFactoryReset        Action = "factory_reset"
	ActionSetTimezone         Action = "set_timezone"

	ActionGetIntegrationSettings  Action = "get_integration_settings"
	ActionSaveIntegrationSettings Action = "save_integration_settings"
)

// Command is an inbound client request. The set of implementations is closed.
type Command interface {
	Action() Action
	command()
}

type Authenticate struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Start struct{}

// Pause toggles between running and paused.
type Pause struct{}

type Reset struct{}

// SaveSettings carries a partial update; omitted fields keep their value.
type SaveSettings struct {
	Settings models.SettingsPatch `json:"settings"`
}

type GetSettings struct{}

type EnableScheduling struct {
	Enabled bool `json:"enabled"`
}

type GetSchedulingStatus struct{}

type GetSchedules struct{}

type AddSchedule struct {
	Schedule models.ScheduleEntry `json:"schedule"`
}

type UpdateSchedule struct {
	Schedule models.ScheduleEntry `json:"schedule"`
}

type DeleteSchedule struct {
	ID string `json:"id"`
}

// CheckConflict previews a candidate entry without storing it.
type CheckConflict struct {
	Schedule models.ScheduleEntry `json:"schedule"`
}

// ImportSchedules offers externally sourced events, already fetched by the caller.
type ImportSchedules struct {
	Source    string                `json:"source"`
	Schedules []schedule.ImportItem `json:"schedules"`
}

type GetOperators struct{}

type AddOperator struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RemoveOperator struct {
	Username string `json:"username"`
}

type ChangePassword struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type FactoryReset struct{}

type SetTimezone struct {
	Timezone string `json:"timezone"`
}

type GetIntegrationSettings struct{}

// SaveIntegrationSettings carries the patch fields at the top level of the frame.
type SaveIntegrationSettings struct {
	models.IntegrationPatch
}

// Invalid stands in for a frame that could not be decoded.
type Invalid struct {
	Name   string
	Reason string
}

func (Authenticate) Action() Action        { return ActionAuthenticate }
func (Start) Action() Action               { return ActionStart }
func (Pause) Action() Action               { return ActionPause }
func (Reset) Action() Action               { return ActionReset }
func (SaveSettings) Action() Action        { return ActionSaveSettings }
func (GetSettings) Action() Action         { return ActionGetSettings }
func (EnableScheduling) Action() Action    { return ActionEnableScheduling }
func (GetSchedulingStatus) Action() Action { return ActionGetSchedulingStatus }
func (GetSchedules) Action() Action        { return ActionGetSchedules }
func (AddSchedule) Action() Action         { return ActionAddSchedule }
func (UpdateSchedule) Action() Action      { return ActionUpdateSchedule }
func (DeleteSchedule) Action() Action      { return ActionDeleteSchedule }
func (CheckConflict) Action() Action       { return ActionCheckConflict }
func (ImportSchedules) Action() Action     { return ActionImportSchedules }
func (GetOperators) Action() Action        { return ActionGetOperators }
func (AddOperator) Action() Action         { return ActionAddOperator }
func (RemoveOperator) Action() Action      { return ActionRemoveOperator }
func (ChangePassword) Action() Action      { return ActionChangePassword }
func (FactoryReset) Action() Action        { return ActionFactoryReset }
func (SetTimezone) Action() Action         { return ActionSetTimezone }
func (i Invalid) Action() Action           { return Action(i.Name) }

func (GetIntegrationSettings) Action() Action  { return ActionGetIntegrationSettings }
func (SaveIntegrationSettings) Action() Action { return ActionSaveIntegrationSettings }

func (Authenticate) command()        {}
func (Start) command()               {}
func (Pause) command()               {}
func (Reset) command()               {}
func (SaveSettings) command()        {}
func (GetSettings) command()         {}
func (EnableScheduling) command()    {}
func (GetSchedulingStatus) command() {}
func (GetSchedules) command()        {}
func (AddSchedule) command()         {}
func (UpdateSchedule) command()      {}
func (DeleteSchedule) command()      {}
func (CheckConflict) command()       {}
func (ImportSchedules) command()     {}
func (GetOperators) command()        {}
func (AddOperator) command()         {}
func (RemoveOperator) command()      {}
func (ChangePassword) command()      {}
func (FactoryReset) command()        {}
func (SetTimezone) command()         {}
func (Invalid) command()             {}

func (GetIntegrationSettings) command()  {}
func (SaveIntegrationSettings) command() {}

// DecodeCommand parses one inbound frame. It never fails: undecodable frames
// come back as Invalid so the sender can be told why.
func DecodeCommand(data []byte) Command {
	var head struct {
		Action Action `json:"action"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return Invalid{Reason: "malformed message"}
	}

	var cmd Command
	var err error
	switch head.Action {
	case ActionAuthenticate:
		cmd, err = decodeInto[Authenticate](data)
	case ActionStart:
		cmd = Start{}
	case ActionPause:
		cmd = Pause{}
	case ActionReset:
		cmd = Reset{}
	case ActionSaveSettings:
		cmd, err = decodeInto[SaveSettings](data)
	case ActionGetSettings:
		cmd = GetSettings{}
	case ActionEnableScheduling:
		cmd, err = decodeInto[EnableScheduling](data)
	case ActionGetSchedulingStatus:
		cmd = GetSchedulingStatus{}
	case ActionGetSchedules:
		cmd = GetSchedules{}
	case ActionAddSchedule:
		cmd, err = decodeInto[AddSchedule](data)
	case ActionUpdateSchedule:
		cmd, err = decodeInto[UpdateSchedule](data)
	case ActionDeleteSchedule:
		cmd, err = decodeInto[DeleteSchedule](data)
	case ActionCheckConflict:
		cmd, err = decodeInto[CheckConflict](data)
	case ActionImportSchedules:
		cmd, err = decodeInto[ImportSchedules](data)
	case ActionGetOperators:
		cmd = GetOperators{}
	case ActionAddOperator:
		cmd, err = decodeInto[AddOperator](data)
	case ActionRemoveOperator:
		cmd, err = decodeInto[RemoveOperator](data)
	case ActionChangePassword:
		cmd, err = decodeInto[ChangePassword](data)
	case ActionFactoryReset:
		cmd = FactoryReset{}
	case ActionSetTimezone:
		cmd, err = decodeInto[SetTimezone](data)
	case ActionGetIntegrationSettings:
		cmd = GetIntegrationSettings{}
	case ActionSaveIntegrationSettings:
		cmd, err = decodeInto[SaveIntegrationSettings](data)
	case "":
		return Invalid{Reason: "missing action"}
	default:
		return Invalid{Name: string(head.Action), Reason: fmt.Sprintf("unknown action: %s", head.Action)}
	}
	if err != nil {
		return Invalid{Name: string(head.Action), Reason: fmt.Sprintf("invalid %s request", head.Action)}
	}
	return cmd
}

func decodeInto[T Command](data []byte) (Command, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
