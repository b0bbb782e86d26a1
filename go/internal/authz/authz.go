// Package authz decides whether a principal may perform an action.
package authz

import (
	"errors"
	"fmt"

	"github.com/mcdev12/courtclock/go/internal/models"
)

var (
	// ErrNotAuthenticated is returned for viewer connections attempting a privileged action.
	ErrNotAuthenticated = errors.New("permission denied - viewer mode")
	// ErrForbidden is returned when the role lacks the capability.
	ErrForbidden = errors.New("permission denied")
)

// Capability is a class of actions sharing one authorization rule.
type Capability string

const (
	TimerControl     Capability = "timer_control"
	SchedulingToggle Capability = "scheduling_toggle"
	ViewSchedules    Capability = "view_schedules"
	AddSchedule      Capability = "add_schedule"
	EditSchedule     Capability = "edit_schedule"
	DeleteSchedule   Capability = "delete_schedule"
	CheckConflict    Capability = "check_conflict"
	ChangePassword   Capability = "change_password"
	Administration   Capability = "administration"
)

// Authorize reports whether p may exercise c. owner is the username owning the
// target resource and is only consulted for EditSchedule and DeleteSchedule.
// A nil return means allowed.
func Authorize(p models.Principal, c Capability, owner string) error {
	switch c {
	case TimerControl, SchedulingToggle, ViewSchedules, AddSchedule, CheckConflict, ChangePassword:
		return requireRole(p, models.RoleOperator, c)
	case EditSchedule, DeleteSchedule:
		if err := requireRole(p, models.RoleOperator, c); err != nil {
			return err
		}
		if p.Role == models.RoleAdmin || owner == p.Username {
			return nil
		}
		return fmt.Errorf("%w - you can only modify your own schedules", ErrForbidden)
	case Administration:
		if p.Role != models.RoleAdmin {
			return fmt.Errorf("%w - admin only", ErrForbidden)
		}
		return nil
	default:
		return fmt.Errorf("%w - unknown capability %q", ErrForbidden, c)
	}
}

// CanView reports whether p may see a schedule entry owned by owner.
// Used to filter listings and to target schedule notifications.
func CanView(p models.Principal, owner string) bool {
	switch p.Role {
	case models.RoleAdmin:
		return true
	case models.RoleOperator:
		return p.Username == owner
	default:
		return false
	}
}

func requireRole(p models.Principal, min models.Role, c Capability) error {
	if p.Role.AtLeast(min) {
		return nil
	}
	if p.Role == models.RoleViewer || !p.Role.Valid() {
		return ErrNotAuthenticated
	}
	return fmt.Errorf("%w: %s requires %s", ErrForbidden, c, min)
}
