package schedule

import (
	"errors"
	"fmt"

	"github.com/mcdev12/courtclock/go/internal/models"
)

// ErrConflict is matched by every *ConflictError.
var ErrConflict = errors.New("time slot conflict")

// ConflictError names the entry already occupying a slot.
type ConflictError struct {
	With models.ScheduleEntry
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("time slot conflicts with existing schedule: %s", e.With.ClubName)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// FindConflict reports the first enabled entry occupying exactly the
// candidate's start slot. The candidate's own id never conflicts with itself,
// and an imported candidate is not blocked by other imported entries.
func FindConflict(entries []models.ScheduleEntry, candidate models.ScheduleEntry) (models.ScheduleEntry, bool) {
	slot := candidate.Slot()
	for _, e := range entries {
		if !e.Enabled || e.Slot() != slot {
			continue
		}
		if candidate.ID != "" && e.ID == candidate.ID {
			continue
		}
		if candidate.IsImported() && e.IsImported() {
			continue
		}
		return e, true
	}
	return models.ScheduleEntry{}, false
}

// FindOverlaps returns enabled entries whose weekly interval intersects the
// candidate's, wrapping from Saturday night into Sunday. Exact slot matching is
// what FindConflict enforces; overlaps are informational.
func FindOverlaps(entries []models.ScheduleEntry, candidate models.ScheduleEntry) []models.ScheduleEntry {
	var out []models.ScheduleEntry
	a := candidate.Slot().WeekMinute()
	for _, e := range entries {
		if !e.Enabled || (candidate.ID != "" && e.ID == candidate.ID) {
			continue
		}
		b := e.Slot().WeekMinute()
		if weekDistance(a, b) < candidate.DurationMinutes || weekDistance(b, a) < e.DurationMinutes {
			out = append(out, e)
		}
	}
	return out
}

// weekDistance is the number of minutes from a forward to b within one week.
func weekDistance(a, b int) int {
	return ((b-a)%models.MinutesPerWeek + models.MinutesPerWeek) % models.MinutesPerWeek
}
