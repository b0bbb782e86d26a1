package models

import (
	"fmt"
	"strings"
)

// ImportedIDPrefix marks schedule entries that came from an external calendar.
const ImportedIDPrefix = "hc-"

const (
	MinScheduleDuration = 1
	MaxScheduleDuration = 180
	MaxClubNameLength   = 64
	MinutesPerWeek      = 7 * 24 * 60
)

// ScheduleEntry is a recurring weekly session slot.
type ScheduleEntry struct {
	ID              string `json:"id"`
	ClubName        string `json:"clubName"`
	OwnerUsername   string `json:"ownerUsername"`
	DayOfWeek       int    `json:"dayOfWeek"`
	StartHour       int    `json:"startHour"`
	StartMinute     int    `json:"startMinute"`
	DurationMinutes int    `json:"durationMinutes"`
	Enabled         bool   `json:"enabled"`
	CreatedAt       int64  `json:"createdAt"`
}

// Slot is a minute of the week. Day 0 is Sunday.
type Slot struct {
	Day    int `json:"dayOfWeek"`
	Hour   int `json:"startHour"`
	Minute int `json:"startMinute"`
}

// WeekMinute returns minutes elapsed since Sunday 00:00.
func (s Slot) WeekMinute() int {
	return s.Day*24*60 + s.Hour*60 + s.Minute
}

func (s Slot) String() string {
	return fmt.Sprintf("day %d %02d:%02d", s.Day, s.Hour, s.Minute)
}

// Slot returns the entry's start slot.
func (e ScheduleEntry) Slot() Slot {
	return Slot{Day: e.DayOfWeek, Hour: e.StartHour, Minute: e.StartMinute}
}

// IsImported reports whether the entry was created by an external import.
func (e ScheduleEntry) IsImported() bool {
	return IsImportedID(e.ID)
}

// IsImportedID reports whether id carries the import prefix.
func IsImportedID(id string) bool {
	return strings.HasPrefix(id, ImportedIDPrefix)
}

// ValidationError describes a single rejected field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ValidateSchedule checks the user-editable fields of an entry.
func ValidateSchedule(e ScheduleEntry) error {
	name := strings.TrimSpace(e.ClubName)
	switch {
	case name == "":
		return &ValidationError{Field: "clubName", Message: "is required"}
	case len(name) > MaxClubNameLength:
		return &ValidationError{Field: "clubName", Message: fmt.Sprintf("must be at most %d characters", MaxClubNameLength)}
	case e.DayOfWeek < 0 || e.DayOfWeek > 6:
		return &ValidationError{Field: "dayOfWeek", Message: "must be between 0 and 6"}
	case e.StartHour < 0 || e.StartHour > 23:
		return &ValidationError{Field: "startHour", Message: "must be between 0 and 23"}
	case e.StartMinute < 0 || e.StartMinute > 59:
		return &ValidationError{Field: "startMinute", Message: "must be between 0 and 59"}
	case e.DurationMinutes < MinScheduleDuration || e.DurationMinutes > MaxScheduleDuration:
		return &ValidationError{Field: "durationMinutes", Message: fmt.Sprintf("must be between %d and %d", MinScheduleDuration, MaxScheduleDuration)}
	}
	return nil
}
