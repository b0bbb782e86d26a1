// Package schedule holds the recurring weekly schedule, its conflict rules and
// the trigger that decides when an entry should auto-start the timer.
package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/courtclock/go/internal/authz"
	"github.com/mcdev12/courtclock/go/internal/models"
)

// MaxEntries caps the size of the schedule.
const MaxEntries = 50

var (
	ErrNotFound     = errors.New("schedule not found")
	ErrLimitReached = errors.New("maximum number of schedules reached")
)

// Book is the set of schedule entries plus the global scheduling toggle.
// It is not safe for concurrent use; the orchestrator owns it.
type Book struct {
	entries []models.ScheduleEntry
	enabled bool
	newID   func() string
}

// NewBook creates an empty book with scheduling disabled.
func NewBook() *Book {
	return &Book{newID: func() string { return uuid.New().String() }}
}

func (b *Book) SchedulingEnabled() bool { return b.enabled }

func (b *Book) SetSchedulingEnabled(enabled bool) { b.enabled = enabled }

// Entries returns a copy of all entries in insertion order.
func (b *Book) Entries() []models.ScheduleEntry {
	return append([]models.ScheduleEntry(nil), b.entries...)
}

// VisibleTo returns the entries p may see.
func (b *Book) VisibleTo(p models.Principal) []models.ScheduleEntry {
	out := []models.ScheduleEntry{}
	for _, e := range b.entries {
		if authz.CanView(p, e.OwnerUsername) {
			out = append(out, e)
		}
	}
	return out
}

func (b *Book) Get(id string) (models.ScheduleEntry, bool) {
	if i := b.index(id); i >= 0 {
		return b.entries[i], true
	}
	return models.ScheduleEntry{}, false
}

// Add stores a new manual entry owned by owner. The server assigns id, owner and createdAt.
func (b *Book) Add(entry models.ScheduleEntry, owner string, now time.Time) (models.ScheduleEntry, error) {
	entry.ClubName = strings.TrimSpace(entry.ClubName)
	if err := models.ValidateSchedule(entry); err != nil {
		return models.ScheduleEntry{}, err
	}
	if len(b.entries) >= MaxEntries {
		return models.ScheduleEntry{}, ErrLimitReached
	}
	entry.ID = b.newID()
	entry.OwnerUsername = owner
	entry.CreatedAt = now.UnixMilli()
	if err := b.checkConflict(entry); err != nil {
		return models.ScheduleEntry{}, err
	}
	b.entries = append(b.entries, entry)
	return entry, nil
}

// Update replaces the editable fields of an existing entry. Owner and
// createdAt are kept from the stored entry.
func (b *Book) Update(entry models.ScheduleEntry) (models.ScheduleEntry, error) {
	i := b.index(entry.ID)
	if i < 0 {
		return models.ScheduleEntry{}, fmt.Errorf("update %q: %w", entry.ID, ErrNotFound)
	}
	entry.ClubName = strings.TrimSpace(entry.ClubName)
	if err := models.ValidateSchedule(entry); err != nil {
		return models.ScheduleEntry{}, err
	}
	entry.OwnerUsername = b.entries[i].OwnerUsername
	entry.CreatedAt = b.entries[i].CreatedAt
	if err := b.checkConflict(entry); err != nil {
		return models.ScheduleEntry{}, err
	}
	b.entries[i] = entry
	return entry, nil
}

// Delete removes an entry and returns it.
func (b *Book) Delete(id string) (models.ScheduleEntry, error) {
	i := b.index(id)
	if i < 0 {
		return models.ScheduleEntry{}, fmt.Errorf("delete %q: %w", id, ErrNotFound)
	}
	removed := b.entries[i]
	b.entries = append(b.entries[:i], b.entries[i+1:]...)
	return removed, nil
}

// Clear removes every entry and disables scheduling.
func (b *Book) Clear() {
	b.entries = nil
	b.enabled = false
}

func (b *Book) checkConflict(entry models.ScheduleEntry) error {
	if !entry.Enabled {
		return nil
	}
	if existing, ok := FindConflict(b.entries, entry); ok {
		return &ConflictError{With: existing}
	}
	return nil
}

func (b *Book) index(id string) int {
	for i, e := range b.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}
