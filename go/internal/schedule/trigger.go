package schedule

import (
	"time"

	"github.com/mcdev12/courtclock/go/internal/models"
)

// DefaultDebounce suppresses a second trigger of the same entry inside this window.
const DefaultDebounce = 2 * time.Minute

// Trigger matches the wall clock against schedule entries.
type Trigger struct {
	debounce  time.Duration
	lastFired map[string]time.Time
}

func NewTrigger(debounce time.Duration) *Trigger {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Trigger{debounce: debounce, lastFired: make(map[string]time.Time)}
}

// Due returns the first enabled entry whose start slot equals the minute of
// wall, skipping entries fired within the debounce window.
func (t *Trigger) Due(entries []models.ScheduleEntry, wall time.Time) (models.ScheduleEntry, bool) {
	now := models.Slot{Day: int(wall.Weekday()), Hour: wall.Hour(), Minute: wall.Minute()}
	for _, e := range entries {
		if !e.Enabled || e.Slot() != now {
			continue
		}
		if last, ok := t.lastFired[e.ID]; ok && wall.Sub(last) < t.debounce {
			continue
		}
		return e, true
	}
	return models.ScheduleEntry{}, false
}

// MarkFired records that id triggered at wall.
func (t *Trigger) MarkFired(id string, wall time.Time) {
	t.lastFired[id] = wall
}

// Forget drops debounce state for a deleted entry.
func (t *Trigger) Forget(id string) {
	delete(t.lastFired, id)
}

func (t *Trigger) Reset() {
	clear(t.lastFired)
}
