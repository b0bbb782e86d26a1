package schedule

import (
	"errors"
	"strings"
	"time"

	"github.com/mcdev12/courtclock/go/internal/models"
)

// ImportItem is one externally sourced event offered for import.
// When StartDate is set it takes precedence over the explicit slot fields and
// is converted to the venue timezone.
type ImportItem struct {
	ExternalID      string    `json:"externalId"`
	Name            string    `json:"name"`
	StartDate       time.Time `json:"startDate,omitzero"`
	DayOfWeek       int       `json:"dayOfWeek"`
	StartHour       int       `json:"startHour"`
	StartMinute     int       `json:"startMinute"`
	DurationMinutes int       `json:"durationMinutes"`
}

// SkippedImport explains why an item was not imported.
type SkippedImport struct {
	ExternalID string `json:"externalId"`
	Reason     string `json:"reason"`
}

// ImportResult summarises an import run.
type ImportResult struct {
	Imported []models.ScheduleEntry `json:"imported"`
	Updated  []models.ScheduleEntry `json:"updated"`
	Skipped  []SkippedImport        `json:"skipped"`
}

// Import upserts external events as entries with the import id prefix, owned
// by source. Re-importing the same external event updates it in place; an
// item whose slot is held by a manual entry is skipped.
func (b *Book) Import(source string, items []ImportItem, loc *time.Location, now time.Time) ImportResult {
	res := ImportResult{Imported: []models.ScheduleEntry{}, Updated: []models.ScheduleEntry{}, Skipped: []SkippedImport{}}
	for _, item := range items {
		entry, err := importEntry(source, item, loc, now)
		if err != nil {
			res.Skipped = append(res.Skipped, SkippedImport{ExternalID: item.ExternalID, Reason: err.Error()})
			continue
		}
		i := b.index(entry.ID)
		if i >= 0 {
			// a disabled entry stays disabled and so cannot conflict
			entry.CreatedAt = b.entries[i].CreatedAt
			entry.Enabled = b.entries[i].Enabled
		}
		if err := b.checkConflict(entry); err != nil {
			res.Skipped = append(res.Skipped, SkippedImport{ExternalID: item.ExternalID, Reason: err.Error()})
			continue
		}
		if i >= 0 {
			b.entries[i] = entry
			res.Updated = append(res.Updated, entry)
			continue
		}
		if len(b.entries) >= MaxEntries {
			res.Skipped = append(res.Skipped, SkippedImport{ExternalID: item.ExternalID, Reason: ErrLimitReached.Error()})
			continue
		}
		b.entries = append(b.entries, entry)
		res.Imported = append(res.Imported, entry)
	}
	return res
}

func importEntry(source string, item ImportItem, loc *time.Location, now time.Time) (models.ScheduleEntry, error) {
	id := strings.TrimSpace(item.ExternalID)
	if id == "" {
		return models.ScheduleEntry{}, errors.New("external id is required")
	}
	entry := models.ScheduleEntry{
		ID:              models.ImportedIDPrefix + id,
		ClubName:        strings.TrimSpace(item.Name),
		OwnerUsername:   source,
		DayOfWeek:       item.DayOfWeek,
		StartHour:       item.StartHour,
		StartMinute:     item.StartMinute,
		DurationMinutes: item.DurationMinutes,
		Enabled:         true,
		CreatedAt:       now.UnixMilli(),
	}
	if !item.StartDate.IsZero() {
		start := item.StartDate.In(loc)
		entry.DayOfWeek = int(start.Weekday())
		entry.StartHour = start.Hour()
		entry.StartMinute = start.Minute()
	}
	if err := models.ValidateSchedule(entry); err != nil {
		return models.ScheduleEntry{}, err
	}
	return entry, nil
}
