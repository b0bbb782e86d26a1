package schedule

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mcdev12/courtclock/go/internal/models"
)

var now = time.Date(2024, time.June, 3, 12, 0, 0, 0, time.UTC)

func newTestBook() *Book {
	b := NewBook()
	n := 0
	b.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return b
}

func TestAddAssignsServerFields(t *testing.T) {
	b := newTestBook()
	in := entry("client-chosen", 1, 18, 0, 60, true)
	in.OwnerUsername = "mallory"
	in.ClubName = "  Smash Club  "

	got, err := b.Add(in, "op1", now)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got.ID != "id-1" || got.OwnerUsername != "op1" || got.CreatedAt != now.UnixMilli() || got.ClubName != "Smash Club" {
		t.Fatalf("server fields not assigned: %+v", got)
	}
}

func TestAddRejectsConflictAndInvalid(t *testing.T) {
	b := newTestBook()
	if _, err := b.Add(entry("", 1, 18, 0, 60, true), "op1", now); err != nil {
		t.Fatalf("Add: %v", err)
	}

	_, err := b.Add(entry("", 1, 18, 0, 30, true), "op2", now)
	var ce *ConflictError
	if !errors.As(err, &ce) || ce.With.ID != "id-1" {
		t.Fatalf("err = %v, want conflict with id-1", err)
	}

	// a disabled entry does not occupy the slot
	if _, err := b.Add(entry("", 1, 18, 0, 30, false), "op2", now); err != nil {
		t.Fatalf("disabled add: %v", err)
	}

	var ve *models.ValidationError
	if _, err := b.Add(entry("", 7, 18, 0, 30, true), "op2", now); !errors.As(err, &ve) || ve.Field != "dayOfWeek" {
		t.Fatalf("err = %v, want dayOfWeek validation error", err)
	}
	if _, err := b.Add(entry("", 2, 18, 0, 181, true), "op2", now); !errors.As(err, &ve) || ve.Field != "durationMinutes" {
		t.Fatalf("err = %v, want durationMinutes validation error", err)
	}
}

func TestAddLimit(t *testing.T) {
	b := newTestBook()
	for i := 0; i < MaxEntries; i++ {
		if _, err := b.Add(entry("", i%7, i/7, 0, 30, true), "op1", now); err != nil {
			t.Fatalf("Add %d: %v", i, err)
		}
	}
	if _, err := b.Add(entry("", 0, 23, 0, 30, true), "op1", now); !errors.Is(err, ErrLimitReached) {
		t.Fatalf("err = %v, want ErrLimitReached", err)
	}
}

func TestUpdatePreservesOwnership(t *testing.T) {
	b := newTestBook()
	orig, _ := b.Add(entry("", 1, 18, 0, 60, true), "op1", now)

	change := orig
	change.OwnerUsername = "op2"
	change.CreatedAt = 0
	change.StartMinute = 30
	got, err := b.Update(change)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.OwnerUsername != "op1" || got.CreatedAt != orig.CreatedAt || got.StartMinute != 30 {
		t.Fatalf("updated entry = %+v", got)
	}

	if _, err := b.Update(entry("missing", 1, 1, 1, 1, true)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateIntoOccupiedSlot(t *testing.T) {
	b := newTestBook()
	b.Add(entry("", 1, 18, 0, 60, true), "op1", now)
	second, _ := b.Add(entry("", 1, 19, 0, 60, true), "op1", now)

	second.StartHour = 18
	if _, err := b.Update(second); !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if got, _ := b.Get(second.ID); got.StartHour != 19 {
		t.Fatal("failed update mutated the entry")
	}
}

func TestDeleteAndVisibility(t *testing.T) {
	b := newTestBook()
	a, _ := b.Add(entry("", 1, 18, 0, 60, true), "op1", now)
	b.Add(entry("", 2, 18, 0, 60, true), "op2", now)

	op1 := models.Principal{Role: models.RoleOperator, Username: "op1"}
	admin := models.Principal{Role: models.RoleAdmin, Username: "admin"}
	if got := b.VisibleTo(op1); len(got) != 1 || got[0].ID != a.ID {
		t.Fatalf("op1 sees %v", got)
	}
	if got := b.VisibleTo(admin); len(got) != 2 {
		t.Fatalf("admin sees %d entries", len(got))
	}
	if got := b.VisibleTo(models.Viewer()); len(got) != 0 {
		t.Fatalf("viewer sees %v", got)
	}

	if _, err := b.Delete(a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := b.Delete(a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestClear(t *testing.T) {
	b := newTestBook()
	b.Add(entry("", 1, 18, 0, 60, true), "op1", now)
	b.SetSchedulingEnabled(true)

	b.Clear()
	if len(b.Entries()) != 0 || b.SchedulingEnabled() {
		t.Fatal("Clear left state behind")
	}
}
