// Package clock supplies server time to the timer and the scheduler.
package clock

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultTimezone is the venue timezone used when none is configured.
const DefaultTimezone = "Pacific/Auckland"

// ErrEmptyTimezone is returned when a blank timezone name is supplied.
var ErrEmptyTimezone = errors.New("timezone must not be empty")

// Source wraps a clockwork.Clock with the venue timezone. Elapsed time always
// comes from the underlying clock; the timezone only affects wall-clock reads.
type Source struct {
	clock clockwork.Clock

	mu   sync.RWMutex
	loc  *time.Location
	name string
}

// New creates a Source. In production pass clockwork.NewRealClock(), in tests a FakeClock.
func New(c clockwork.Clock, timezone string) (*Source, error) {
	loc, err := LoadTimezone(timezone)
	if err != nil {
		return nil, err
	}
	return &Source{clock: c, loc: loc, name: loc.String()}, nil
}

// LoadTimezone resolves an IANA timezone name.
func LoadTimezone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", name, err)
	}
	return loc, nil
}

// Clock returns the underlying clock for tickers and timers.
func (s *Source) Clock() clockwork.Clock {
	return s.clock
}

// Now returns the current instant.
func (s *Source) Now() time.Time {
	return s.clock.Now()
}

// NewTicker creates a ticker on the underlying clock.
func (s *Source) NewTicker(d time.Duration) clockwork.Ticker {
	return s.clock.NewTicker(d)
}

// Wall returns the current instant in the venue timezone.
func (s *Source) Wall() time.Time {
	s.mu.RLock()
	loc := s.loc
	s.mu.RUnlock()
	return s.clock.Now().In(loc)
}

// Timezone returns the configured timezone name.
func (s *Source) Timezone() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// SetTimezone switches the venue timezone.
func (s *Source) SetTimezone(name string) error {
	loc, err := LoadTimezone(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.loc = loc
	s.name = loc.String()
	s.mu.Unlock()
	return nil
}
