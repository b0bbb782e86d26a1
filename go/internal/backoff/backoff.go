// Package backoff implements the client reconnect delay policy.
package backoff

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrGaveUp is wrapped by Retry once every attempt is spent.
var ErrGaveUp = errors.New("retry limit exceeded")

type Options struct {
	// Must be positive. Zero means default.
	Min time.Duration
	// Must be positive. Zero means default.
	Max time.Duration
	// Must be >= 1.0. Zero means default.
	Grow float64
	// Must be >= 1.0. Zero and 1.0 both mean no jitter.
	Jitter float64
	// Zero means default, negative means unlimited.
	MaxAttempts int
}

func (o *Options) Validate() error {
	if o.Min < 0 {
		return fmt.Errorf("negative min")
	}
	if o.Max < 0 {
		return fmt.Errorf("negative max")
	}
	if o.Min > 0 && o.Max > 0 && o.Min > o.Max {
		return fmt.Errorf("min > max")
	}
	if o.Grow < 1.0 && o.Grow != 0.0 {
		return fmt.Errorf("grow < 1.0")
	}
	if o.Jitter < 1.0 && o.Jitter != 0.0 {
		return fmt.Errorf("jitter < 1.0")
	}
	return nil
}

// FillDefaults applies the reconnect policy: 1s doubling to 30s, ten attempts.
func (o *Options) FillDefaults() {
	if o.Min == 0 {
		o.Min = time.Second
	}
	if o.Max == 0 {
		o.Max = 30 * time.Second
	}
	if o.Grow == 0.0 {
		o.Grow = 2.0
	}
	if o.Jitter == 0.0 {
		o.Jitter = 1.0
	}
	if o.MaxAttempts == 0 {
		o.MaxAttempts = 10
	}
}

type Backoff struct {
	o       Options
	clock   clockwork.Clock
	cur     time.Duration
	attempt int
}

func New(o Options, clock clockwork.Clock) (*Backoff, error) {
	if err := o.Validate(); err != nil {
		return nil, fmt.Errorf("bad config: %w", err)
	}
	o.FillDefaults()
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	b := &Backoff{o: o, clock: clock}
	b.Reset()
	return b, nil
}

// Reset is called after a successful connection.
func (b *Backoff) Reset() {
	b.cur = b.o.Min
	b.attempt = 0
}

// Attempt returns the number of delays handed out since the last Reset.
func (b *Backoff) Attempt() int {
	return b.attempt
}

// Next returns the delay before the next attempt, or false once the attempts
// are exhausted.
func (b *Backoff) Next() (time.Duration, bool) {
	if b.o.MaxAttempts > 0 && b.attempt >= b.o.MaxAttempts {
		return 0, false
	}
	b.attempt++
	wait := b.cur
	next := min(float64(b.o.Max), float64(b.cur)*b.o.Grow)
	b.cur = time.Duration(next)
	if b.o.Jitter > 1.0 {
		jitter := 1.0 + rand.Float64()*(b.o.Jitter-1.0)
		wait = time.Duration(min(float64(b.o.Max), float64(wait)*jitter))
	}
	return wait, true
}

// Retry sleeps for the next delay. It returns an error wrapping ErrGaveUp and
// err when no attempts are left.
func (b *Backoff) Retry(ctx context.Context, err error) error {
	t, ok := b.Next()
	if !ok {
		return fmt.Errorf("%w after %d attempts: %w", ErrGaveUp, b.attempt, err)
	}
	timer := b.clock.NewTimer(t)
	defer timer.Stop()
	select {
	case <-timer.Chan():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
