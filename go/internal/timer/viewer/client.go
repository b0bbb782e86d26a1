package viewer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/courtclock/go/internal/backoff"
	"github.com/mcdev12/courtclock/go/internal/models"
	"github.com/mcdev12/courtclock/go/internal/timer/events"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	URL      string
	Username string
	Password string
	// Zero means 250ms.
	RenderInterval time.Duration
	// Zero means 10s.
	HandshakeTimeout time.Duration
	Backoff          backoff.Options

	// Render is called on every render tick with the extrapolated countdown.
	Render func(models.TimerSnapshot)
	// OnEvent is called for every decoded event, after the baseline is updated.
	OnEvent func(events.Event)
}

func (o *Options) FillDefaults() {
	if o.RenderInterval == 0 {
		o.RenderInterval = 250 * time.Millisecond
	}
	if o.HandshakeTimeout == 0 {
		o.HandshakeTimeout = 10 * time.Second
	}
	if o.Render == nil {
		o.Render = func(models.TimerSnapshot) {}
	}
	if o.OnEvent == nil {
		o.OnEvent = func(events.Event) {}
	}
}

// Client keeps one connection to the server open, reconnecting with backoff.
type Client struct {
	o      Options
	clock  clockwork.Clock
	dialer *websocket.Dialer
	x      *Extrapolator
}

func NewClient(o Options, clock clockwork.Clock) *Client {
	o.FillDefaults()
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Client{
		o:      o,
		clock:  clock,
		dialer: &websocket.Dialer{HandshakeTimeout: o.HandshakeTimeout},
		x:      NewExtrapolator(),
	}
}

func (c *Client) Extrapolator() *Extrapolator {
	return c.x
}

// Run connects and follows the timer until ctx is done. It returns an error
// wrapping backoff.ErrGaveUp when the server stays unreachable.
func (c *Client) Run(ctx context.Context) error {
	b, err := backoff.New(c.o.Backoff, c.clock)
	if err != nil {
		return fmt.Errorf("create backoff: %w", err)
	}
	for {
		err := c.session(ctx, b)
		if ctx.Err() != nil {
			return nil
		}
		log.Warn().Err(err).Int("attempt", b.Attempt()+1).Msg("connection lost, retrying")
		if err := b.Retry(ctx, err); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (c *Client) session(ctx context.Context, b *backoff.Backoff) error {
	conn, _, err := c.dialer.DialContext(ctx, c.o.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.o.URL, err)
	}
	defer conn.Close()
	b.Reset()
	log.Info().Str("url", c.o.URL).Msg("connected")

	if c.o.Username != "" {
		frame, err := json.Marshal(map[string]string{
			"action":   string(events.ActionAuthenticate),
			"username": c.o.Username,
			"password": c.o.Password,
		})
		if err != nil {
			return fmt.Errorf("encode authenticate: %w", err)
		}
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return fmt.Errorf("send authenticate: %w", err)
		}
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		<-gctx.Done()
		conn.Close()
		return nil
	})
	group.Go(func() error {
		return c.readLoop(conn)
	})
	group.Go(func() error {
		ticker := c.clock.NewTicker(c.o.RenderInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.Chan():
				c.o.Render(c.x.View(c.clock.Now()))
			}
		}
	})
	return group.Wait()
}

func (c *Client) readLoop(conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		ev, err := events.DecodeEvent(data)
		if err != nil {
			log.Warn().Err(err).Msg("dropping malformed event")
			continue
		}
		if ev == nil {
			continue
		}
		c.x.Apply(ev, c.clock.Now())
		c.o.OnEvent(ev)
	}
}
