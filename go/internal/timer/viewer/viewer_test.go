package viewer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/courtclock/go/internal/backoff"
	"github.com/mcdev12/courtclock/go/internal/models"
	"github.com/mcdev12/courtclock/go/internal/timer/events"
)

var t0 = time.Date(2024, time.June, 3, 18, 0, 0, 0, time.UTC)

func running(main, brk int64, ms int64) events.Sync {
	return events.Sync{
		TimerSnapshot: models.TimerSnapshot{
			Status: models.TimerStatusRunning, MainRemaining: main, BreakRemaining: brk, CurrentRound: 1, NumRounds: 3,
		},
		ServerMillis: ms,
	}
}

func TestExtrapolatesBetweenSyncs(t *testing.T) {
	x := NewExtrapolator()
	x.Apply(running(60000, 30000, 1000), t0)

	got := x.View(t0.Add(1500 * time.Millisecond))
	if got.MainRemaining != 58500 || got.BreakRemaining != 28500 {
		t.Fatalf("view = %+v", got)
	}
	if got := x.View(t0.Add(2 * time.Minute)); got.MainRemaining != 0 || got.BreakRemaining != 0 {
		t.Fatalf("view went negative: %+v", got)
	}
}

func TestPauseFreezesAndResumeRebases(t *testing.T) {
	x := NewExtrapolator()
	x.Apply(running(60000, 30000, 1000), t0)
	x.Apply(events.Paused{MainRemaining: 50000, BreakRemaining: 20000, CurrentRound: 1, ServerMillis: 11000}, t0.Add(10*time.Second))

	frozen := x.View(t0.Add(time.Hour))
	if frozen.Status != models.TimerStatusPaused || frozen.MainRemaining != 50000 {
		t.Fatalf("paused view = %+v", frozen)
	}

	resumedAt := t0.Add(time.Hour)
	x.Apply(events.Resumed{MainRemaining: 50000, BreakRemaining: 20000, CurrentRound: 1, ServerMillis: 3611000}, resumedAt)
	if got := x.View(resumedAt.Add(time.Second)); got.MainRemaining != 49000 {
		t.Fatalf("resumed view = %+v", got)
	}
}

func TestStaleSyncIgnored(t *testing.T) {
	x := NewExtrapolator()
	x.Apply(running(60000, 30000, 5000), t0)
	x.Apply(events.ResetDone{ServerMillis: 6000}, t0.Add(time.Second))

	// a sync emitted before the reset must not resurrect the countdown
	if x.Apply(running(59000, 29000, 5900), t0.Add(time.Second)) {
		t.Fatal("stale sync accepted")
	}
	got := x.View(t0.Add(2 * time.Second))
	want := models.TimerSnapshot{Status: models.TimerStatusIdle, CurrentRound: 1, NumRounds: 3}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("view (-want +got):\n%s", diff)
	}
}

func TestRoundStartedAndFinished(t *testing.T) {
	x := NewExtrapolator()
	x.Apply(events.RoundStarted{GameDuration: 60000, BreakDuration: 0, CurrentRound: 2, NumRounds: 2, ServerMillis: 10}, t0)
	if got := x.View(t0.Add(time.Second)); got.CurrentRound != 2 || got.MainRemaining != 59000 {
		t.Fatalf("view = %+v", got)
	}
	x.Apply(events.Finished{NumRounds: 2, ServerMillis: 60010}, t0.Add(time.Minute))
	got := x.View(t0.Add(2 * time.Minute))
	if got.Status != models.TimerStatusFinished || got.MainRemaining != 0 {
		t.Fatalf("finished view = %+v", got)
	}
}

func TestBreakDisabledDoesNotCountDown(t *testing.T) {
	x := NewExtrapolator()
	x.Apply(events.Settings{Settings: models.Settings{NumRounds: 3, BreakTimerEnabled: false}}, t0)
	x.Apply(running(60000, 30000, 1000), t0)
	if got := x.View(t0.Add(time.Second)); got.BreakRemaining != 30000 {
		t.Fatalf("break moved while disabled: %+v", got)
	}
}

func TestClientFollowsServer(t *testing.T) {
	upgrader := websocket.Upgrader{}
	authed := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		authed <- string(data)
		for _, ev := range []events.Event{
			events.AuthSuccess{Role: models.RoleOperator, Username: "op1"},
			running(60000, 30000, 1000),
		} {
			frame, _ := events.Encode(ev)
			conn.WriteMessage(websocket.TextMessage, frame)
		}
		conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"from_the_future"}`))
		conn.ReadMessage()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []events.Name
	synced := make(chan struct{})
	c := NewClient(Options{
		URL:      "ws" + strings.TrimPrefix(srv.URL, "http"),
		Username: "op1",
		Password: "secret",
		OnEvent: func(ev events.Event) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, ev.EventName())
			if ev.EventName() == events.NameSync {
				close(synced)
			}
		},
	}, nil)

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	select {
	case <-synced:
	case <-time.After(5 * time.Second):
		t.Fatal("no sync received")
	}
	if frame := <-authed; !strings.Contains(frame, `"action":"authenticate"`) || !strings.Contains(frame, `"username":"op1"`) {
		t.Fatalf("auth frame = %s", frame)
	}
	if snap := c.Extrapolator().View(time.Now()); snap.Status != models.TimerStatusRunning || snap.MainRemaining > 60000 {
		t.Fatalf("view = %+v", snap)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if diff := cmp.Diff([]events.Name{events.NameAuthSuccess, events.NameSync}, got); diff != "" {
		t.Fatalf("events (-want +got):\n%s", diff)
	}
}

func TestClientGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	c := NewClient(Options{
		URL:     url,
		Backoff: backoff.Options{Min: time.Millisecond, Max: 2 * time.Millisecond, MaxAttempts: 3},
	}, nil)
	err := c.Run(context.Background())
	if !errors.Is(err, backoff.ErrGaveUp) {
		t.Fatalf("err = %v, want ErrGaveUp", err)
	}
}
