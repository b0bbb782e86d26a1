package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/courtclock/go/internal/clock"
	"github.com/mcdev12/courtclock/go/internal/models"
	"github.com/mcdev12/courtclock/go/internal/timer/events"
	"github.com/mcdev12/courtclock/go/internal/timer/orchestrator"
	"github.com/mcdev12/courtclock/go/internal/users"
	"golang.org/x/crypto/bcrypt"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Name
}

func (p *fakePublisher) Publish(ev events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev.EventName())
}

func (p *fakePublisher) names() []events.Name {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Name(nil), p.events...)
}

type testServer struct {
	srv   *httptest.Server
	relay *fakePublisher
}

func newTestServer(t *testing.T, maxConns int) *testServer {
	t.Helper()
	fake := clockwork.NewFakeClockAt(time.Date(2024, time.June, 3, 12, 0, 0, 0, time.UTC))
	src, err := clock.New(fake, "UTC")
	if err != nil {
		t.Fatalf("clock.New: %v", err)
	}
	app, err := users.NewApp(users.Config{AdminUsername: "admin", AdminPassword: "admin", BcryptCost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}

	cfg := DefaultConnectionConfig()
	cfg.MaxConnections = maxConns
	cm := NewConnectionManager(cfg)
	relay := &fakePublisher{}
	cm.SetRelay(relay)

	orch := orchestrator.NewOrchestrator(src, app, cm, cm, nil, orchestrator.DefaultConfig())
	svc := NewService(cm, orch, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		orch.Run(ctx)
	}()

	mux := http.NewServeMux()
	svc.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)

	t.Cleanup(func() {
		svc.Stop()
		srv.Close()
		cancel()
		<-done
	})
	return &testServer{srv: srv, relay: relay}
}

func (s *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) events.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	ev, err := events.DecodeEvent(data)
	if err != nil || ev == nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return ev
}

func readNames(t *testing.T, conn *websocket.Conn, n int) []events.Name {
	t.Helper()
	out := make([]events.Name, 0, n)
	for range n {
		out = append(out, readEvent(t, conn).EventName())
	}
	return out
}

func send(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

var greeting = []events.Name{events.NameSync, events.NameSettings, events.NameSchedulingStatus, events.NameTimezone}

func TestGatewayEndToEnd(t *testing.T) {
	s := newTestServer(t, 2)

	admin := s.dial(t)
	if got := readNames(t, admin, 4); !cmp.Equal(got, greeting) {
		t.Fatalf("admin greeting: %v", got)
	}
	send(t, admin, `{"action":"authenticate","username":"admin","password":"admin"}`)
	if diff := cmp.Diff(events.AuthSuccess{Role: models.RoleAdmin, Username: "admin"}, readEvent(t, admin)); diff != "" {
		t.Fatalf("auth (-want +got):\n%s", diff)
	}

	viewer := s.dial(t)
	if got := readNames(t, viewer, 4); !cmp.Equal(got, greeting) {
		t.Fatalf("viewer greeting: %v", got)
	}

	send(t, viewer, `{"action":"start"}`)
	if diff := cmp.Diff(events.Error{Message: "permission denied - viewer mode"}, readEvent(t, viewer)); diff != "" {
		t.Fatalf("viewer start (-want +got):\n%s", diff)
	}

	send(t, admin, `{"action":"start"}`)
	for name, conn := range map[string]*websocket.Conn{"admin": admin, "viewer": viewer} {
		rs, ok := readEvent(t, conn).(events.RoundStarted)
		if !ok || !rs.First || rs.CurrentRound != 1 || rs.GameDuration != models.DefaultGame {
			t.Fatalf("%s: round started = %+v", name, rs)
		}
	}

	send(t, viewer, `{"action":"nonsense"}`)
	if diff := cmp.Diff(events.Error{Message: "unknown action: nonsense"}, readEvent(t, viewer)); diff != "" {
		t.Fatalf("unknown action (-want +got):\n%s", diff)
	}

	if got := s.relay.names(); !cmp.Equal(got, []events.Name{events.NameStart}) {
		t.Fatalf("relayed = %v", got)
	}

	// connection cap
	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("third dial: err=%v resp=%v", err, resp)
	}

	var state orchestrator.StateView
	getJSON(t, s.srv.URL+"/api/state", &state)
	if state.Timer.Status != models.TimerStatusRunning || state.Timezone != "UTC" {
		t.Fatalf("state = %+v", state)
	}

	var stats ConnectionStats
	getJSON(t, s.srv.URL+"/ws/stats", &stats)
	want := ConnectionStats{
		TotalConnections: 2,
		MaxConnections:   2,
		ByRole:           map[models.Role]int{models.RoleAdmin: 1, models.RoleViewer: 1},
	}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Fatalf("stats (-want +got):\n%s", diff)
	}
}

func TestDisconnectKeepsState(t *testing.T) {
	s := newTestServer(t, 0)

	op := s.dial(t)
	readNames(t, op, 4)
	send(t, op, `{"action":"authenticate","username":"admin","password":"admin"}`)
	readEvent(t, op)
	send(t, op, `{"action":"start"}`)
	readEvent(t, op)
	op.Close()

	next := s.dial(t)
	snap, ok := readEvent(t, next).(events.Sync)
	if !ok || snap.Status != models.TimerStatusRunning {
		t.Fatalf("greeting sync = %+v", snap)
	}
}

func TestRelaySubjects(t *testing.T) {
	var subjects []string
	r := &EventRelay{
		config: RelayConfig{SubjectPrefix: "venue.court1"},
		publish: func(subject string, data []byte) error {
			subjects = append(subjects, subject)
			var body map[string]any
			if err := json.Unmarshal(data, &body); err != nil {
				t.Fatalf("relayed frame is not JSON: %v", err)
			}
			return nil
		},
	}

	r.Publish(events.Sync{})
	r.Publish(events.BreakEnded{CurrentRound: 2})
	r.Publish(events.ResetDone{})

	want := []string{"venue.court1.break_ended", "venue.court1.reset"}
	if diff := cmp.Diff(want, subjects); diff != "" {
		t.Fatalf("subjects (-want +got):\n%s", diff)
	}

	r.config.IncludeSync = true
	r.Publish(events.Sync{})
	if subjects[len(subjects)-1] != "venue.court1.sync" {
		t.Fatalf("sync not relayed: %v", subjects)
	}
}

func getJSON(t *testing.T, url string, v any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}
