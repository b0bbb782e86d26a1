package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mcdev12/courtclock/go/internal/timer/orchestrator"
)

type stubState struct {
	view orchestrator.StateView
	err  error
}

func (s stubState) State(context.Context) (orchestrator.StateView, error) {
	return s.view, s.err
}

func TestHealthChecker(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	defer cm.Shutdown()

	ok := NewHealthChecker(stubState{view: orchestrator.StateView{ServerMillis: 42}}, cm, nil, time.Second)
	status := ok.Check(context.Background())
	if !status.Healthy || !status.LoopResponsive || status.ServerTimestamp != 42 {
		t.Fatalf("healthy check = %+v", status)
	}
	if status.NATSConnected != nil {
		t.Fatalf("NATSConnected set without a relay")
	}

	bad := NewHealthChecker(stubState{err: context.DeadlineExceeded}, cm, nil, time.Second)
	rec := httptest.NewRecorder()
	bad.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	status = bad.Check(context.Background())
	if status.Healthy || len(status.Errors) != 1 {
		t.Fatalf("unhealthy check = %+v", status)
	}
}
