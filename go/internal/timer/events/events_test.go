package events

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mcdev12/courtclock/go/internal/models"
)

func TestEncodeFlattensPayload(t *testing.T) {
	data, err := Encode(Sync{
		TimerSnapshot: models.TimerSnapshot{Status: models.TimerStatusRunning, MainRemaining: 1500, BreakRemaining: 0, CurrentRound: 2, NumRounds: 3},
		ServerMillis:  99,
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("output is not JSON: %s", data)
	}
	want := map[string]any{
		"event": "sync", "status": "RUNNING", "mainTimerRemaining": 1500.0, "breakTimerRemaining": 0.0,
		"currentRound": 2.0, "numRounds": 3.0, "serverMillis": 99.0,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("encoded sync (-want +got):\n%s", diff)
	}
}

func TestEncodeEmptyPayload(t *testing.T) {
	data, err := Encode(PasswordChanged{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(data) != `{"event":"password_changed"}` {
		t.Fatalf("got %s", data)
	}
}

func TestRoundStartedName(t *testing.T) {
	first, _ := Encode(RoundStarted{First: true, CurrentRound: 1})
	next, _ := Encode(RoundStarted{CurrentRound: 2})

	for data, want := range map[string]Name{string(first): NameStart, string(next): NameNewRound} {
		ev, err := DecodeEvent([]byte(data))
		if err != nil {
			t.Fatalf("DecodeEvent(%s): %v", data, err)
		}
		if ev.EventName() != want {
			t.Errorf("%s decoded as %s", data, ev.EventName())
		}
	}
}

func TestDecodeEventUnknownIsIgnored(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"event":"ntp_status","synced":true}`))
	if err != nil || ev != nil {
		t.Fatalf("DecodeEvent = %v, %v; want nil, nil", ev, err)
	}
	if _, err := DecodeEvent([]byte(`not json`)); err == nil {
		t.Fatal("malformed frame decoded")
	}
}

func TestDecodeCommand(t *testing.T) {
	game := int64(120000)
	key, days := "k", 14
	tests := []struct {
		in   string
		want Command
	}{
		{`{"action":"start"}`, Start{}},
		{`{"action":"authenticate","username":"op1","password":"pw"}`, Authenticate{Username: "op1", Password: "pw"}},
		{`{"action":"save_settings","settings":{"gameDuration":120000}}`, SaveSettings{Settings: models.SettingsPatch{GameDuration: &game}}},
		{`{"action":"delete_schedule","id":"abc"}`, DeleteSchedule{ID: "abc"}},
		{`{"action":"enable_scheduling","enabled":true}`, EnableScheduling{Enabled: true}},
		{`{"action":"add_schedule","schedule":{"clubName":"A","dayOfWeek":1,"startHour":18,"startMinute":0,"durationMinutes":60,"enabled":true}}`,
			AddSchedule{Schedule: models.ScheduleEntry{ClubName: "A", DayOfWeek: 1, StartHour: 18, DurationMinutes: 60, Enabled: true}}},
		{`{"action":"save_integration_settings","apiKey":"k","daysAhead":14}`,
			SaveIntegrationSettings{models.IntegrationPatch{APIKey: &key, DaysAhead: &days}}},
		{`{"action":"fly"}`, Invalid{Name: "fly", Reason: "unknown action: fly"}},
		{`{"username":"x"}`, Invalid{Reason: "missing action"}},
		{`{"action":"delete_schedule","id":7}`, Invalid{Name: "delete_schedule", Reason: "invalid delete_schedule request"}},
		{`garbage`, Invalid{Reason: "malformed message"}},
	}
	for _, tt := range tests {
		got := DecodeCommand([]byte(tt.in))
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("DecodeCommand(%s) (-want +got):\n%s", tt.in, diff)
		}
	}
}
