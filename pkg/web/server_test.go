package web

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mkallevig/sentrycam/pkg/alert"
)

type fakeProvider struct {
	snap alert.Snapshot
}

func (f *fakeProvider) Snapshot() alert.Snapshot {
	return f.snap
}

func TestStatusEndpoint(t *testing.T) {
	srv := NewServer("0", &fakeProvider{snap: alert.Snapshot{
		State:      alert.StateCooldown,
		Suppressed: 3,
	}})

	req := httptest.NewRequest("GET", "/api/status", nil)
	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var snap alert.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.State != alert.StateCooldown || snap.Suppressed != 3 {
		t.Errorf("Unexpected snapshot: %+v", snap)
	}
}

func TestLogBuffer(t *testing.T) {
	srv := NewServer("0", nil)

	srv.AddLog("alert", "presence detected, capturing evidence")
	srv.AddLog("error", "delivery failed")

	req := httptest.NewRequest("GET", "/api/logs", nil)
	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	var logs []LogEntry
	if err := json.Unmarshal(body, &logs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(logs) != 2 || logs[0].Type != "alert" || logs[1].Type != "error" {
		t.Errorf("Unexpected log buffer: %+v", logs)
	}
}

func TestStatusWebSocket(t *testing.T) {
	provider := &fakeProvider{snap: alert.Snapshot{State: alert.StateCapturing}}
	srv := NewServer("18090", provider)

	go srv.Start()
	defer srv.Shutdown()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18090/ws/status", nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()
	time.Sleep(50 * time.Millisecond)

	// A phase change should reach the connected client as a snapshot
	srv.SetPhase(alert.Snapshot{State: alert.StateCapturing})

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}

	var snap alert.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.State != alert.StateCapturing {
		t.Errorf("Expected capturing snapshot, got %+v", snap)
	}
}
