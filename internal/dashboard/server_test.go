package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"
)

func startTestServer(t *testing.T) *Server {
	t.Helper()

	s := NewServer(Config{Port: 0})
	if err := s.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Stop(); err != nil {
			t.Errorf("Stop() failed: %v", err)
		}
	})

	return s
}

func TestHealthEndpoint(t *testing.T) {
	s := startTestServer(t)

	resp, err := http.Get(fmt.Sprintf("http://%s/health", s.Addr()))
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"status":"ok"}` {
		t.Errorf("body = %s", body)
	}
}

func TestRootServesSnapshot(t *testing.T) {
	s := startTestServer(t)

	// Before any scan the snapshot is empty
	resp, err := http.Get(fmt.Sprintf("http://%s/", s.Addr()))
	if err != nil {
		t.Fatalf("GET / failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != `{"files":[],"regions":0}` {
		t.Errorf("empty snapshot body = %s", body)
	}

	s.SetSnapshot(ScanData{
		Files:   []ScanFile{{Path: "a.txt", Regions: 2}},
		Regions: 2,
	})

	resp, err = http.Get(fmt.Sprintf("http://%s/", s.Addr()))
	if err != nil {
		t.Fatalf("GET / failed: %v", err)
	}
	defer resp.Body.Close()

	var snap ScanData
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("failed to decode snapshot: %v", err)
	}
	if snap.Regions != 2 || len(snap.Files) != 1 || snap.Files[0].Path != "a.txt" {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestWebSocketBroadcast(t *testing.T) {
	s := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, fmt.Sprintf("ws://%s/ws", s.Addr()), nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	defer conn.CloseNow()

	// The server registers clients asynchronously after the upgrade;
	// retry the broadcast until this client sees it.
	payload, _ := json.Marshal(StatsData{FilesRemaining: 3, RegionsRemaining: 7})
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(50 * time.Millisecond):
				s.Broadcast(Message{Type: MessageTypeStats, Data: payload})
			}
		}
	}()

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("websocket read failed: %v", err)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("failed to decode message: %v", err)
	}
	if msg.Type != MessageTypeStats {
		t.Errorf("message type = %q, want stats", msg.Type)
	}
	if msg.Timestamp.IsZero() {
		t.Error("broadcast did not stamp the message")
	}

	var stats StatsData
	if err := json.Unmarshal(msg.Data, &stats); err != nil {
		t.Fatalf("failed to decode stats: %v", err)
	}
	if stats.FilesRemaining != 3 || stats.RegionsRemaining != 7 {
		t.Errorf("stats = %+v", stats)
	}
}
