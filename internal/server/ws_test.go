package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voxsignal/vad-service/internal/config"
	"github.com/voxsignal/vad-service/internal/stream"
	"github.com/voxsignal/vad-service/internal/vad"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestWSServer(t *testing.T, maxConnections int) (*WSServer, *httptest.Server) {
	t.Helper()

	mgr, err := stream.NewManager(testLogger(), nil, stream.ManagerConfig{
		EngineConfig:    vad.DefaultConfig(),
		InputSampleRate: vad.DefaultSampleRate,
		SessionTimeout:  time.Minute,
		CleanupInterval: time.Minute,
	})
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	t.Cleanup(mgr.Stop)

	cfg := &config.ServerConfig{
		Port:           3001,
		BindAddress:    "127.0.0.1",
		Path:           "/",
		MaxConnections: maxConnections,
		ReadLimit:      8 << 20,
	}

	ws := NewWSServer(cfg, testLogger(), mgr, nil)
	ts := httptest.NewServer(ws.server.Handler)
	t.Cleanup(ts.Close)

	return ws, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendBuffer(t *testing.T, conn *websocket.Conn, samples []float64) {
	t.Helper()

	payload, err := json.Marshal(map[string]any{"buffer": samples})
	if err != nil {
		t.Fatalf("Failed to marshal audio message: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		t.Fatalf("Failed to write message: %v", err)
	}
}

func readResult(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read result: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("Result is not valid JSON: %v", err)
	}
	return result
}

func TestWSServerStreamsResults(t *testing.T) {
	ws, ts := newTestWSServer(t, 10)
	conn := dial(t, ts)

	// One exact frame of silence produces one result.
	sendBuffer(t, conn, make([]float64, vad.DefaultFrameSize))

	result := readResult(t, conn)
	if result["frame_count"].(float64) != 1 {
		t.Errorf("Expected frame_count 1, got %v", result["frame_count"])
	}
	if result["is_speech"] != false {
		t.Errorf("Expected is_speech false for silence, got %v", result["is_speech"])
	}
	if _, ok := result["vad_decision_reason"]; !ok {
		t.Error("Expected vad_decision_reason field in result")
	}

	// Two frames in one message produce two results in order.
	sendBuffer(t, conn, make([]float64, 2*vad.DefaultFrameSize))

	for want := 2; want <= 3; want++ {
		result = readResult(t, conn)
		if result["frame_count"].(float64) != float64(want) {
			t.Errorf("Expected frame_count %d, got %v", want, result["frame_count"])
		}
	}

	// The counters land just after the write reaches the client.
	deadline := time.Now().Add(time.Second)
	for {
		stats := ws.GetStatistics()
		if stats.MessagesReceived == 2 && stats.ResultsSent == 3 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("Expected 2 messages and 3 results, got %d and %d",
				stats.MessagesReceived, stats.ResultsSent)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWSServerSkipsMalformedMessages(t *testing.T) {
	ws, ts := newTestWSServer(t, 10)
	conn := dial(t, ts)

	// A malformed message is counted but does not kill the session.
	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("Failed to write message: %v", err)
	}
	sendBuffer(t, conn, make([]float64, vad.DefaultFrameSize))

	result := readResult(t, conn)
	if result["frame_count"].(float64) != 1 {
		t.Errorf("Expected frame_count 1 after malformed message, got %v", result["frame_count"])
	}

	stats := ws.GetStatistics()
	if stats.ParseErrors != 1 {
		t.Errorf("Expected 1 parse error, got %d", stats.ParseErrors)
	}
}

func TestWSServerSessionPerConnection(t *testing.T) {
	ws, ts := newTestWSServer(t, 10)

	connA := dial(t, ts)
	connB := dial(t, ts)

	// Each connection has its own engine with its own frame counter.
	sendBuffer(t, connA, make([]float64, vad.DefaultFrameSize))
	sendBuffer(t, connA, make([]float64, vad.DefaultFrameSize))
	sendBuffer(t, connB, make([]float64, vad.DefaultFrameSize))

	readResult(t, connA)
	resultA := readResult(t, connA)
	resultB := readResult(t, connB)

	if resultA["frame_count"].(float64) != 2 {
		t.Errorf("Expected frame_count 2 on first connection, got %v", resultA["frame_count"])
	}
	if resultB["frame_count"].(float64) != 1 {
		t.Errorf("Expected frame_count 1 on second connection, got %v", resultB["frame_count"])
	}

	if stats := ws.GetStatistics(); stats.ActiveSessions != 2 {
		t.Errorf("Expected 2 active sessions, got %d", stats.ActiveSessions)
	}
}

func TestWSServerConnectionLimit(t *testing.T) {
	_, ts := newTestWSServer(t, 1)

	dial(t, ts)

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			if resp != nil && resp.StatusCode == 503 {
				return
			}
			t.Fatalf("Expected 503 rejection, got err=%v resp=%v", err, resp)
		}
		// The first connection's accounting may not have landed yet.
		conn.Close()
		if time.Now().After(deadline) {
			t.Fatal("Expected second connection to be rejected")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWSServerConcurrentReservationsHonorLimit(t *testing.T) {
	ws, _ := newTestWSServer(t, 4)

	// Many goroutines race for slots at once; the limit must hold even
	// when every racer observes the counter in the same instant.
	const attempts = 32
	var wg sync.WaitGroup
	granted := make(chan struct{}, attempts)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, ok := ws.reserveSlot(); ok {
				granted <- struct{}{}
			}
		}()
	}
	close(start)
	wg.Wait()
	close(granted)

	count := 0
	for range granted {
		count++
	}
	if count != 4 {
		t.Errorf("Expected exactly 4 reservations granted, got %d", count)
	}
	if stats := ws.GetStatistics(); stats.ActiveConnections != 4 {
		t.Errorf("Expected 4 active connections, got %d", stats.ActiveConnections)
	}

	// A released slot becomes available again.
	ws.releaseSlot()
	if _, ok := ws.reserveSlot(); !ok {
		t.Error("Expected a reservation to succeed after a release")
	}
}

func TestWSServerRemovesSessionOnDisconnect(t *testing.T) {
	ws, ts := newTestWSServer(t, 10)

	conn := dial(t, ts)
	sendBuffer(t, conn, make([]float64, vad.DefaultFrameSize))
	readResult(t, conn)

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ws.GetStatistics().ActiveSessions == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("Expected session removal after disconnect, still %d active",
		ws.GetStatistics().ActiveSessions)
}
