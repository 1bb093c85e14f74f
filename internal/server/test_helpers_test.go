package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"make24/internal/config"
	"make24/internal/game"
	"make24/internal/store"

	"github.com/gorilla/websocket"
)

type fixedNumbers []int

func (f fixedNumbers) Generate() []int {
	return append([]int(nil), f...)
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.TickInterval = time.Hour
	cfg.CreateRoomRate = 100
	cfg.CreateRoomBurst = 100
	cfg.MessageRate = 100
	cfg.MessageBurst = 100
	cfg.LogLevel = "error"
	return cfg
}

func newTestApp(t *testing.T, cfg config.Config) (*Server, *httptest.Server) {
	t.Helper()
	engine := game.New(store.NewMemoryStore(), game.Config{
		RoundSeconds: cfg.RoundSeconds,
		MaxRounds:    cfg.MaxRounds,
		TickInterval: cfg.TickInterval,
	}, game.WithNumberSource(fixedNumbers{6, 8, 2, 4}))
	srv := New(engine, cfg)
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		engine.Close()
		ts.Close()
	})
	return srv, ts
}

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	return ts
}

func doRequest(t *testing.T, method, url, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	decoded := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("decode body %q: %v", raw, err)
		}
	}
	return resp.StatusCode, decoded
}

func createRoom(t *testing.T, ts *httptest.Server, maxPlayers int) store.Room {
	t.Helper()
	body := ""
	if maxPlayers > 0 {
		body = `{"maxPlayers":` + strconv.Itoa(maxPlayers) + `}`
	}
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/rooms", strings.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 creating room, got %d", resp.StatusCode)
	}
	var payload struct {
		Success bool       `json:"success"`
		Room    store.Room `json:"room"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode room: %v", err)
	}
	if !payload.Success {
		t.Fatalf("expected success creating room")
	}
	return payload.Room
}

type wsEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendWS(t *testing.T, conn *websocket.Conn, messageType string, data any) {
	t.Helper()
	payload, err := json.Marshal(map[string]any{"type": messageType, "data": data})
	if err != nil {
		t.Fatalf("encode message: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		t.Fatalf("write websocket message: %v", err)
	}
}

func readWS(t *testing.T, conn *websocket.Conn, timeout time.Duration) wsEnvelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read websocket message: %v", err)
	}
	var env wsEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		t.Fatalf("decode websocket message %q: %v", payload, err)
	}
	return env
}

// waitForWS reads until a message of messageType arrives, skipping others.
func waitForWS(t *testing.T, conn *websocket.Conn, messageType string, timeout time.Duration) wsEnvelope {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			t.Fatalf("timed out waiting for %s", messageType)
		}
		env := readWS(t, conn, remaining)
		if env.Type == messageType {
			return env
		}
	}
}

func waitForState(t *testing.T, conn *websocket.Conn, timeout time.Duration, match func(game.GameState) bool) game.GameState {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		env := waitForWS(t, conn, msgGameStateUpdate, time.Until(deadline))
		var state game.GameState
		decodeData(t, env, &state)
		if match(state) {
			return state
		}
	}
}

func decodeData(t *testing.T, env wsEnvelope, out any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("decode %s data %s: %v", env.Type, env.Data, err)
	}
}

func errorText(t *testing.T, env wsEnvelope) string {
	t.Helper()
	var payload errorPayload
	decodeData(t, env, &payload)
	return payload.Error
}

func expectNoWSMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected no websocket message within %s", timeout)
	} else {
		netErr, ok := err.(net.Error)
		if !ok || !netErr.Timeout() {
			t.Fatalf("expected websocket timeout, got %v", err)
		}
	}
}

// joinRoom joins conn to code and returns the player from join_success.
func joinRoom(t *testing.T, conn *websocket.Conn, code, name string) store.Player {
	t.Helper()
	sendWS(t, conn, msgPlayerJoin, map[string]any{"roomCode": code, "playerName": name})
	env := waitForWS(t, conn, msgJoinSuccess, 5*time.Second)
	var payload joinSuccessPayload
	decodeData(t, env, &payload)
	if payload.Player.ID == "" {
		t.Fatalf("expected player id in join_success")
	}
	return payload.Player
}
