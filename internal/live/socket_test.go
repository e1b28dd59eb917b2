package live

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/five82/pulse/internal/dashboard"
)

type recordingHandler struct {
	mu       sync.Mutex
	events   chan string
	messages    []dashboard.DataResponse
	errs        []error
	payloadErrs []error
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{events: make(chan string, 1024)}
}

// emit never blocks so a reconnect loop left running after a test cannot wedge Run.
func (h *recordingHandler) emit(ev string) {
	select {
	case h.events <- ev:
	default:
	}
}

func (h *recordingHandler) OnConnecting() { h.emit("connecting") }
func (h *recordingHandler) OnOpen()       { h.emit("open") }
func (h *recordingHandler) OnClose()      { h.emit("close") }

func (h *recordingHandler) OnError(err error) {
	h.mu.Lock()
	h.errs = append(h.errs, err)
	h.mu.Unlock()
	h.emit("error")
}

func (h *recordingHandler) OnPayloadError(err error) {
	h.mu.Lock()
	h.payloadErrs = append(h.payloadErrs, err)
	h.mu.Unlock()
	h.emit("payload_error")
}

func (h *recordingHandler) OnMessage(resp dashboard.DataResponse) {
	h.mu.Lock()
	h.messages = append(h.messages, resp)
	h.mu.Unlock()
	h.emit("message")
}

func (h *recordingHandler) expect(t *testing.T, want ...string) {
	t.Helper()
	for _, w := range want {
		select {
		case got := <-h.events:
			if got != w {
				t.Fatalf("event = %q, want %q", got, w)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout waiting for %q", w)
		}
	}
}

// setupWebSocketServer upgrades every request and hands the conn to handler.
func setupWebSocketServer(t *testing.T, handler func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(server.Close)
	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func fastBackOff() backoff.BackOff {
	return backoff.NewConstantBackOff(10 * time.Millisecond)
}

func dataFrame(t *testing.T, resp dashboard.DataResponse) []byte {
	t.Helper()
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	frame, err := json.Marshal(Envelope{Event: EventDataUpdate, Data: data})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return frame
}

func TestSocket_DeliversDataUpdateThenClose(t *testing.T) {
	server := setupWebSocketServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, dataFrame(t, dashboard.DataResponse{
			Status: "success",
			Videos: []dashboard.Record{{"id": "A"}, {"id": "B"}},
		}))
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		time.Sleep(50 * time.Millisecond)
	})

	h := newRecordingHandler()
	s := NewSocket(wsURL(server), WithBackOff(fastBackOff))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, h) }()

	h.expect(t, "connecting", "open", "message", "close")
	cancel()
	<-done

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.messages) != 1 || len(h.messages[0].Videos) != 2 {
		t.Fatalf("messages = %#v, want one update with 2 records", h.messages)
	}
	if got := h.messages[0].Videos[0].Text("id"); got != "A" {
		t.Fatalf("first record id = %q, want A (server order)", got)
	}
}

func TestSocket_ReportsMalformedFramesAndKeepsReading(t *testing.T) {
	server := setupWebSocketServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte("{not-json"))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"data_update","data":{"videos":"nope"}}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"something_else","data":{}}`))
		_ = conn.WriteMessage(websocket.TextMessage, dataFrame(t, dashboard.DataResponse{Status: "no_data"}))
		time.Sleep(200 * time.Millisecond)
	})

	h := newRecordingHandler()
	s := NewSocket(wsURL(server), WithBackOff(fastBackOff))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = s.Run(ctx, h) }()

	h.expect(t, "connecting", "open", "payload_error", "payload_error", "message")

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.messages) != 1 || h.messages[0].Status != "no_data" {
		t.Fatalf("messages = %#v, want only the well-formed update", h.messages)
	}
	if len(h.payloadErrs) != 2 || !strings.Contains(h.payloadErrs[1].Error(), "data_update") {
		t.Fatalf("payload errors = %v, want the bad frame and the bad data_update", h.payloadErrs)
	}
	if len(h.errs) != 0 {
		t.Fatalf("connection errors = %v, want none for bad payloads", h.errs)
	}
}

func TestSocket_DialFailureReportsErrorAndRetries(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(server)
	server.Close()

	h := newRecordingHandler()
	s := NewSocket(url, WithBackOff(fastBackOff), WithHandshakeTimeout(200*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = s.Run(ctx, h) }()

	h.expect(t, "connecting", "error", "connecting", "error")
}

func TestSocket_HandshakeTimeoutIsAnError(t *testing.T) {
	stall := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-stall:
		}
	}))
	t.Cleanup(func() {
		close(stall)
		server.Close()
	})

	h := newRecordingHandler()
	s := NewSocket(wsURL(server), WithBackOff(fastBackOff), WithHandshakeTimeout(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	start := time.Now()
	go func() { _ = s.Run(ctx, h) }()
	h.expect(t, "connecting", "error")
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("handshake error took %v, want it bounded by the handshake timeout", elapsed)
	}
}

func TestSocket_AbruptDropIsAnError(t *testing.T) {
	server := setupWebSocketServer(t, func(conn *websocket.Conn) {
		_ = conn.UnderlyingConn().Close()
	})

	h := newRecordingHandler()
	s := NewSocket(wsURL(server), WithBackOff(fastBackOff))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = s.Run(ctx, h) }()

	h.expect(t, "connecting", "open", "error", "connecting", "open")
}

func TestSocket_RequestUpdate(t *testing.T) {
	received := make(chan Envelope, 1)
	server := setupWebSocketServer(t, func(conn *websocket.Conn) {
		var env Envelope
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if json.Unmarshal(frame, &env) == nil {
			received <- env
		}
	})

	s := NewSocket(wsURL(server), WithBackOff(fastBackOff))
	if err := s.RequestUpdate(); err != ErrNotConnected {
		t.Fatalf("RequestUpdate before connect = %v, want ErrNotConnected", err)
	}

	h := newRecordingHandler()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = s.Run(ctx, h) }()
	h.expect(t, "connecting", "open")

	deadline := time.Now().Add(time.Second)
	for !s.Connected() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if err := s.RequestUpdate(); err != nil {
		t.Fatalf("RequestUpdate returned error: %v", err)
	}
	select {
	case env := <-received:
		if env.Event != EventRequestUpdate {
			t.Fatalf("event = %q, want %q", env.Event, EventRequestUpdate)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never received request_update")
	}
}

func TestSocket_CancelStopsWithoutEvents(t *testing.T) {
	server := setupWebSocketServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	h := newRecordingHandler()
	s := NewSocket(wsURL(server), WithBackOff(fastBackOff))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, h) }()
	h.expect(t, "connecting", "open")

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	select {
	case ev := <-h.events:
		t.Fatalf("unexpected event %q after cancel", ev)
	default:
	}
}
