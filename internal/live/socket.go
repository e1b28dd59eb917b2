package live

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/five82/pulse/internal/dashboard"
)

// ErrNotConnected is returned by RequestUpdate when no connection is open.
var ErrNotConnected = errors.New("push channel not connected")

// Handler receives the push channel's lifecycle and data events. Calls are
// made from the socket's goroutine, one at a time.
type Handler interface {
	// OnConnecting is called before every dial attempt.
	OnConnecting()
	OnOpen()
	OnClose()
	OnError(err error)
	OnMessage(resp dashboard.DataResponse)
	// OnPayloadError reports a frame that could not be decoded. The
	// connection stays open.
	OnPayloadError(err error)
}

// Event names on the wire.
const (
	EventDataUpdate    = "data_update"
	EventRequestUpdate = "request_update"
)

// Envelope is the JSON frame exchanged over the socket.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

const (
	DefaultHandshakeTimeout = 15 * time.Second
	defaultPingInterval     = 30 * time.Second
	defaultReadTimeout      = 90 * time.Second
	writeTimeout            = 5 * time.Second
	initialReconnectDelay   = time.Second
	maxReconnectDelay       = 30 * time.Second
)

// Socket is a websocket push channel that reconnects on its own.
type Socket struct {
	url              string
	header           http.Header
	handshakeTimeout time.Duration
	pingInterval     time.Duration
	readTimeout      time.Duration
	newBackOff       func() backoff.BackOff
	log              zerolog.Logger

	connMu  sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// Option configures a Socket.
type Option func(*Socket)

// WithHeader adds headers sent with the handshake.
func WithHeader(h http.Header) Option {
	return func(s *Socket) {
		for k, v := range h {
			for _, vv := range v {
				s.header.Add(k, vv)
			}
		}
	}
}

// WithHandshakeTimeout bounds the time allowed for dial plus upgrade.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(s *Socket) {
		if d > 0 {
			s.handshakeTimeout = d
		}
	}
}

// WithKeepAlive sets the ping cadence and the read deadline extended by each pong.
func WithKeepAlive(ping, read time.Duration) Option {
	return func(s *Socket) {
		if ping > 0 {
			s.pingInterval = ping
		}
		if read > 0 {
			s.readTimeout = read
		}
	}
}

// WithBackOff replaces the reconnect policy.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(s *Socket) {
		if newBackOff != nil {
			s.newBackOff = newBackOff
		}
	}
}

// WithLogger sets the socket's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Socket) {
		s.log = l.With().Str("component", "live").Logger()
	}
}

// NewSocket returns a Socket for the ws:// or wss:// url.
func NewSocket(url string, opts ...Option) *Socket {
	s := &Socket{
		url:              url,
		header:           http.Header{},
		handshakeTimeout: DefaultHandshakeTimeout,
		pingInterval:     defaultPingInterval,
		readTimeout:      defaultReadTimeout,
		newBackOff:       defaultBackOff,
		log:              zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initialReconnectDelay
	b.MaxInterval = maxReconnectDelay
	return b
}

// URL returns the endpoint the socket dials.
func (s *Socket) URL() string {
	return s.url
}

// Run connects and keeps reconnecting until ctx ends. It always returns ctx.Err().
func (s *Socket) Run(ctx context.Context, h Handler) error {
	policy := s.newBackOff()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		h.OnConnecting()
		conn, err := s.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warn().Err(err).Str("url", s.url).Msg("push channel connect failed")
			h.OnError(err)
		} else {
			policy.Reset()
			s.connMu.Lock()
			s.conn = conn
			s.connMu.Unlock()
			s.log.Info().Str("url", s.url).Msg("push channel connected")
			h.OnOpen()

			err = s.serve(ctx, conn, h)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if isCleanClose(err) {
				s.log.Info().Msg("push channel closed by server")
				h.OnClose()
			} else {
				s.log.Warn().Err(err).Msg("push channel dropped")
				h.OnError(err)
			}
		}

		delay := policy.NextBackOff()
		if delay == backoff.Stop {
			delay = maxReconnectDelay
		}
		s.log.Debug().Dur("delay", delay).Msg("reconnecting push channel")
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// RequestUpdate asks the server to push a fresh snapshot.
func (s *Socket) RequestUpdate() error {
	s.connMu.Lock()
	conn := s.conn
	s.connMu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	return s.writeJSON(conn, Envelope{Event: EventRequestUpdate})
}

// Connected reports whether a connection is currently open.
func (s *Socket) Connected() bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.conn != nil
}

func (s *Socket) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, s.handshakeTimeout)
	defer cancel()

	dialer := websocket.Dialer{
		Proxy:             http.ProxyFromEnvironment,
		HandshakeTimeout:  s.handshakeTimeout,
		EnableCompression: true,
	}
	conn, resp, err := dialer.DialContext(dialCtx, s.url, s.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

// serve reads frames until the connection fails or ctx ends. It clears the
// stored connection on return.
func (s *Socket) serve(ctx context.Context, conn *websocket.Conn, h Handler) error {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.keepAlive(ctx, conn, done)
	}()

	defer func() {
		close(done)
		wg.Wait()
		s.connMu.Lock()
		s.conn = nil
		s.connMu.Unlock()
		_ = conn.Close()
	}()

	_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	})

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		s.handleFrame(frame, h)
	}
}

func (s *Socket) handleFrame(frame []byte, h Handler) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		s.log.Warn().Err(err).Msg("malformed push frame")
		h.OnPayloadError(fmt.Errorf("decode push frame: %w", err))
		return
	}
	switch env.Event {
	case EventDataUpdate:
		var resp dashboard.DataResponse
		if err := json.Unmarshal(env.Data, &resp); err != nil {
			s.log.Warn().Err(err).Msg("malformed data_update payload")
			h.OnPayloadError(fmt.Errorf("decode data_update: %w", err))
			return
		}
		h.OnMessage(resp)
	default:
		s.log.Debug().Str("event", env.Event).Msg("ignoring push event")
	}
}

// keepAlive pings the server and closes the connection when ctx ends so the
// blocked reader returns.
func (s *Socket) keepAlive(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			s.writeMu.Lock()
			_ = conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second),
			)
			s.writeMu.Unlock()
			_ = conn.Close()
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			s.writeMu.Unlock()
			if err != nil {
				s.log.Debug().Err(err).Msg("ping failed")
				_ = conn.Close()
				return
			}
		}
	}
}

func (s *Socket) writeJSON(conn *websocket.Conn, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func isCleanClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
