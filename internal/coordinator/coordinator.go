package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/five82/pulse/internal/dashboard"
	"github.com/five82/pulse/internal/live"
	"github.com/five82/pulse/internal/metrics"
	"github.com/five82/pulse/internal/notify"
	"github.com/five82/pulse/internal/state"
	"github.com/five82/pulse/internal/status"
)

// ErrNoRefresher is returned by Refresh when no Refresher was configured.
var ErrNoRefresher = errors.New("refresh not configured")

// ConnectionState is the push channel state as seen by the coordinator.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Origin names the path an update arrived on.
type Origin string

const (
	OriginPush    Origin = "push"
	OriginPoll    Origin = "poll"
	OriginRefresh Origin = "refresh"
)

// Update is one accepted snapshot, delivered to every listener.
type Update struct {
	Records []dashboard.Record
	Status  status.Classification
	Origin  Origin
	// Prompt is set when the notification gate allowed an interactive prompt.
	Prompt bool
	// Seq counts accepted updates. It is informational and never used to
	// order or reject updates.
	Seq        uint64
	ReceivedAt time.Time
	// ServerTime is the data source timestamp, zero when it sent none.
	ServerTime time.Time
}

// Listener is the rendering side. Calls come from the coordinator goroutine.
type Listener interface {
	OnSnapshotChanged(u Update)
	OnConnectionStatusChanged(connected bool)
}

// Channel is the push transport.
type Channel interface {
	Run(ctx context.Context, h live.Handler) error
}

// Fallback is the pull transport used while the push channel is down.
type Fallback interface {
	Start(ctx context.Context)
	Stop()
	Active() bool
	SetCallbacks(onResult func(dashboard.DataResponse), onError func(error))
}

// updateRequester is implemented by channels that can ask the server to push
// a fresh snapshot.
type updateRequester interface {
	RequestUpdate() error
}

// Gate rate-limits interactive prompts.
type Gate interface {
	ShouldShow(kind notify.Kind) bool
	Reset(kind notify.Kind)
}

var (
	_ Channel         = (*live.Socket)(nil)
	_ updateRequester = (*live.Socket)(nil)
	_ Gate            = (*notify.Gate)(nil)
	_ Listener        = ListenerFuncs{}
)

type eventKind int

const (
	evConnecting eventKind = iota
	evOpen
	evClose
	evError
	evData
	evFailure
)

type event struct {
	kind   eventKind
	origin Origin
	resp   dashboard.DataResponse
	err    error
}

const eventBuffer = 64

// Coordinator owns the connection state machine. All state lives in the Run
// goroutine; transports only enqueue events.
type Coordinator struct {
	channel   Channel
	poller    Fallback
	gate      Gate
	refresher dashboard.Refresher
	store     *state.Store
	metrics   *metrics.Sync
	log       zerolog.Logger

	listenersMu sync.RWMutex
	listeners   []Listener

	events  chan event
	done    chan struct{}
	refresh singleflight.Group

	// loop-owned
	ctx          context.Context
	state        ConnectionState
	seq          uint64
	lastCategory status.Code
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithListener registers l for updates. May be given more than once.
func WithListener(l Listener) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.listeners = append(c.listeners, l)
		}
	}
}

// WithStore mirrors every update and transport change into s.
func WithStore(s *state.Store) Option {
	return func(c *Coordinator) { c.store = s }
}

// WithMetrics records sync activity on m.
func WithMetrics(m *metrics.Sync) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithRefresher enables Refresh.
func WithRefresher(r dashboard.Refresher) Option {
	return func(c *Coordinator) { c.refresher = r }
}

// WithLogger sets the coordinator's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Coordinator) {
		c.log = l.With().Str("component", "coordinator").Logger()
	}
}

// New builds a Coordinator. Nothing runs until Run is called.
func New(channel Channel, poller Fallback, gate Gate, opts ...Option) *Coordinator {
	c := &Coordinator{
		channel: channel,
		poller:  poller,
		gate:    gate,
		store:   &state.Store{},
		log:     zerolog.Nop(),
		events:  make(chan event, eventBuffer),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddListener registers l. Listeners added after Run starts receive only
// later events.
func (c *Coordinator) AddListener(l Listener) {
	if l == nil {
		return
	}
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.listeners = append(c.listeners, l)
}

// Store returns the snapshot store the coordinator writes to.
func (c *Coordinator) Store() *state.Store {
	return c.store
}

// Run starts polling, connects the push channel and applies events until ctx
// ends. Transport failures are never returned; Run returns ctx.Err().
func (c *Coordinator) Run(ctx context.Context) error {
	defer close(c.done)

	c.start(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = c.channel.Run(ctx, &handler{c: c, ctx: ctx})
	}()

	for {
		select {
		case <-ctx.Done():
			c.poller.Stop()
			wg.Wait()
			c.log.Debug().Msg("coordinator stopped")
			return ctx.Err()
		case ev := <-c.events:
			c.handle(ev)
		}
	}
}

// Refresh asks the data source for a fresh snapshot and feeds the result
// through the normal acceptance path. Concurrent calls share one request.
func (c *Coordinator) Refresh(ctx context.Context) error {
	if c.refresher == nil {
		return ErrNoRefresher
	}
	_, err, shared := c.refresh.Do("refresh", func() (any, error) {
		resp, err := c.refresher.Refresh(ctx)
		if err != nil {
			c.enqueue(ctx, event{kind: evFailure, origin: OriginRefresh, err: err})
			return nil, fmt.Errorf("refresh: %w", err)
		}
		c.enqueue(ctx, event{kind: evData, origin: OriginRefresh, resp: resp})
		return nil, nil
	})
	if shared {
		c.log.Debug().Msg("refresh joined an in-flight request")
	}
	return err
}

// start puts the loop in its initial state: Disconnected with polling on.
func (c *Coordinator) start(ctx context.Context) {
	c.ctx = ctx
	c.state = Disconnected
	c.poller.SetCallbacks(
		func(resp dashboard.DataResponse) {
			c.enqueue(ctx, event{kind: evData, origin: OriginPoll, resp: resp})
		},
		func(err error) {
			c.enqueue(ctx, event{kind: evFailure, origin: OriginPoll, err: err})
		},
	)
	c.poller.Start(ctx)
	c.publishTransport()
	c.log.Info().Msg("sync started, polling until the push channel connects")
}

func (c *Coordinator) enqueue(ctx context.Context, ev event) {
	select {
	case c.events <- ev:
	case <-ctx.Done():
	case <-c.done:
	}
}

func (c *Coordinator) handle(ev event) {
	switch ev.kind {
	case evConnecting:
		if c.state == Disconnected {
			c.setState(Connecting)
		}
	case evOpen:
		c.setState(Connected)
		c.requestUpdate()
	case evClose:
		c.setState(Disconnected)
	case evError:
		c.metrics.RecordFailure(string(OriginPush))
		c.log.Debug().Err(ev.err).Msg("push channel error, falling back to polling")
		c.setState(Disconnected)
	case evData:
		c.accept(ev.resp, ev.origin)
	case evFailure:
		c.metrics.RecordFailure(string(ev.origin))
		c.store.RecordFailure(ev.err)
		c.log.Warn().Err(ev.err).Str("origin", string(ev.origin)).Msg("fetch failed")
	}
}

// setState moves the state machine and keeps polling active exactly while
// the push channel is not connected.
func (c *Coordinator) setState(next ConnectionState) {
	prev := c.state
	c.state = next

	if next == Connected {
		c.poller.Stop()
	} else {
		c.poller.Start(c.ctx)
	}

	if prev != next {
		c.log.Info().Str("from", prev.String()).Str("to", next.String()).Msg("connection state changed")
	}
	c.publishTransport()

	wasConnected, isConnected := prev == Connected, next == Connected
	if wasConnected != isConnected {
		for _, l := range c.snapshotListeners() {
			l.OnConnectionStatusChanged(isConnected)
		}
	}
}

// requestUpdate asks a freshly opened channel for the current snapshot so the
// view does not wait for the next server-side change.
func (c *Coordinator) requestUpdate() {
	r, ok := c.channel.(updateRequester)
	if !ok {
		return
	}
	if err := r.RequestUpdate(); err != nil {
		c.log.Debug().Err(err).Msg("request update failed")
	}
}

func (c *Coordinator) publishTransport() {
	connected := c.state == Connected
	polling := c.poller.Active()
	c.store.SetTransport(c.state.String(), connected, polling)
	c.metrics.SetTransport(connected, polling)
}

// accept applies resp unconditionally. Whatever completes last wins.
func (c *Coordinator) accept(resp dashboard.DataResponse, origin Origin) {
	class := status.Classify(resp.Status, resp.Message)

	prompt := false
	if class.Action == status.ActionAuthorize {
		prompt = c.gate.ShouldShow(notify.KindAuth)
		c.metrics.RecordPrompt(string(notify.KindAuth), prompt)
	} else if c.lastCategory == status.NeedAuth && class.Category == status.Success {
		c.gate.Reset(notify.KindAuth)
	}
	c.lastCategory = class.Category

	c.seq++
	u := Update{
		Records:    dashboard.CloneRecords(resp.Videos),
		Status:     class,
		Origin:     origin,
		Prompt:     prompt,
		Seq:        c.seq,
		ReceivedAt: time.Now(),
		ServerTime: resp.ParsedTimestamp(),
	}

	c.store.Apply(u.Records, class, string(origin), prompt)
	c.metrics.RecordUpdate(string(origin), len(u.Records))

	c.log.Debug().
		Str("origin", string(origin)).
		Str("category", string(class.Category)).
		Int("records", len(u.Records)).
		Uint64("seq", u.Seq).
		Bool("prompt", prompt).
		Msg("snapshot applied")

	for _, l := range c.snapshotListeners() {
		l.OnSnapshotChanged(u)
	}
}

func (c *Coordinator) snapshotListeners() []Listener {
	c.listenersMu.RLock()
	defer c.listenersMu.RUnlock()
	return append([]Listener(nil), c.listeners...)
}

// handler adapts push channel callbacks into loop events.
type handler struct {
	c   *Coordinator
	ctx context.Context
}

func (h *handler) OnConnecting() { h.c.enqueue(h.ctx, event{kind: evConnecting}) }
func (h *handler) OnOpen()       { h.c.enqueue(h.ctx, event{kind: evOpen}) }
func (h *handler) OnClose()      { h.c.enqueue(h.ctx, event{kind: evClose}) }

func (h *handler) OnError(err error) {
	h.c.enqueue(h.ctx, event{kind: evError, err: err})
}

// OnPayloadError counts a malformed push payload as a failed fetch. The
// connection state is unchanged.
func (h *handler) OnPayloadError(err error) {
	h.c.enqueue(h.ctx, event{kind: evFailure, origin: OriginPush, err: err})
}

func (h *handler) OnMessage(resp dashboard.DataResponse) {
	h.c.enqueue(h.ctx, event{kind: evData, origin: OriginPush, resp: resp})
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	SnapshotChanged         func(Update)
	ConnectionStatusChanged func(bool)
}

func (f ListenerFuncs) OnSnapshotChanged(u Update) {
	if f.SnapshotChanged != nil {
		f.SnapshotChanged(u)
	}
}

func (f ListenerFuncs) OnConnectionStatusChanged(connected bool) {
	if f.ConnectionStatusChanged != nil {
		f.ConnectionStatusChanged(connected)
	}
}
