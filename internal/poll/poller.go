// Package poll pulls snapshots from the data source on a fixed cadence while
// the push channel is unavailable.
package poll

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/pulse/internal/dashboard"
)

// DefaultInterval is the pull cadence used when none is configured.
const DefaultInterval = 30 * time.Second

// Poller runs at most one polling loop. Start and Stop are idempotent.
type Poller struct {
	fetcher  dashboard.DataFetcher
	interval time.Duration
	log      zerolog.Logger

	cbMu     sync.RWMutex
	onResult func(dashboard.DataResponse)
	onError  func(error)

	mu     sync.Mutex
	stop   chan struct{}
	active bool

	inflight atomic.Int32
	wg       sync.WaitGroup
}

// Option configures a Poller.
type Option func(*Poller)

// WithLogger sets the poller's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Poller) {
		p.log = l.With().Str("component", "poll").Logger()
	}
}

// New returns an idle Poller. Non-positive intervals use DefaultInterval.
func New(fetcher dashboard.DataFetcher, interval time.Duration, opts ...Option) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	p := &Poller{
		fetcher:  fetcher,
		interval: interval,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetCallbacks registers the functions that receive fetch results and
// failures. Either may be nil.
func (p *Poller) SetCallbacks(onResult func(dashboard.DataResponse), onError func(error)) {
	p.cbMu.Lock()
	defer p.cbMu.Unlock()
	p.onResult = onResult
	p.onError = onError
}

// Interval returns the polling cadence.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Active reports whether the polling loop is running.
func (p *Poller) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Start fetches once immediately and then on every interval until Stop is
// called or ctx ends. Fetches run under ctx, so Stop never cancels one that
// is already in flight. Calling Start while active does nothing.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.active {
		p.mu.Unlock()
		return
	}
	p.active = true
	stop := make(chan struct{})
	p.stop = stop
	p.mu.Unlock()

	p.log.Debug().Dur("interval", p.interval).Msg("polling started")

	p.wg.Add(1)
	go p.loop(ctx, stop)
}

// Stop cancels future ticks. Calling Stop while idle does nothing.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active {
		return
	}
	close(p.stop)
	p.stop = nil
	p.active = false
	p.log.Debug().Msg("polling stopped")
}

// Wait blocks until every loop and fetch goroutine has returned.
func (p *Poller) Wait() {
	p.wg.Wait()
}

func (p *Poller) loop(ctx context.Context, stop <-chan struct{}) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.fetch(ctx, true)
	for {
		select {
		case <-ctx.Done():
			p.mu.Lock()
			if p.stop == stop {
				p.stop = nil
				p.active = false
			}
			p.mu.Unlock()
			return
		case <-stop:
			return
		case <-ticker.C:
			p.fetch(ctx, false)
		}
	}
}

// fetch runs one request in its own goroutine. Ticks are skipped while an
// earlier fetch is still running; the first fetch after Start always runs.
func (p *Poller) fetch(ctx context.Context, first bool) {
	if ctx.Err() != nil {
		return
	}
	if !first && p.inflight.Load() > 0 {
		p.log.Debug().Msg("previous fetch still in flight, skipping tick")
		return
	}
	p.inflight.Add(1)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.inflight.Add(-1)

		resp, err := p.fetcher.FetchData(ctx)

		p.cbMu.RLock()
		onResult, onError := p.onResult, p.onError
		p.cbMu.RUnlock()

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.log.Warn().Err(err).Msg("poll failed")
			if onError != nil {
				onError(err)
			}
			return
		}
		if onResult != nil {
			onResult(resp)
		}
	}()
}
