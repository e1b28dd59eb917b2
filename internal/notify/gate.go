// Package notify rate-limits interruptive prompts shown to the user.
package notify

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Kind identifies a family of prompts that share a cool-down.
type Kind string

// KindAuth is the "please authorize" prompt.
const KindAuth Kind = "auth"

// DefaultCooldown is how long a prompt kind stays suppressed after it is shown.
const DefaultCooldown = 5 * time.Minute

// Gate decides whether a prompt may be shown now. The first request for a
// kind is allowed; later requests are refused until the cool-down elapses,
// at which point the next request is allowed and the cool-down restarts.
type Gate struct {
	mu       sync.Mutex
	cooldown time.Duration
	now      func() time.Time
	limiters map[Kind]*rate.Limiter
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGate returns a Gate with the given cool-down. Non-positive values use DefaultCooldown.
func NewGate(cooldown time.Duration, opts ...Option) *Gate {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	g := &Gate{
		cooldown: cooldown,
		now:      time.Now,
		limiters: make(map[Kind]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ShouldShow reports whether a prompt of kind may be shown, recording the
// attempt when it is.
func (g *Gate) ShouldShow(kind Kind) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	lim, ok := g.limiters[kind]
	if !ok {
		lim = rate.NewLimiter(rate.Every(g.cooldown), 1)
		g.limiters[kind] = lim
	}
	return lim.AllowN(g.now(), 1)
}

// Reset forgets kind so its next prompt is allowed immediately.
func (g *Gate) Reset(kind Kind) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.limiters, kind)
}

// Cooldown returns the configured suppression window.
func (g *Gate) Cooldown() time.Duration {
	return g.cooldown
}
