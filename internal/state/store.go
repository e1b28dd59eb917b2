package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/pulse/internal/dashboard"
	"github.com/five82/pulse/internal/status"
)

// Snapshot represents the latest data available to the renderer.
type Snapshot struct {
	Records   []dashboard.Record
	Status    status.Classification
	HasStatus bool
	Origin    string

	Connection string // disconnected, connecting, connected
	Connected  bool
	Polling    bool

	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // failed pulls since the last accepted snapshot
	Updates             uint64
	PromptPending       bool
}

// IsOffline returns true when the push channel is down and pulls keep failing.
func (s Snapshot) IsOffline() bool {
	return !s.Connected && s.ConsecutiveFailures >= 2
}

// Store coordinates concurrent access to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Apply replaces the records and status wholesale. prompt marks an
// interactive prompt that the renderer should show once.
func (s *Store) Apply(records []dashboard.Record, class status.Classification, origin string, prompt bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Records = dashboard.CloneRecords(records)
	s.snapshot.Status = class
	s.snapshot.HasStatus = true
	s.snapshot.Origin = origin
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures = 0
	s.snapshot.Updates++
	if prompt {
		s.snapshot.PromptPending = true
	}
}

// RecordFailure keeps the previous data but records err for visibility.
func (s *Store) RecordFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.LastError = err
	s.snapshot.ConsecutiveFailures++
}

// SetTransport records the connection state and whether polling is running.
func (s *Store) SetTransport(connection string, connected, polling bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Connection = connection
	s.snapshot.Connected = connected
	s.snapshot.Polling = polling
}

// TakePrompt reports whether a prompt is pending and clears it.
func (s *Store) TakePrompt() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := s.snapshot.PromptPending
	s.snapshot.PromptPending = false
	return pending
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Records = dashboard.CloneRecords(s.snapshot.Records)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}
