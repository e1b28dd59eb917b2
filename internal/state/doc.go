// Package state provides thread-safe state management for the Pulse client.
//
// # Overview
//
// The Store is where coordinator output meets UI rendering. The sync
// coordinator writes every accepted snapshot and every transport change;
// the UI refresh loop reads copies on each tick.
//
//	Producer (Coordinator):          Consumer (UI):
//	┌──────────────────────┐        ┌──────────────────┐
//	│ store.Apply()        │        │                  │
//	│ store.SetTransport() │───────→│ store.Snapshot() │
//	│ store.RecordFailure()│ (mutex)│ store.TakePrompt()│
//	└──────────────────────┘        └──────────────────┘
//
// # Core Types
//
// Store:
//   - Guards the latest Snapshot with a sync.RWMutex
//   - Single writer (coordinator loop), many readers
//
// Snapshot:
//   - Records, classification and origin of the last accepted update
//   - Connection state and whether the polling fallback is running
//   - Last error and the count of consecutive failures since the last update
//
// # Replacement Semantics
//
// Apply replaces records and status wholesale. An empty update clears the
// records. Failures never touch the data; they only bump the failure
// counter and record the error.
//
// # Prompts
//
// Apply may mark a prompt as pending. TakePrompt returns true exactly once
// per pending prompt, so a renderer polling the store shows each prompt one
// time.
//
// # Copy Semantics
//
// Snapshot deep-copies records so callers may mutate what they get back.
// Errors are wrapped into a new value that still unwraps to the original.
//
// # Offline Detection
//
// IsOffline reports true when the push channel is down and at least two
// pulls in a row have failed.
package state
