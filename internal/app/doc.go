// Package app is the composition root for pulse.
//
// Run loads configuration, sets up logging and wires the sync core:
//
//	dashboard.Client ──> live.Socket   (push channel)
//	                 └─> poll.Poller   (fallback, 30s by default)
//	notify.Gate ─────────┐
//	state.Store <── coordinator.Coordinator ──> listeners
//	                     └─> metrics.Sync
//
// The coordinator, the optional metrics server and the TUI run under one
// errgroup. Quitting the TUI cancels the shared context, which stops the
// coordinator and shuts the metrics server down.
//
// In headless mode there is no TUI. A listener logs every accepted update
// and connection change in console format instead, which is handy when
// running pulse under a supervisor or while debugging the server.
//
// Transport failures never end Run. Only configuration, logging setup and
// metrics listener errors are returned.
package app
