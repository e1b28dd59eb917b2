// Package coordinator keeps the local snapshot fresh by combining the push
// channel with the polling fallback.
//
// A Coordinator owns one event loop. The push channel's lifecycle callbacks,
// poll results and manual refresh results are all turned into events on an
// internal channel and applied by the Run goroutine in the order they
// complete. No other goroutine touches the connection state.
//
// State machine:
//
//	             OnConnecting             OnOpen
//	Disconnected ───────────→ Connecting ───────→ Connected
//	     ↑                         │                  │
//	     └──── OnClose/OnError ────┴──────────────────┘
//
// Polling runs exactly while the state is not Connected: Run starts it,
// OnOpen stops it and OnClose/OnError start it again. Poller Stop only
// cancels future ticks, so a fetch already in flight when the channel
// reconnects is still applied once.
//
// When the channel also implements RequestUpdate (live.Socket does), OnOpen
// asks the server for the current snapshot straight away.
//
// Every successful response is accepted, whatever its origin or age. A slow
// poll that completes after a newer push message overwrites it. Update.Seq
// counts accepted updates but is never used to reject one.
//
// Authorization prompts go through a notify.Gate, so repeated need_auth
// responses within the cool-down produce a single prompt.
//
// Run must be called at most once per Coordinator.
package coordinator
