// Package live implements the push side of the dashboard: a websocket
// subscription that delivers data_update events as they happen.
//
// # Protocol
//
// Frames are JSON envelopes:
//
//	{"event": "data_update", "data": {"status": "success", "message": "...", "videos": [...]}}
//
// data_update carries the same payload as GET /api/data. The client may send
// {"event": "request_update"} to ask the server for an immediate push. Other
// events are ignored.
//
// # Connection Lifecycle
//
// Socket.Run owns the connection for its whole life:
//
//	OnConnecting -> dial (bounded by the handshake timeout)
//	  ├─ failure  -> OnError(err) -> wait backoff -> dial again
//	  └─ success  -> OnOpen -> read frames (OnMessage per data_update)
//	                  ├─ close frame (normal/going away) -> OnClose
//	                  └─ any other read error            -> OnError(err)
//
// Reconnect delays come from an exponential backoff (1s doubling to 30s) that
// resets after each successful handshake. A ping is written every 30s and a
// connection that stays silent for 90s is treated as dropped.
//
// Malformed frames are logged and skipped without tearing the connection down.
// Once ctx is cancelled Run sends a close frame and returns without calling
// the handler again.
package live
