// Package dashboard provides an HTTP client for the analytics dashboard API.
//
// # Overview
//
// The dashboard server computes analytics records and exposes them over a
// small read-only JSON API. This package is the pull side of that API plus
// the shared payload types the push channel reuses.
//
// # API Endpoints
//
//   - GET /api/data: current snapshot (status, message, success, videos)
//   - GET /api/refresh: same shape, after asking the server to recompute
//   - GET /api/auth_status: which backend is configured and whether it is authorized
//   - /auth: browser page that starts authorization (URL only, never fetched)
//
// # Records
//
// Record is an open map. The synchronization core never looks inside it;
// Text and Number exist so the renderer can pull display values out of the
// documented fields (views, completion_rate, ...) without a fixed schema.
//
// # Request Handling
//
// All requests:
//   - Use context for cancellation
//   - Set Accept: application/json and User-Agent: pulse/0.1
//   - Carry an X-Pulse-Session header with a per-process UUID
//   - Time out after 10 seconds
//
// HTTP status codes >= 400 and undecodable bodies are both returned as
// errors; callers treat them the same way (a failed fetch).
package dashboard
