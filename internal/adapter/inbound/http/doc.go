// Package http provides the gateway's HTTP transport front-end: a
// synchronous JSON-RPC endpoint, a push (SSE) endpoint pair, and an
// operator-facing admin surface, all fed by one shared request Pipeline.
//
// # Usage
//
// Create and start the server:
//
//	srv := http.NewServer(addr, cat, nativeTools, dispatcher, sessions, metrics, version,
//	    http.WithLogger(logger),
//	)
//	err := srv.Start(ctx)
//
// # Endpoints
//
//	GET  /                          - gateway/backend summary
//	POST /mcp                       - synchronous JSON-RPC request/response
//	GET  /events                    - open an SSE push session
//	POST /events/{sessionId}/message - submit a JSON-RPC request on a push session
//	POST /refresh                   - force an immediate catalog rebuild
//	GET  /tools                     - current catalog grouped by backend
//	GET  /health                    - catalog freshness and per-backend health
//	GET  /metrics                   - Prometheus exposition
//
// # Middleware Chain
//
// Requests pass through RequestIDMiddleware (assigns/propagates a request
// ID, enriches the request-scoped logger) and MetricsMiddleware (records
// request_duration_seconds/requests_total, skipping /metrics and /health)
// before reaching the mux.
//
// # Push Sessions
//
// GET /events opens a long-lived SSE stream and announces its companion
// submission URL via an initial "endpoint" event. Messages POSTed to that
// URL run through the same Pipeline as /mcp; replies are delivered
// asynchronously as "message" SSE events rather than in the POST response
// body. A keepalive comment is sent on an idle interval to keep
// intermediaries from closing the connection.
package http
