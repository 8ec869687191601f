// Package port declares the narrow interfaces that let the catalog and
// router depend on an upstream transport without knowing its concrete
// implementation, mirroring the teacher's port/outbound split.
package port

import (
	"context"
	"encoding/json"
	"time"
)

// Envelope is a decoded JSON-RPC response body: exactly one of Result or
// Error is set on a well-formed upstream reply.
type Envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *EnvelopeError  `json:"error,omitempty"`
}

// EnvelopeError is the JSON-RPC error object carried by an Envelope.
type EnvelopeError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// UpstreamClient performs exactly one JSON-RPC call or liveness probe
// against one upstream MCP server.
type UpstreamClient interface {
	// Call builds {jsonrpc:"2.0", id:1, method, params}, posts it to
	// upstream.URL, and returns the decoded Envelope. The returned error is
	// non-nil only for transport-level failures (Timeout, Transport,
	// BadStatus, ParseError, EmptyResponse); an upstream-side JSON-RPC error
	// comes back as a non-nil Envelope.Error with a nil error.
	Call(ctx context.Context, upstream UpstreamConfig, method string, params any, timeout time.Duration) (*Envelope, error)

	// Probe reports upstream liveness by GETing its root URL (the
	// configured URL with a trailing "/mcp" segment stripped). If AltURL is
	// set, one retry against it is permitted on failure.
	Probe(ctx context.Context, upstream UpstreamConfig) bool
}
