// Package catalog maintains the merged tool directory aggregated from all
// configured upstreams, plus per-upstream health tracking.
package catalog

import (
	"encoding/json"
	"time"

	"github.com/mcp-fleet/gateway/internal/port"
)

// UpstreamConfig is an alias of the port-level upstream definition so
// callers that only deal in catalog types never need to import port
// directly just to describe an upstream.
type UpstreamConfig = port.UpstreamConfig

// Framing selects how an upstream's HTTP response body is parsed.
type Framing = port.Framing

const (
	FramingJSON = port.FramingJSON
	FramingSSE  = port.FramingSSE
)

// ToolSchema is opaque to the gateway beyond these three fields; InputSchema
// is carried through verbatim and never introspected semantically.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// CatalogEntry is one routable, prefixed tool.
type CatalogEntry struct {
	PrefixedName string
	OriginalName string
	Upstream     UpstreamConfig
	Schema       ToolSchema
}

// HealthStatus is one upstream's last-known probe/list outcome.
type HealthStatus string

const (
	HealthUnknown   HealthStatus = "unknown"
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
	HealthTimeout   HealthStatus = "timeout"
	HealthError     HealthStatus = "error"
)

// HealthRecord is the mutable per-upstream health snapshot.
type HealthRecord struct {
	Status              HealthStatus `json:"status"`
	ToolCount           int          `json:"toolCount"`
	LastError           string       `json:"lastError,omitempty"`
	LastProbeAt         time.Time    `json:"lastProbeAt"`
	ConsecutiveFailures int          `json:"consecutiveFailures"`

	// ShadowedNames lists prefixed tool names this upstream published in
	// its last refresh that lost a namespace conflict to an
	// earlier-priority (or earlier-inserted) upstream and were dropped
	// from the catalog.
	ShadowedNames []string `json:"shadowedNames,omitempty"`
}

// RefreshRecord is one row of A4's refresh history, surfaced optionally
// through /health and gateway_status.
type RefreshRecord struct {
	Timestamp time.Time
	Upstream  string
	Status    HealthStatus
	ToolCount int
	LatencyMS int64
}

// Snapshot is the read-only view HealthReport() hands to callers.
type Snapshot struct {
	Entries      map[string]CatalogEntry
	Health       map[string]HealthRecord
	LastRefresh  time.Time
	ToolCount    int
}
