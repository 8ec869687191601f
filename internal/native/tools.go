// Package native implements the gateway's locally-handled tools: a small
// table of names served without upstream dispatch, illustrating the
// "degrade gracefully when an upstream is missing" pattern.
package native

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcp-fleet/gateway/internal/catalog"
	"github.com/mcp-fleet/gateway/internal/port"
	"github.com/mcp-fleet/gateway/pkg/mcpproto"
)

const (
	toolGatewayStatus = "gateway_status"
	toolHivemindWrite = "hivemind_write"
	toolHivemindRead  = "hivemind_read"
)

// RefreshHistory is the narrow slice of A4's metrics store gateway_status
// needs, kept as an interface so native has no dependency on how or
// whether refresh history is persisted.
type RefreshHistory interface {
	RecentRefreshes(ctx context.Context, limit int) ([]HistoryEvent, error)
}

// HistoryEvent is one recorded refresh outcome, shaped for gateway_status's
// optional history field.
type HistoryEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Upstream  string    `json:"upstream"`
	Status    string    `json:"status"`
	ToolCount int       `json:"tool_count"`
	LatencyMS int64     `json:"latency_ms"`
}

// Registry serves the native tools. Its memoryTool field names the catalog
// entry (a prefixed tool name) that backs hivemind_write/hivemind_read, when
// configured. If empty or absent from
// the catalog, both tools degrade to a tool-level error rather than
// crashing the gateway.
type Registry struct {
	cat         *catalog.Catalog
	client      port.UpstreamClient
	memoryTool  string
	callTimeout time.Duration
	logger      *slog.Logger
	schemas     []catalog.ToolSchema
	history     RefreshHistory
}

// NewRegistry builds the native tool table. memoryTool is the prefixedName
// of the catalog entry that implements shared-memory storage (e.g. a SQL
// execution tool on some upstream); leave empty to disable hivemind_*.
func NewRegistry(cat *catalog.Catalog, client port.UpstreamClient, memoryTool string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{cat: cat, client: client, memoryTool: memoryTool, callTimeout: 30 * time.Second, logger: logger}
	r.schemas = []catalog.ToolSchema{
		{
			Name:        toolGatewayStatus,
			Description: "Report gateway and upstream health as a JSON document.",
			InputSchema: rawSchema(map[string]any{"type": "object", "properties": map[string]any{}}),
		},
		{
			Name:        toolHivemindWrite,
			Description: "Persist an entry to the shared-memory store.",
			InputSchema: rawSchema(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"source":     map[string]any{"type": "string"},
					"category":   map[string]any{"type": "string"},
					"workstream": map[string]any{"type": "string"},
					"summary":    map[string]any{"type": "string"},
					"details":    map[string]any{"type": "string"},
					"priority":   map[string]any{"type": "string"},
					"tags":       map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
				"required": []string{"source", "category", "summary"},
			}),
		},
		{
			Name:        toolHivemindRead,
			Description: "Read entries from the shared-memory store.",
			InputSchema: rawSchema(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"limit":      map[string]any{"type": "integer"},
					"category":   map[string]any{"type": "string"},
					"source":     map[string]any{"type": "string"},
					"workstream": map[string]any{"type": "string"},
				},
			}),
		},
	}
	return r
}

// SetHistory attaches an optional refresh-history source for
// gateway_status's "history" field. Safe to call with nil to disable
// (the default).
func (r *Registry) SetHistory(h RefreshHistory) {
	r.history = h
}

func rawSchema(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

// Schemas returns the native tool schemas, advertised alongside upstream
// tools in tools/list.
func (r *Registry) Schemas() []catalog.ToolSchema {
	return r.schemas
}

// Has reports whether name is a native tool. Native names MUST NOT collide
// with any prefixedName the catalog produces; if they ever do, the native
// handler wins.
func (r *Registry) Has(name string) bool {
	switch name {
	case toolGatewayStatus, toolHivemindWrite, toolHivemindRead:
		return true
	default:
		return false
	}
}

// Call dispatches a native tool call. The caller must have checked Has
// first; an unrecognized name returns an error-shaped result rather than a
// Go error, matching the tool-call-error stratum the rest of the gateway
// uses.
func (r *Registry) Call(ctx context.Context, name string, arguments map[string]any) mcpproto.ToolCallResult {
	switch name {
	case toolGatewayStatus:
		return r.gatewayStatus(ctx)
	case toolHivemindWrite:
		return r.hivemindWrite(ctx, arguments)
	case toolHivemindRead:
		return r.hivemindRead(ctx, arguments)
	default:
		return mcpproto.ErrorResult(fmt.Sprintf("Error: Unknown tool '%s'", name))
	}
}

func (r *Registry) gatewayStatus(ctx context.Context) mcpproto.ToolCallResult {
	report := r.cat.HealthReport()

	payload := struct {
		catalog.Snapshot
		History []HistoryEvent `json:"history,omitempty"`
	}{Snapshot: report}

	if r.history != nil {
		if events, err := r.history.RecentRefreshes(ctx, 20); err != nil {
			r.logger.Warn("gateway_status: failed to read refresh history", "error", err)
		} else {
			payload.History = events
		}
	}

	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return mcpproto.ErrorResult(fmt.Sprintf("Error calling tool: %v", err))
	}
	return mcpproto.TextResult(string(body))
}

// hivemindWrite and hivemindRead both re-enter the catalog to resolve the
// configured shared-memory upstream tool, then forward a shaped arguments
// object to it. String values are passed through as opaque data in the
// arguments map - the gateway never concatenates them into a query string
// itself; composition of any backing query is the upstream tool's job.
func (r *Registry) hivemindWrite(ctx context.Context, arguments map[string]any) mcpproto.ToolCallResult {
	entry, ok := r.resolveMemoryTool()
	if !ok {
		return mcpproto.ErrorResult("Error: shared-memory store is not configured or unavailable")
	}

	forwarded := map[string]any{
		"operation": "write",
		"entry":     arguments,
	}
	return r.forward(ctx, entry, forwarded)
}

func (r *Registry) hivemindRead(ctx context.Context, arguments map[string]any) mcpproto.ToolCallResult {
	entry, ok := r.resolveMemoryTool()
	if !ok {
		return mcpproto.ErrorResult("Error: shared-memory store is not configured or unavailable")
	}

	forwarded := map[string]any{
		"operation": "read",
		"query":     arguments,
	}
	return r.forward(ctx, entry, forwarded)
}

func (r *Registry) resolveMemoryTool() (catalog.CatalogEntry, bool) {
	if r.memoryTool == "" {
		return catalog.CatalogEntry{}, false
	}
	return r.cat.Lookup(r.memoryTool)
}

func (r *Registry) forward(ctx context.Context, entry catalog.CatalogEntry, arguments map[string]any) mcpproto.ToolCallResult {
	timeout := entry.Upstream.RequestTimeout
	if timeout <= 0 {
		timeout = r.callTimeout
	}
	params := map[string]any{"name": entry.OriginalName, "arguments": arguments}
	env, err := r.client.Call(ctx, entry.Upstream, "tools/call", params, timeout)
	if err != nil {
		return mcpproto.ErrorResult(fmt.Sprintf("Error calling tool: %v", err))
	}
	if env.Error != nil {
		return mcpproto.ErrorResult(fmt.Sprintf("Backend error: %s", env.Error.Message))
	}
	if len(env.Result) == 0 {
		return mcpproto.ErrorResult("No response from backend")
	}
	var result mcpproto.ToolCallResult
	if err := json.Unmarshal(env.Result, &result); err != nil {
		return mcpproto.TextResult(string(env.Result))
	}
	return result
}
