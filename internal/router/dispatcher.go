// Package router implements the Router/Dispatcher (C3): resolving a
// prefixed tool name to an upstream, forwarding the call via the Upstream
// Client, and translating the response into a uniform tool-call envelope.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mcp-fleet/gateway/internal/catalog"
	"github.com/mcp-fleet/gateway/internal/port"
	"github.com/mcp-fleet/gateway/pkg/mcpproto"
)

var tracer = otel.Tracer("mcp-gateway/router")

// DefaultCallTimeout is used when a matched entry's upstream has no
// configured RequestTimeout.
const DefaultCallTimeout = 60 * time.Second

// NativeTools is the subset of native.Registry the dispatcher needs. Kept
// as an interface here to avoid a router<->native import cycle.
type NativeTools interface {
	Has(name string) bool
	Call(ctx context.Context, name string, arguments map[string]any) mcpproto.ToolCallResult
}

// Dispatcher resolves a prefixed tool name and forwards the call.
type Dispatcher struct {
	cat     *catalog.Catalog
	client  port.UpstreamClient
	native  NativeTools
	logger  *slog.Logger
	history CallRecorder
}

// CallOutcome is one dispatched tool call's recorded outcome, kept
// transport-agnostic so A4's metrics store can be attached without the
// router depending on it directly.
type CallOutcome struct {
	PrefixedName string
	Upstream     string
	Outcome      string
	LatencyMS    int64
}

// CallRecorder is the narrow interface A4's metrics store satisfies.
type CallRecorder interface {
	RecordCall(CallOutcome)
}

// New creates a Dispatcher.
func New(cat *catalog.Catalog, client port.UpstreamClient, native NativeTools, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{cat: cat, client: client, native: native, logger: logger}
}

// SetHistoryRecorder attaches an optional call-outcome sink. Safe to call
// with nil to disable (the default).
func (d *Dispatcher) SetHistoryRecorder(r CallRecorder) {
	d.history = r
}

// Dispatch routes a tools/call by prefixed name. Unknown tools, upstream
// errors, and transport failures are all reported as tool-level errors
// (isError:true) rather than Go errors or JSON-RPC errors - the caller
// asked a well-formed question even when the answer is a failure.
func (d *Dispatcher) Dispatch(ctx context.Context, prefixedName string, arguments map[string]any) mcpproto.ToolCallResult {
	ctx, span := tracer.Start(ctx, "router.dispatch", trace.WithAttributes(
		attribute.String("tool", prefixedName),
	))
	defer span.End()

	if d.native != nil && d.native.Has(prefixedName) {
		span.SetAttributes(attribute.Bool("native", true))
		return d.native.Call(ctx, prefixedName, arguments)
	}

	entry, ok := d.cat.Lookup(prefixedName)
	if !ok {
		span.SetStatus(codes.Error, "unknown tool")
		return mcpproto.ErrorResult(fmt.Sprintf("Error: Unknown tool '%s'", prefixedName))
	}
	span.SetAttributes(attribute.String("upstream", entry.Upstream.Name))

	timeout := entry.Upstream.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}

	params := map[string]any{"name": entry.OriginalName, "arguments": arguments}
	start := time.Now()
	env, err := d.client.Call(ctx, entry.Upstream, "tools/call", params, timeout)
	latency := time.Since(start)

	if err != nil {
		d.logger.Warn("upstream call failed", "tool", prefixedName, "upstream", entry.Upstream.Name, "error", err)
		d.recordHistory(prefixedName, entry.Upstream.Name, "transport_error", latency)
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport error")
		return mcpproto.ErrorResult(fmt.Sprintf("Error calling tool: %v", err))
	}

	if env.Error != nil {
		d.recordHistory(prefixedName, entry.Upstream.Name, "backend_error", latency)
		span.SetStatus(codes.Error, env.Error.Message)
		return mcpproto.ErrorResult(fmt.Sprintf("Backend error: %s", env.Error.Message))
	}

	if len(env.Result) == 0 {
		d.recordHistory(prefixedName, entry.Upstream.Name, "empty_response", latency)
		span.SetStatus(codes.Error, "empty response")
		return mcpproto.ErrorResult("No response from backend")
	}

	d.recordHistory(prefixedName, entry.Upstream.Name, "ok", latency)
	var result mcpproto.ToolCallResult
	if err := json.Unmarshal(env.Result, &result); err != nil {
		// Upstream returned a result shape we don't recognize as a
		// ToolCallResult - surface it verbatim as a single text block
		// rather than dropping it.
		return mcpproto.TextResult(string(env.Result))
	}
	return result
}

// recordHistory forwards one dispatched call's outcome to the optional
// history sink. A no-op when no sink is attached.
func (d *Dispatcher) recordHistory(prefixedName, upstream, outcome string, latency time.Duration) {
	if d.history == nil {
		return
	}
	d.history.RecordCall(CallOutcome{
		PrefixedName: prefixedName,
		Upstream:     upstream,
		Outcome:      outcome,
		LatencyMS:    latency.Milliseconds(),
	})
}
