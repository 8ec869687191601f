package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mcp-fleet/gateway/internal/catalog"
	"github.com/mcp-fleet/gateway/internal/native"
	"github.com/mcp-fleet/gateway/internal/router"
	"github.com/mcp-fleet/gateway/pkg/mcpproto"
)

// ProtocolVersion is the MCP wire-protocol version this gateway speaks to
// clients.
const ProtocolVersion = "2024-11-05"

// GatewayName identifies this gateway in the initialize handshake; the
// version reported beside it is the one passed to NewPipeline.
const GatewayName = "mcp-gateway"

// Pipeline is the single request-processing path shared by the sync and
// push endpoints: parse, method-dispatch, build reply. Keeping it
// transport-agnostic lets both /mcp and /events/{id}/message run identical
// logic, mirroring the teacher's shared ProxyService/interceptor-chain
// design.
type Pipeline struct {
	cat        *catalog.Catalog
	native     *native.Registry
	dispatcher *router.Dispatcher
	logger     *slog.Logger
	version    string
}

// NewPipeline builds the shared request pipeline.
func NewPipeline(cat *catalog.Catalog, nativeTools *native.Registry, dispatcher *router.Dispatcher, logger *slog.Logger, version string) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if version == "" {
		version = "dev"
	}
	return &Pipeline{cat: cat, native: nativeTools, dispatcher: dispatcher, logger: logger, version: version}
}

// Handle parses raw JSON-RPC bytes, dispatches the recognized method, and
// returns the raw bytes of the reply envelope.
func (p *Pipeline) Handle(ctx context.Context, raw []byte) []byte {
	msg := mcpproto.Wrap(raw, mcpproto.ClientToServer)
	if msg.Decoded == nil {
		return p.errorResponse(nil, -32700, "Parse error")
	}

	req := msg.Request()
	if req == nil {
		return p.errorResponse(msg.RawID(), -32600, "Invalid Request")
	}

	id := msg.RawID()
	if msg.IsNotification() {
		// Notifications receive a plain acknowledgement; no response is
		// otherwise expected for a one-way message over HTTP.
		return p.resultResponse(nil, map[string]any{})
	}

	switch req.Method {
	case "initialize":
		return p.resultResponse(id, p.initializeResult())
	case "notifications/initialized":
		return p.resultResponse(id, map[string]any{})
	case "tools/list":
		return p.resultResponse(id, map[string]any{"tools": p.toolsList(ctx)})
	case "tools/call":
		return p.handleToolsCall(ctx, id, msg)
	default:
		return p.errorResponse(id, -32601, fmt.Sprintf("Method not found: %s", req.Method))
	}
}

func (p *Pipeline) initializeResult() map[string]any {
	return map[string]any{
		"protocolVersion": ProtocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{"listChanged": true},
		},
		"serverInfo": map[string]any{
			"name":    GatewayName,
			"version": p.version,
		},
	}
}

// toolsList merges native tool schemas with the (possibly freshly
// refreshed) catalog schemas.
func (p *Pipeline) toolsList(ctx context.Context) []catalog.ToolSchema {
	schemas := p.cat.List(ctx)
	if p.native == nil {
		return schemas
	}
	merged := make([]catalog.ToolSchema, 0, len(schemas)+len(p.native.Schemas()))
	merged = append(merged, p.native.Schemas()...)
	merged = append(merged, schemas...)
	return merged
}

type toolsCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

func (p *Pipeline) handleToolsCall(ctx context.Context, id json.RawMessage, msg *mcpproto.Message) []byte {
	req := msg.Request()
	var params toolsCallParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return p.errorResponse(id, -32602, "Invalid params")
		}
	}

	result := p.dispatcher.Dispatch(ctx, params.Name, params.Arguments)
	return p.resultResponse(id, result)
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (p *Pipeline) resultResponse(id json.RawMessage, result any) []byte {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return p.errorResponse(id, -32603, "Internal error")
	}
	resp := rpcResponse{JSONRPC: "2.0", ID: id, Result: resultJSON}
	raw, err := json.Marshal(resp)
	if err != nil {
		p.logger.Error("marshal response failed", "error", err)
		return []byte(`{"jsonrpc":"2.0","error":{"code":-32603,"message":"Internal error"}}`)
	}
	return raw
}

func (p *Pipeline) errorResponse(id json.RawMessage, code int, message string) []byte {
	resp := rpcResponse{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: message}}
	raw, err := json.Marshal(resp)
	if err != nil {
		return []byte(`{"jsonrpc":"2.0","error":{"code":-32603,"message":"Internal error"}}`)
	}
	return raw
}
