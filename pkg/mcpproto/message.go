// Package mcpproto provides the gateway's JSON-RPC envelope types and the
// MCP-level tool-call result envelope, wrapping the upstream SDK's jsonrpc
// package the way the rest of this corpus does.
package mcpproto

import (
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
)

// Direction indicates which way a message is flowing through the gateway.
type Direction int

const (
	// ClientToServer is a message received from an MCP client.
	ClientToServer Direction = iota
	// ServerToClient is a message destined for an MCP client.
	ServerToClient
)

func (d Direction) String() string {
	switch d {
	case ClientToServer:
		return "client->server"
	case ServerToClient:
		return "server->client"
	default:
		return "unknown"
	}
}

// Message wraps a decoded JSON-RPC message with gateway metadata. It keeps
// both the raw bytes (for passthrough and response filtering) and the
// decoded message (for method dispatch).
type Message struct {
	Raw       []byte
	Direction Direction
	Decoded   jsonrpc.Message
	Timestamp time.Time

	// parsedParams caches the unmarshaled params object of a request.
	parsedParams map[string]any
}

// IsRequest reports whether the message is a JSON-RPC request.
func (m *Message) IsRequest() bool {
	if m.Decoded == nil {
		return false
	}
	_, ok := m.Decoded.(*jsonrpc.Request)
	return ok
}

// Method returns the method name if this is a request, "" otherwise.
func (m *Message) Method() string {
	req, ok := m.Decoded.(*jsonrpc.Request)
	if !ok {
		return ""
	}
	return req.Method
}

// IsNotification reports whether the message is a request with no id.
func (m *Message) IsNotification() bool {
	req, ok := m.Decoded.(*jsonrpc.Request)
	if !ok {
		return false
	}
	return !req.IsCall()
}

// Request returns the underlying request, or nil if this is not one.
func (m *Message) Request() *jsonrpc.Request {
	req, _ := m.Decoded.(*jsonrpc.Request)
	return req
}

// ParseParams unmarshals and caches the request's params object.
func (m *Message) ParseParams() map[string]any {
	if m.parsedParams != nil {
		return m.parsedParams
	}
	req := m.Request()
	if req == nil || req.Params == nil {
		return nil
	}
	var params map[string]any
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return nil
	}
	m.parsedParams = params
	return params
}

// RawID extracts the "id" field directly from the raw bytes. The SDK's
// jsonrpc.ID type does not round-trip cleanly through interface{}, so
// building response envelopes works from the raw field instead.
func (m *Message) RawID() json.RawMessage {
	if m.Raw == nil {
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(m.Raw, &raw); err != nil {
		return nil
	}
	return raw["id"]
}

// ToolCallResult is the MCP-level result envelope returned by tools/call,
// distinct from the JSON-RPC envelope that carries it.
type ToolCallResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// ContentBlock is a single block of a ToolCallResult.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// TextResult builds a single-block successful tool-call result.
func TextResult(text string) ToolCallResult {
	return ToolCallResult{Content: []ContentBlock{{Type: "text", Text: text}}}
}

// ErrorResult builds a single-block error tool-call result.
func ErrorResult(text string) ToolCallResult {
	return ToolCallResult{Content: []ContentBlock{{Type: "text", Text: text}}, IsError: true}
}
