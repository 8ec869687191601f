package mcpproto

import (
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
)

// EncodeMessage serializes a JSON-RPC message to wire format, delegating to
// the SDK's jsonrpc package.
func EncodeMessage(msg jsonrpc.Message) ([]byte, error) {
	return jsonrpc.EncodeMessage(msg)
}

// DecodeMessage deserializes wire-format bytes into a *jsonrpc.Request or
// *jsonrpc.Response, delegating to the SDK's jsonrpc package.
func DecodeMessage(data []byte) (jsonrpc.Message, error) {
	return jsonrpc.DecodeMessage(data)
}

// Wrap decodes raw JSON-RPC bytes and wraps them in a Message. If decoding
// fails, the raw bytes are still carried so a caller can report a parse
// error without losing the original payload.
func Wrap(raw []byte, dir Direction) *Message {
	decoded, err := jsonrpc.DecodeMessage(raw)
	if err != nil {
		decoded = nil
	}
	return &Message{
		Raw:       raw,
		Direction: dir,
		Decoded:   decoded,
		Timestamp: time.Now(),
	}
}
