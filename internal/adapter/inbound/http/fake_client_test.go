package http

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mcp-fleet/gateway/internal/catalog"
	"github.com/mcp-fleet/gateway/internal/port"
)

// fakeUpstreamClient is a scripted stand-in for a real transport, keyed by
// upstream name, used across this package's tests.
type fakeUpstreamClient struct {
	listResults map[string]json.RawMessage
	callResults map[string]*port.Envelope
	probeOK     map[string]bool
}

func newFakeUpstreamClient() *fakeUpstreamClient {
	return &fakeUpstreamClient{
		listResults: make(map[string]json.RawMessage),
		callResults: make(map[string]*port.Envelope),
		probeOK:     make(map[string]bool),
	}
}

func (f *fakeUpstreamClient) Call(_ context.Context, upstream catalog.UpstreamConfig, method string, _ any, _ time.Duration) (*port.Envelope, error) {
	if method == "tools/list" {
		raw, ok := f.listResults[upstream.Name]
		if !ok {
			raw = json.RawMessage(`{"tools":[]}`)
		}
		return &port.Envelope{JSONRPC: "2.0", Result: raw}, nil
	}
	if env, ok := f.callResults[upstream.Name]; ok {
		return env, nil
	}
	return &port.Envelope{JSONRPC: "2.0", Result: json.RawMessage(`{"content":[{"type":"text","text":"ok"}]}`)}, nil
}

func (f *fakeUpstreamClient) Probe(_ context.Context, upstream catalog.UpstreamConfig) bool {
	ok, present := f.probeOK[upstream.Name]
	if !present {
		return true
	}
	return ok
}
