package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mcp-fleet/gateway/internal/catalog"
	"github.com/mcp-fleet/gateway/internal/native"
	"github.com/mcp-fleet/gateway/internal/router"
	"github.com/mcp-fleet/gateway/internal/session"
)

func newTestServer(t *testing.T, client *fakeUpstreamClient, upstreams []catalog.UpstreamConfig) *Server {
	t.Helper()
	cat := catalog.New(upstreams, client, time.Hour, nil)
	if err := cat.Refresh(t.Context()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	nativeTools := native.NewRegistry(cat, client, "", nil)
	dispatcher := router.New(cat, client, nativeTools, nil)
	sessions := session.NewRegistry(0)
	metrics := NewMetrics(prometheus.NewRegistry())
	return NewServer("127.0.0.1:0", cat, nativeTools, dispatcher, sessions, metrics, "test")
}

func postMCP(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.mcpHandler(rec, req)
	return rec
}

func TestMCPHandler_Initialize(t *testing.T) {
	srv := newTestServer(t, newFakeUpstreamClient(), nil)
	rec := postMCP(t, srv, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	result, ok := resp["result"].(map[string]any)
	if !ok {
		t.Fatalf("expected result object, got %v", resp)
	}
	if result["protocolVersion"] != ProtocolVersion {
		t.Errorf("protocolVersion = %v, want %v", result["protocolVersion"], ProtocolVersion)
	}
}

func TestMCPHandler_NotificationsInitialized(t *testing.T) {
	srv := newTestServer(t, newFakeUpstreamClient(), nil)
	rec := postMCP(t, srv, `{"jsonrpc":"2.0","method":"notifications/initialized"}`)

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, hasID := resp["id"]; hasID {
		t.Error("notification ack should not carry an id")
	}
	if _, ok := resp["result"]; !ok {
		t.Error("expected result field in notification ack")
	}
}

func TestMCPHandler_UnknownMethod(t *testing.T) {
	srv := newTestServer(t, newFakeUpstreamClient(), nil)
	rec := postMCP(t, srv, `{"jsonrpc":"2.0","id":2,"method":"bogus/method"}`)

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	errObj, ok := resp["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error object, got %v", resp)
	}
	if int(errObj["code"].(float64)) != -32601 {
		t.Errorf("error code = %v, want -32601", errObj["code"])
	}
}

func TestMCPHandler_ParseError(t *testing.T) {
	srv := newTestServer(t, newFakeUpstreamClient(), nil)
	rec := postMCP(t, srv, `not json`)

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	errObj, ok := resp["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error object, got %v", resp)
	}
	if int(errObj["code"].(float64)) != -32700 {
		t.Errorf("error code = %v, want -32700", errObj["code"])
	}
}

func TestMCPHandler_ToolsListAndCall(t *testing.T) {
	client := newFakeUpstreamClient()
	client.listResults["demo"] = json.RawMessage(`{"tools":[{"name":"echo","description":"echoes input"}]}`)

	upstreams := []catalog.UpstreamConfig{
		{Name: "demo", URL: "http://demo.local/mcp", Prefix: "demo", Enabled: true, Framing: catalog.FramingJSON},
	}
	srv := newTestServer(t, client, upstreams)

	rec := postMCP(t, srv, `{"jsonrpc":"2.0","id":3,"method":"tools/list"}`)
	var listResp struct {
		Result struct {
			Tools []catalog.ToolSchema `json:"tools"`
		} `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	found := false
	for _, tool := range listResp.Result.Tools {
		if tool.Name == "demo_echo" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected demo_echo in tools/list, got %+v", listResp.Result.Tools)
	}

	callBody := `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"demo_echo","arguments":{"x":1}}}`
	rec = postMCP(t, srv, callBody)
	var callResp struct {
		Result struct {
			Content []map[string]any `json:"content"`
			IsError bool             `json:"isError"`
		} `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &callResp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if callResp.Result.IsError {
		t.Errorf("expected successful call, got error result: %+v", callResp.Result)
	}
}

func TestMCPHandler_UnknownTool(t *testing.T) {
	srv := newTestServer(t, newFakeUpstreamClient(), nil)
	rec := postMCP(t, srv, `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"ghost_tool","arguments":{}}}`)

	var resp struct {
		Result struct {
			IsError bool `json:"isError"`
		} `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.Result.IsError {
		t.Error("expected isError=true for unknown tool")
	}
}
