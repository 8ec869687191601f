package transportclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mcp-fleet/gateway/internal/port"
)

func TestClient_Call_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"tools":[]}}`))
	}))
	defer srv.Close()

	c := New(WithHTTPClient(srv.Client()))
	upstream := port.UpstreamConfig{Name: "demo", URL: srv.URL, Framing: port.FramingJSON}

	env, err := c.Call(context.Background(), upstream, "tools/list", map[string]any{}, 5*time.Second)
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if env.JSONRPC != "2.0" {
		t.Errorf("JSONRPC = %q, want %q", env.JSONRPC, "2.0")
	}
}

func TestClient_Call_BadStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(WithHTTPClient(srv.Client()))
	upstream := port.UpstreamConfig{Name: "demo", URL: srv.URL, Framing: port.FramingJSON}

	_, err := c.Call(context.Background(), upstream, "tools/list", map[string]any{}, 5*time.Second)
	if err == nil {
		t.Fatal("Call() expected an error on a 500 response")
	}
	if _, ok := err.(*BadStatusError); !ok {
		t.Errorf("expected a *BadStatusError, got %v", err)
	}
}

func TestClient_Call_EmptyResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(WithHTTPClient(srv.Client()))
	upstream := port.UpstreamConfig{Name: "demo", URL: srv.URL, Framing: port.FramingJSON}

	_, err := c.Call(context.Background(), upstream, "tools/list", map[string]any{}, 5*time.Second)
	if err != ErrEmptyResponse {
		t.Errorf("Call() error = %v, want %v", err, ErrEmptyResponse)
	}
}

func TestClient_Call_ExtraHeadersForwarded(t *testing.T) {
	t.Parallel()

	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Api-Key")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","result":{}}`))
	}))
	defer srv.Close()

	c := New(WithHTTPClient(srv.Client()))
	upstream := port.UpstreamConfig{
		Name: "demo", URL: srv.URL, Framing: port.FramingJSON,
		ExtraHeaders: map[string]string{"X-Api-Key": "secret"},
	}

	if _, err := c.Call(context.Background(), upstream, "tools/list", map[string]any{}, 5*time.Second); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if gotHeader != "secret" {
		t.Errorf("X-Api-Key header = %q, want %q", gotHeader, "secret")
	}
}

func TestClient_Probe_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(WithHTTPClient(srv.Client()))
	upstream := port.UpstreamConfig{Name: "demo", URL: srv.URL + "/mcp"}

	if !c.Probe(context.Background(), upstream) {
		t.Error("Probe() = false, want true")
	}
}

func TestClient_Probe_FallsBackToAltURL(t *testing.T) {
	t.Parallel()

	altSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer altSrv.Close()

	c := New(WithHTTPClient(altSrv.Client()))
	upstream := port.UpstreamConfig{
		Name:   "demo",
		URL:    "http://127.0.0.1:1/mcp",
		AltURL: altSrv.URL,
	}

	if !c.Probe(context.Background(), upstream) {
		t.Error("Probe() = false, want true via AltURL fallback")
	}
}

func TestClient_Probe_BothFail(t *testing.T) {
	t.Parallel()

	c := New()
	upstream := port.UpstreamConfig{Name: "demo", URL: "http://127.0.0.1:1/mcp"}

	if c.Probe(context.Background(), upstream) {
		t.Error("Probe() = true, want false when unreachable")
	}
}
