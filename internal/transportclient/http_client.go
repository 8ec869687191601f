// Package transportclient implements the Upstream Client (C1): a one-shot
// JSON-RPC caller and liveness prober for a single upstream MCP server,
// built on a shared, pooled *http.Client the way the teacher's HTTP
// adapter is.
package transportclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mcp-fleet/gateway/internal/catalog"
	"github.com/mcp-fleet/gateway/internal/port"
)

// maxResponseBodySize bounds how much of an upstream's response body is
// read, guarding against a misbehaving or malicious upstream sending an
// unbounded response.
const maxResponseBodySize = 10 * 1024 * 1024 // 10MB

// Error kinds surfaced by Call, per the framing-agnostic taxonomy the
// router depends on to translate failures into tool-call errors.
var (
	ErrTimeout       = errors.New("upstream: timeout")
	ErrTransport     = errors.New("upstream: transport error")
	ErrParse         = errors.New("upstream: parse error")
	ErrEmptyResponse = errors.New("upstream: empty response")
)

// BadStatusError reports a non-2xx HTTP response from an upstream.
type BadStatusError struct {
	Code int
}

func (e *BadStatusError) Error() string {
	return fmt.Sprintf("upstream: bad status %d", e.Code)
}

// Client is the default port.UpstreamClient, sharing one pooled
// *http.Client across all upstream calls.
type Client struct {
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying *http.Client (tests use this to
// inject a client pointed at httptest servers).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client with a pooled transport and TLS 1.2 minimum, mirroring
// the connection-pool settings the corpus uses for its outbound HTTP
// adapters.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type wireRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// Call implements port.UpstreamClient.
func (c *Client) Call(ctx context.Context, upstream catalog.UpstreamConfig, method string, params any, timeout time.Duration) (*port.Envelope, error) {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(wireRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, upstream.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	for k, v := range upstream.ExtraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &BadStatusError{Code: resp.StatusCode}
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyResponse
	}

	env, err := Decode(raw, upstream.Framing)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return env, nil
}

// Probe implements port.UpstreamClient. It GETs the root URL derived by
// stripping a trailing "/mcp" path segment, retrying against AltURL once on
// failure if configured.
func (c *Client) Probe(ctx context.Context, upstream catalog.UpstreamConfig) bool {
	if c.probeOnce(ctx, rootURL(upstream.URL)) {
		return true
	}
	if upstream.AltURL != "" {
		return c.probeOnce(ctx, rootURL(upstream.AltURL))
	}
	return false
}

func (c *Client) probeOnce(ctx context.Context, url string) bool {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

// rootURL strips a trailing "/mcp" path segment from an upstream URL.
func rootURL(u string) string {
	return strings.TrimSuffix(strings.TrimRight(u, "/"), "/mcp")
}

var _ port.UpstreamClient = (*Client)(nil)
