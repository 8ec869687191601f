// Package adminclient is a thin HTTP client for the gateway's own
// operator-facing admin surface (/refresh, /health), used by the
// CLI's "refresh" subcommand to talk to an already-running gateway
// process - the same shape as the teacher's SDK client, trimmed of
// policy-evaluation caching and approval polling, which have no
// counterpart here.
package adminclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Client talks to one running gateway's admin endpoints.
type Client struct {
	serverAddr string
	timeout    time.Duration
	httpClient *http.Client
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithServerAddr sets the gateway's base URL. If not set, defaults to the
// MCPGW_SERVER_ADDR environment variable.
func WithServerAddr(addr string) Option {
	return func(c *Client) { c.serverAddr = addr }
}

// WithTimeout sets the HTTP request timeout. Defaults to 5 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithHTTPClient overrides the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates an admin client. Reads MCPGW_SERVER_ADDR by default;
// options override.
func NewClient(opts ...Option) *Client {
	c := &Client{
		serverAddr: envOrDefault("MCPGW_SERVER_ADDR", "http://localhost:8080"),
		timeout:    parseDurationEnv("MCPGW_TIMEOUT", 5*time.Second),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c
}

// RefreshResult mirrors the JSON body the gateway's POST /refresh returns.
type RefreshResult struct {
	Status    string                  `json:"status"`
	ToolCount int                     `json:"toolCount"`
	Timestamp time.Time               `json:"timestamp"`
	Health    map[string]HealthRecord `json:"health"`
}

// HealthRecord mirrors catalog.HealthRecord without importing the catalog
// package, keeping this client usable as a standalone module boundary.
type HealthRecord struct {
	Status              string    `json:"status"`
	ToolCount           int       `json:"toolCount"`
	LastError           string    `json:"lastError,omitempty"`
	LastProbeAt         time.Time `json:"lastProbeAt"`
	ConsecutiveFailures int       `json:"consecutiveFailures"`
}

// HealthResult mirrors the JSON body the gateway's GET /health returns.
type HealthResult struct {
	LastRefresh time.Time               `json:"lastRefresh"`
	ToolCount   int                     `json:"toolCount"`
	Backends    map[string]HealthRecord `json:"backends"`
}

// Refresh forces an immediate catalog rebuild on the running gateway.
func (c *Client) Refresh(ctx context.Context) (*RefreshResult, error) {
	var result RefreshResult
	if err := c.doRequest(ctx, http.MethodPost, "/refresh", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Health fetches the running gateway's current health summary.
func (c *Client) Health(ctx context.Context) (*HealthResult, error) {
	var result HealthResult
	if err := c.doRequest(ctx, http.MethodGet, "/health", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, result any) error {
	url := strings.TrimRight(c.serverAddr, "/") + path

	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway unreachable at %s: %w", c.serverAddr, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(respBody))
	}
	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func parseDurationEnv(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return defaultVal
}
