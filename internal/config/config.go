// Package config loads and validates the gateway's static configuration:
// server/catalog/push settings plus the upstream table.
package config

import (
	"time"

	"github.com/mcp-fleet/gateway/internal/catalog"
)

// ServerConfig controls the HTTP front-end.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" mapstructure:"http_addr" validate:"required,hostname_port"`
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// CatalogConfig controls refresh cadence and names the memory tool.
// DefaultCallTimeout and DefaultListTimeout are filled in by SetDefaults,
// but nothing reads them: the catalog and router apply their own built-in
// timeouts.
type CatalogConfig struct {
	RefreshTTL         time.Duration `yaml:"refresh_ttl" mapstructure:"refresh_ttl"`
	DefaultCallTimeout time.Duration `yaml:"default_call_timeout" mapstructure:"default_call_timeout"`
	DefaultListTimeout time.Duration `yaml:"default_list_timeout" mapstructure:"default_list_timeout"`
	// MemoryTool is the prefixedName backing hivemind_write/hivemind_read.
	// Empty disables both native tools gracefully.
	MemoryTool string `yaml:"memory_tool" mapstructure:"memory_tool"`
}

// PushConfig controls the push-session transport.
type PushConfig struct {
	QueueSize          int           `yaml:"queue_size" mapstructure:"queue_size" validate:"omitempty,min=1"`
	IdleKeepalive      time.Duration `yaml:"idle_keepalive" mapstructure:"idle_keepalive"`
	SessionIdleTimeout time.Duration `yaml:"session_idle_timeout" mapstructure:"session_idle_timeout"`
}

// MetricsStoreConfig controls the optional A4 embedded SQLite history
// store.
type MetricsStoreConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// GatewayConfig is the root configuration object, loaded once at startup.
type GatewayConfig struct {
	Server    ServerConfig             `yaml:"server" mapstructure:"server" validate:"required"`
	Catalog   CatalogConfig            `yaml:"catalog" mapstructure:"catalog"`
	Push      PushConfig               `yaml:"push" mapstructure:"push"`
	Metrics   MetricsStoreConfig       `yaml:"metrics_store" mapstructure:"metrics_store"`
	Upstreams []catalog.UpstreamConfig `yaml:"upstreams" mapstructure:"upstreams" validate:"dive"`
	DevMode   bool                     `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// SetDefaults fills in zero-valued optional fields. Idempotent: safe to
// call more than once, the way the teacher's SetDefaults/SetDevDefaults
// pair is used post-unmarshal, pre-validate.
func (c *GatewayConfig) SetDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = "0.0.0.0:8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Catalog.RefreshTTL <= 0 {
		c.Catalog.RefreshTTL = catalog.DefaultRefreshTTL
	}
	if c.Catalog.DefaultCallTimeout <= 0 {
		c.Catalog.DefaultCallTimeout = 60 * time.Second
	}
	if c.Catalog.DefaultListTimeout <= 0 {
		c.Catalog.DefaultListTimeout = 30 * time.Second
	}
	if c.Push.QueueSize <= 0 {
		c.Push.QueueSize = 256
	}
	if c.Push.IdleKeepalive <= 0 {
		c.Push.IdleKeepalive = 30 * time.Second
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "mcp-gateway.db"
	}
	for i := range c.Upstreams {
		if c.Upstreams[i].Framing == "" {
			c.Upstreams[i].Framing = catalog.FramingJSON
		}
	}
}

// SetDevDefaults applies permissive overrides for local development, the
// way the teacher's --dev flag loosens production-only requirements.
func (c *GatewayConfig) SetDevDefaults() {
	if !c.DevMode {
		return
	}
	if c.Server.LogLevel == "info" || c.Server.LogLevel == "" {
		c.Server.LogLevel = "debug"
	}
}
