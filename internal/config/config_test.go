package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mcp-fleet/gateway/internal/catalog"
)

func TestGatewayConfig_SetDefaults(t *testing.T) {
	t.Parallel()

	var cfg GatewayConfig
	cfg.SetDefaults()

	if cfg.Server.HTTPAddr != "0.0.0.0:8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "0.0.0.0:8080")
	}
	if cfg.Server.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.Server.LogLevel, "info")
	}
	if cfg.Catalog.RefreshTTL != catalog.DefaultRefreshTTL {
		t.Errorf("RefreshTTL = %v, want %v", cfg.Catalog.RefreshTTL, catalog.DefaultRefreshTTL)
	}
	if cfg.Push.QueueSize != 256 {
		t.Errorf("Push.QueueSize = %d, want 256", cfg.Push.QueueSize)
	}
	if cfg.Push.IdleKeepalive != 30*time.Second {
		t.Errorf("Push.IdleKeepalive = %v, want 30s", cfg.Push.IdleKeepalive)
	}
	if cfg.Metrics.Path != "mcp-gateway.db" {
		t.Errorf("Metrics.Path = %q, want %q", cfg.Metrics.Path, "mcp-gateway.db")
	}
}

func TestGatewayConfig_SetDefaults_PreservesExistingValues(t *testing.T) {
	t.Parallel()

	cfg := GatewayConfig{
		Server: ServerConfig{HTTPAddr: ":9090", LogLevel: "warn"},
		Push:   PushConfig{QueueSize: 64},
	}
	cfg.SetDefaults()

	if cfg.Server.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr was overwritten: got %q, want %q", cfg.Server.HTTPAddr, ":9090")
	}
	if cfg.Server.LogLevel != "warn" {
		t.Errorf("LogLevel was overwritten: got %q, want %q", cfg.Server.LogLevel, "warn")
	}
	if cfg.Push.QueueSize != 64 {
		t.Errorf("Push.QueueSize was overwritten: got %d, want 64", cfg.Push.QueueSize)
	}
}

func TestGatewayConfig_SetDefaults_UpstreamFraming(t *testing.T) {
	t.Parallel()

	cfg := GatewayConfig{
		Upstreams: []UpstreamConfig{
			{Name: "a", Prefix: "a"},
			{Name: "b", Prefix: "b", Framing: FramingSSE},
		},
	}
	cfg.SetDefaults()

	if cfg.Upstreams[0].Framing != FramingJSON {
		t.Errorf("Upstreams[0].Framing = %q, want %q (default)", cfg.Upstreams[0].Framing, FramingJSON)
	}
	if cfg.Upstreams[1].Framing != FramingSSE {
		t.Errorf("Upstreams[1].Framing was overwritten: got %q, want %q", cfg.Upstreams[1].Framing, FramingSSE)
	}
}

func TestGatewayConfig_SetDevDefaults(t *testing.T) {
	t.Parallel()

	cfg := GatewayConfig{DevMode: true, Server: ServerConfig{LogLevel: "info"}}
	cfg.SetDevDefaults()

	if cfg.Server.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q in dev mode", cfg.Server.LogLevel, "debug")
	}
}

func TestGatewayConfig_SetDevDefaults_NoopWhenNotDev(t *testing.T) {
	t.Parallel()

	cfg := GatewayConfig{DevMode: false, Server: ServerConfig{LogLevel: "info"}}
	cfg.SetDevDefaults()

	if cfg.Server.LogLevel != "info" {
		t.Errorf("LogLevel changed without DevMode: got %q", cfg.Server.LogLevel)
	}
}

func TestGatewayConfig_SetDevDefaults_PreservesExplicitLevel(t *testing.T) {
	t.Parallel()

	cfg := GatewayConfig{DevMode: true, Server: ServerConfig{LogLevel: "error"}}
	cfg.SetDevDefaults()

	if cfg.Server.LogLevel != "error" {
		t.Errorf("LogLevel = %q, want explicit 'error' preserved", cfg.Server.LogLevel)
	}
}

func TestFindConfigFileInPaths_EmptyDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	got := findConfigFileInPaths([]string{dir})
	if got != "" {
		t.Errorf("findConfigFileInPaths(empty dir) = %q, want empty", got)
	}
}

func TestFindConfigFileInPaths_MatchesYAML(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "mcp-gateway.yaml")
	_ = os.WriteFile(cfgPath, []byte("server:\n  http_addr: :9090\n"), 0644)

	got := findConfigFileInPaths([]string{dir})
	if got != cfgPath {
		t.Errorf("findConfigFileInPaths = %q, want %q", got, cfgPath)
	}
}

func TestFindConfigFileInPaths_MatchesYML(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "mcp-gateway.yml")
	_ = os.WriteFile(cfgPath, []byte("server:\n  http_addr: :9090\n"), 0644)

	got := findConfigFileInPaths([]string{dir})
	if got != cfgPath {
		t.Errorf("findConfigFileInPaths = %q, want %q", got, cfgPath)
	}
}

func TestFindConfigFileInPaths_IgnoresNoExtension(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	// Simulate the binary: a file named "mcp-gateway" with no extension.
	_ = os.WriteFile(filepath.Join(dir, "mcp-gateway"), []byte("\x7fELF binary"), 0755)

	got := findConfigFileInPaths([]string{dir})
	if got != "" {
		t.Errorf("findConfigFileInPaths matched binary = %q, want empty", got)
	}
}

func TestFindConfigFileInPaths_PrefersYAMLOverYML(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "mcp-gateway.yaml")
	ymlPath := filepath.Join(dir, "mcp-gateway.yml")
	_ = os.WriteFile(yamlPath, []byte("server:\n  http_addr: :8080\n"), 0644)
	_ = os.WriteFile(ymlPath, []byte("server:\n  http_addr: :9090\n"), 0644)

	got := findConfigFileInPaths([]string{dir})
	if got != yamlPath {
		t.Errorf("findConfigFileInPaths = %q, want %q (.yaml preferred)", got, yamlPath)
	}
}
