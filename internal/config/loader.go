// Package config provides configuration loading for the gateway.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and environment
// variables. If configFile is empty, it searches for mcp-gateway.yaml/.yml
// in standard locations. The search requires an explicit YAML extension to
// avoid Viper's built-in SetConfigName matching the binary itself.
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		viper.SetConfigName("mcp-gateway")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("MCPGW")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".mcp-gateway"),
	}
	if runtime.GOOS == "windows" {
		if pd := os.Getenv("ProgramData"); pd != "" {
			paths = append(paths, filepath.Join(pd, "mcp-gateway"))
		}
	} else {
		paths = append(paths, "/etc/mcp-gateway")
	}
	return findConfigFileInPaths(paths)
}

func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "mcp-gateway"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds the config keys operators are most likely to
// override via environment variable rather than file.
func bindNestedEnvKeys() {
	_ = viper.BindEnv("server.http_addr")
	_ = viper.BindEnv("server.log_level")
	_ = viper.BindEnv("catalog.refresh_ttl")
	_ = viper.BindEnv("catalog.memory_tool")
	_ = viper.BindEnv("push.queue_size")
	_ = viper.BindEnv("push.session_idle_timeout")
	_ = viper.BindEnv("metrics_store.enabled")
	_ = viper.BindEnv("metrics_store.path")
	_ = viper.BindEnv("dev_mode")
}

// LoadConfigRaw reads the configuration file and applies defaults, but does
// not apply dev defaults or validate - callers that let a CLI flag override
// DevMode should do that before calling SetDevDefaults/Validate themselves.
func LoadConfigRaw() (*GatewayConfig, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg GatewayConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	return &cfg, nil
}

// LoadConfig reads, defaults, and validates in one step.
func LoadConfig() (*GatewayConfig, error) {
	cfg, err := LoadConfigRaw()
	if err != nil {
		return nil, err
	}
	cfg.SetDevDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// ConfigFileUsed returns the path to the configuration file that was
// loaded, or "" if running on environment variables only.
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
