// Package cmd provides the CLI commands for the MCP gateway.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcp-fleet/gateway/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "mcp-gateway",
	Short: "MCP Fleet Gateway - federates multiple MCP servers behind one endpoint",
	Long: `mcp-gateway merges the tool catalogs of several Model Context Protocol
servers into one namespace-prefixed catalog, and routes tool calls to the
upstream that owns them.

Quick start:
  1. Create a config file: mcp-gateway.yaml
  2. Run: mcp-gateway start

Configuration:
  Config is loaded from mcp-gateway.yaml in the current directory,
  $HOME/.mcp-gateway/, or /etc/mcp-gateway/.

  Environment variables can override config values with the MCPGW_ prefix.
  Example: MCPGW_SERVER_HTTP_ADDR=:9090

Commands:
  start    Start the gateway server
  refresh  Force a catalog refresh on a running gateway
  version  Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./mcp-gateway.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
