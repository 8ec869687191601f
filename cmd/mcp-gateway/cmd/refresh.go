package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcp-fleet/gateway/internal/adminclient"
)

var refreshServerAddr string

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Force a catalog refresh on a running gateway",
	Long: `refresh POSTs to a running gateway's /refresh endpoint, forcing an
immediate catalog rebuild across all upstreams, then prints the result.

Examples:
  mcp-gateway refresh
  mcp-gateway refresh --server http://localhost:9090`,
	RunE: runRefresh,
}

func init() {
	refreshCmd.Flags().StringVar(&refreshServerAddr, "server", "", "gateway base URL (default: MCPGW_SERVER_ADDR env or http://localhost:8080)")
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	var opts []adminclient.Option
	if refreshServerAddr != "" {
		opts = append(opts, adminclient.WithServerAddr(refreshServerAddr))
	}
	client := adminclient.NewClient(opts...)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := client.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}

	fmt.Printf("status:    %s\n", result.Status)
	fmt.Printf("tools:     %d\n", result.ToolCount)
	fmt.Printf("timestamp: %s\n", result.Timestamp.Format(time.RFC3339))
	for name, h := range result.Health {
		fmt.Printf("  %-20s %-10s tools=%d\n", name, h.Status, h.ToolCount)
	}
	return nil
}
