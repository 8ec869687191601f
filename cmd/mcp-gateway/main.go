// Command mcp-gateway runs the MCP federating gateway.
package main

import "github.com/mcp-fleet/gateway/cmd/mcp-gateway/cmd"

func main() {
	cmd.Execute()
}
