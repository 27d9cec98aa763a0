package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/life-assistant/internal/mcpserver"
)

func init() {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve memory and pipeline tools over MCP stdio",
		Run:   runMCP,
	}

	RootCmd.AddCommand(cmd)
}

func runMCP(cmd *cobra.Command, args []string) {
	rt, _ := openRuntime(cmd.Context())
	defer rt.Close()

	if err := mcpserver.Serve(mcpserver.New(rt)); err != nil {
		exitErr("mcp", err)
	}
}
