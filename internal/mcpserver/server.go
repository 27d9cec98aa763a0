// Package mcpserver exposes memory search, memory capture and pipeline
// steps as MCP tools over stdio.
//
// Each tool is a struct with its dependencies injected by constructor,
// a Definition returning the mcp.Tool schema and a Handle for calls.
package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rcliao/life-assistant/internal/app"
)

const (
	Name    = "life-assistant"
	Version = "0.1.0"
)

// New builds the MCP server with every tool registered.
func New(rt *app.Runtime) *server.MCPServer {
	s := server.NewMCPServer(Name, Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	search := NewSearchTool(rt)
	s.AddTool(search.Definition(), search.Handle)

	add := NewAddTool(rt)
	s.AddTool(add.Definition(), add.Handle)

	step := NewRunStepTool(rt)
	s.AddTool(step.Definition(), step.Handle)

	return s
}

// Serve runs s on stdin and stdout until the client disconnects.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

// intArg reads a numeric argument; JSON numbers arrive as float64.
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}
