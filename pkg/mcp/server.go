// Package mcp exposes webproof over the Model Context Protocol so AI
// agents can validate, execute, and verify task runs via stdio.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewServer creates a new MCP server with webproof tools registered.
func NewServer(version string) *server.MCPServer {
	s := server.NewMCPServer(
		"webproof",
		version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(
		mcp.NewTool("webproof/validate",
			mcp.WithDescription("Validate a webproof task YAML or JSON file"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the task file")),
		),
		HandleValidate,
	)

	s.AddTool(
		mcp.NewTool("webproof/exec",
			mcp.WithDescription("Execute a webproof task in a headless browser and produce an evidence bundle"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the task file")),
			mcp.WithString("sessions_dir", mcp.Description("Root directory for session output (defaults to WEBPROOF_SESSIONS_DIR)")),
		),
		HandleExec,
	)

	s.AddTool(
		mcp.NewTool("webproof/verify",
			mcp.WithDescription("Re-hash a session's evidence bundle against its manifest"),
			mcp.WithString("session", mcp.Required(), mcp.Description("Path to the session directory")),
		),
		HandleVerify,
	)

	s.AddTool(
		mcp.NewTool("webproof/schema",
			mcp.WithDescription("Export the task JSON Schema"),
		),
		HandleSchema,
	)

	return s
}
