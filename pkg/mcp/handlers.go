package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/evidenceworks/webproof/pkg/evidence"
	"github.com/evidenceworks/webproof/pkg/runtime"
	"github.com/evidenceworks/webproof/pkg/schema"
)

// HandleValidate implements the webproof/validate MCP tool.
func HandleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	if path == "" {
		return errorResult("path argument is required"), nil
	}

	t, errs := schema.ValidateFile(path)
	if hasErrors(errs) {
		return errorResult(formatErrors(errs)), nil
	}
	return textResult(fmt.Sprintf("✓ %s is valid (%d actions)", t.ID, len(t.Actions))), nil
}

// HandleExec implements the webproof/exec MCP tool.
func HandleExec(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	if path == "" {
		return errorResult("path argument is required"), nil
	}

	t, errs := schema.ValidateFile(path)
	if hasErrors(errs) {
		return errorResult(formatErrors(errs)), nil
	}

	cfg := runtime.ConfigFromEnv()
	if dir, ok := args["sessions_dir"].(string); ok && dir != "" {
		cfg.SessionsDir = dir
	}

	report, err := runtime.NewEngine(t, cfg).Run(ctx)
	if err != nil {
		return errorResult(fmt.Sprintf("run: %s", err)), nil
	}

	data, _ := json.MarshalIndent(report, "", "  ")
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(data))},
		IsError: !report.Success,
	}, nil
}

// HandleVerify implements the webproof/verify MCP tool.
func HandleVerify(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	session, _ := args["session"].(string)
	if session == "" {
		return errorResult("session argument is required"), nil
	}

	res, err := evidence.VerifySession(session)
	if err != nil {
		return errorResult(fmt.Sprintf("verify: %s", err)), nil
	}

	data, _ := json.MarshalIndent(res, "", "  ")
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(data))},
		IsError: !res.Valid,
	}, nil
}

// HandleSchema implements the webproof/schema MCP tool.
func HandleSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := schema.GenerateJSONSchema()
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(string(data)), nil
}

func hasErrors(errs []*schema.ValidationError) bool {
	for _, e := range errs {
		if e.Severity == "error" {
			return true
		}
	}
	return false
}

func formatErrors(errs []*schema.ValidationError) string {
	var msgs []string
	for _, e := range errs {
		if e.Severity == "error" {
			msgs = append(msgs, fmt.Sprintf("[%s] %s", e.Phase, e.Message))
		}
	}
	return strings.Join(msgs, "; ")
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(msg),
		},
		IsError: true,
	}
}
