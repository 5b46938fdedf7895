package mcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func TestHandleValidate_MissingPath(t *testing.T) {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{}

	result, err := HandleValidate(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("expected error for missing path")
	}
}

func TestHandleValidate_ValidTask(t *testing.T) {
	path := filepath.Join(t.TempDir(), "task.yaml")
	task := `id: mcp-check
start:
  url: https://example.com
actions:
  - type: goto
    target: ${start.url}
`
	if err := os.WriteFile(path, []byte(task), 0644); err != nil {
		t.Fatal(err)
	}

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"path": path}

	result, err := HandleValidate(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError {
		t.Errorf("expected valid task to pass: %+v", result.Content)
	}
}

func TestHandleVerify_MissingSession(t *testing.T) {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{}

	result, err := HandleVerify(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("expected error for missing session")
	}
}

func TestHandleSchema(t *testing.T) {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{}

	result, err := HandleSchema(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError {
		t.Error("expected success for schema export")
	}
	if len(result.Content) == 0 {
		t.Error("expected schema content")
	}
}
