package tools

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func TestRegisterAndGet(t *testing.T) {
	const (
		toolA = "test.tool"
		toolB = "other.tool"
	)

	called := false
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		called = true
		return mcp.NewToolResultText("ok"), nil
	}

	r := NewToolHandlerRegistry()
	if err := r.Register(mcp.NewTool(toolA), handler); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	h, err := r.GetHandler(toolA)
	if err != nil {
		t.Fatalf("expected handler, got error: %v", err)
	}

	var req mcp.CallToolRequest
	res, err := h(context.Background(), req)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if res == nil {
		t.Fatalf("expected non-nil result")
	}
	if !called {
		t.Fatalf("expected handler to be called")
	}

	handler2 := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("ok2"), nil
	}
	if err := r.Register(mcp.NewTool(toolB), handler2); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	names := r.Names()
	if len(names) != 2 || names[0] != toolA || names[1] != toolB {
		t.Fatalf("expected [%s %s], got %v", toolA, toolB, names)
	}
	all := r.Tools()
	if len(all) != 2 || all[1].Definition.Name != toolB {
		t.Fatalf("expected tools in registration order, got %v", all)
	}
}

func TestRegisterRejectsInvalid(t *testing.T) {
	r := NewToolHandlerRegistry()
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, nil
	}

	if err := r.Register(mcp.NewTool(""), handler); err == nil {
		t.Error("expected error for unnamed tool")
	}
	if err := r.Register(mcp.NewTool("a"), nil); err == nil {
		t.Error("expected error for nil handler")
	}
	if err := r.Register(mcp.NewTool("a"), handler); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(mcp.NewTool("a"), handler); err == nil {
		t.Error("expected error for duplicate tool")
	}
}

func TestMissingHandler(t *testing.T) {
	r := NewToolHandlerRegistry()
	if _, err := r.GetHandler("nope"); err == nil {
		t.Fatalf("expected error for missing handler")
	}
}
