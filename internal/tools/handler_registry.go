// Package tools holds the MCP tool registry and the helpers tool handlers
// share. Handlers live in handlers/ subpackages.
package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// ToolHandlerFunc is a function that handles a tool call
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// Tool pairs an MCP tool definition with its handler
type Tool struct {
	Definition mcp.Tool
	Handler    ToolHandlerFunc
}

// ToolHandlerRegistry maps tool names to definitions and handlers, keeping
// registration order for listing.
type ToolHandlerRegistry struct {
	tools map[string]Tool
	order []string
}

// NewToolHandlerRegistry creates an empty registry
func NewToolHandlerRegistry() *ToolHandlerRegistry {
	return &ToolHandlerRegistry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool. Registering a name twice is an error.
func (r *ToolHandlerRegistry) Register(definition mcp.Tool, handler ToolHandlerFunc) error {
	name := definition.Name
	if name == "" {
		return fmt.Errorf("tool definition has no name")
	}
	if handler == nil {
		return fmt.Errorf("tool %s has no handler", name)
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}
	r.tools[name] = Tool{Definition: definition, Handler: handler}
	r.order = append(r.order, name)
	return nil
}

// GetHandler returns the handler function for a given tool name
func (r *ToolHandlerRegistry) GetHandler(toolName string) (ToolHandlerFunc, error) {
	t, ok := r.tools[toolName]
	if !ok {
		return nil, fmt.Errorf("no handler registered for tool: %s", toolName)
	}
	return t.Handler, nil
}

// Tools returns every registered tool in registration order
func (r *ToolHandlerRegistry) Tools() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Names returns the registered tool names in registration order
func (r *ToolHandlerRegistry) Names() []string {
	return append([]string(nil), r.order...)
}
