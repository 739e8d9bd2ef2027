package coordinator

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/AltairaLabs/portalops/internal/tools"
)

// MCPServer wraps the mcp-go server and exposes the task service as tools
type MCPServer struct {
	server   *server.MCPServer
	registry *tools.ToolHandlerRegistry
	logger   *slog.Logger

	mu     sync.Mutex
	sse    *server.SSEServer
	closed bool
}

// Config holds configuration for the MCP server
type Config struct {
	Name    string
	Version string
}

// ToolNames lists the registered tools in registration order
func (ms *MCPServer) ToolNames() []string {
	return ms.registry.Names()
}

// HandleMessage processes one raw JSON-RPC message. Transports call into
// the same path, so tests use it to drive the server without I/O.
func (ms *MCPServer) HandleMessage(ctx context.Context, message json.RawMessage) mcp.JSONRPCMessage {
	return ms.server.HandleMessage(ctx, message)
}
