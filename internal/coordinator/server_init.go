package coordinator

import (
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates an MCP server with every task tool registered
func NewMCPServer(cfg Config, svc *TaskService, logger *slog.Logger) (*MCPServer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	mcpServer := server.NewMCPServer(
		cfg.Name,
		cfg.Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	registry, err := newToolRegistry(svc)
	if err != nil {
		return nil, fmt.Errorf("failed to build tool registry: %w", err)
	}

	ms := &MCPServer{
		server:   mcpServer,
		registry: registry,
		logger:   logger.With("component", "mcp"),
	}
	ms.registerTools()

	return ms, nil
}
