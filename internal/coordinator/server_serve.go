package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/AltairaLabs/portalops/internal/identity"
	"github.com/AltairaLabs/portalops/internal/types"
)

const sseReadHeaderTimeout = 30 * time.Second

// This file contains server startup methods that start blocking servers.
// They are exercised through cmd/coordinator.

// ServeStdio serves MCP over stdin/stdout until ctx ends. Every call runs
// as agent, since a stdio transport carries no request metadata.
func (ms *MCPServer) ServeStdio(ctx context.Context, agent types.Agent) error {
	ms.logger.Info("Starting MCP server with stdio transport", "agent_id", agent.ID)

	stdio := server.NewStdioServer(ms.server)
	stdio.SetErrorLogger(slog.NewLogLogger(ms.logger.Handler(), slog.LevelError))
	stdio.SetContextFunc(func(ctx context.Context) context.Context {
		return identity.WithAgent(ctx, agent)
	})

	err := stdio.Listen(ctx, os.Stdin, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio transport: %w", err)
	}
	return nil
}

// SSEHandler returns the HTTP/SSE transport handler. The caller identity is
// read from the x-user-id and x-user-role headers of each request.
func (ms *MCPServer) SSEHandler(baseURL string) http.Handler {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.sse == nil {
		ms.sse = ms.newSSEServer(baseURL)
	}
	return ms.sse
}

func (ms *MCPServer) newSSEServer(baseURL string, extra ...server.SSEOption) *server.SSEServer {
	opts := append([]server.SSEOption{
		server.WithBaseURL(baseURL),
		server.WithStaticBasePath("/mcp"),
		server.WithSSEContextFunc(identity.HeaderContextFunc),
	}, extra...)
	return server.NewSSEServer(ms.server, opts...)
}

// ServeSSE starts the MCP server with HTTP/SSE transport on addr and blocks
// until Shutdown. It returns nil at once if Shutdown already ran.
func (ms *MCPServer) ServeSSE(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: sseReadHeaderTimeout,
	}

	ms.mu.Lock()
	if ms.closed {
		ms.mu.Unlock()
		return nil
	}
	ms.sse = ms.newSSEServer("http://"+addr, server.WithHTTPServer(srv))
	srv.Handler = ms.sse
	ms.mu.Unlock()

	ms.logger.Info("Starting MCP server with HTTP/SSE transport", "address", addr, "base_path", "/mcp")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("sse transport: %w", err)
	}
	return nil
}

// Shutdown closes open SSE sessions and stops the listener started by
// ServeSSE
func (ms *MCPServer) Shutdown(ctx context.Context) error {
	ms.mu.Lock()
	ms.closed = true
	sse := ms.sse
	ms.mu.Unlock()

	if sse == nil {
		return nil
	}
	return sse.Shutdown(ctx)
}
