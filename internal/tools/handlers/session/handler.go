// Package session implements the sessions.request MCP tool.
package session

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/AltairaLabs/portalops/internal/identity"
	"github.com/AltairaLabs/portalops/internal/tools"
	"github.com/AltairaLabs/portalops/internal/types"
)

// Starter opens or returns the automation session of a task
type Starter interface {
	StartSession(ctx context.Context, agent types.Agent, taskID string) (*types.Session, error)
}

// Response is the sessions.request payload
type Response struct {
	Session *types.Session `json:"session"`
}

// RequestHandler handles sessions.request
type RequestHandler struct {
	starter Starter
}

// NewRequestHandler creates a sessions.request handler
func NewRequestHandler(starter Starter) *RequestHandler {
	return &RequestHandler{starter: starter}
}

// Handle requests a session for the task named by task_id
func (h *RequestHandler) Handle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID, err := request.RequireString("task_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	agent, err := identity.Require(ctx)
	if err != nil {
		return tools.ErrorResult(err), nil
	}

	session, err := h.starter.StartSession(ctx, agent, taskID)
	if err != nil {
		return tools.ErrorResult(err), nil
	}
	return tools.JSONResult(Response{Session: session})
}
