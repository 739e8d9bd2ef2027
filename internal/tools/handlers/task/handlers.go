package task

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/AltairaLabs/portalops/internal/identity"
	"github.com/AltairaLabs/portalops/internal/taskstatus"
	"github.com/AltairaLabs/portalops/internal/tools"
	"github.com/AltairaLabs/portalops/internal/types"
)

// Handler serves tasks.list, tasks.get_detail, tasks.set_status and
// statuses.list
type Handler struct {
	service Service
}

// NewHandler creates a task tool handler
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// List handles tasks.list
func (h *Handler) List(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agent, err := identity.Require(ctx)
	if err != nil {
		return tools.ErrorResult(err), nil
	}

	var filter *types.TaskStatus
	if raw := request.GetString("status", ""); raw != "" {
		status, ok := types.ParseTaskStatus(raw)
		if !ok {
			return tools.ErrorResult(fmt.Errorf("%w: unknown status %q", types.ErrInvalidArgument, raw)), nil
		}
		filter = &status
	}

	tasks, err := h.service.ListTasks(ctx, agent, filter)
	if err != nil {
		return tools.ErrorResult(err), nil
	}
	return tools.JSONResult(ListResponse{Tasks: tasks})
}

// GetDetail handles tasks.get_detail
func (h *Handler) GetDetail(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID, err := request.RequireString("task_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	agent, err := identity.Require(ctx)
	if err != nil {
		return tools.ErrorResult(err), nil
	}

	detail, err := h.service.GetTaskDetail(ctx, agent, taskID)
	if err != nil {
		return tools.ErrorResult(err), nil
	}
	return tools.JSONResult(detail)
}

// SetStatus handles tasks.set_status. An unrecognised status still reaches
// the service so that assignment is checked before the transition.
func (h *Handler) SetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID, err := request.RequireString("task_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := request.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	agent, err := identity.Require(ctx)
	if err != nil {
		return tools.ErrorResult(err), nil
	}

	status, ok := types.ParseTaskStatus(raw)
	if !ok {
		status = types.TaskStatus(strings.ToUpper(strings.TrimSpace(raw)))
	}

	task, err := h.service.SetStatus(ctx, agent, taskID, status)
	if err != nil {
		return tools.ErrorResult(err), nil
	}
	return tools.JSONResult(TaskResponse{Task: task})
}

// Statuses handles statuses.list; it needs no identity
func (h *Handler) Statuses(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return tools.JSONResult(StatusesResponse{
		Statuses: h.service.Statuses(),
		Edges:    taskstatus.Edges(),
	})
}
