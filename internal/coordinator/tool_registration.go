package coordinator

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/AltairaLabs/portalops/internal/coordinator/config"
	"github.com/AltairaLabs/portalops/internal/tools"
	"github.com/AltairaLabs/portalops/internal/tools/handlers/session"
	"github.com/AltairaLabs/portalops/internal/tools/handlers/task"
	"github.com/AltairaLabs/portalops/internal/types"
)

func statusNames() []string {
	names := make([]string, 0, len(types.AllStatuses))
	for _, s := range types.AllStatuses {
		names = append(names, string(s))
	}
	return names
}

// newToolRegistry pairs every tool definition with its handler
func newToolRegistry(svc *TaskService) (*tools.ToolHandlerRegistry, error) {
	taskHandler := task.NewHandler(svc)
	sessionHandler := session.NewRequestHandler(svc)

	definitions := []tools.Tool{
		{
			Definition: mcp.NewTool(config.ToolTasksList,
				mcp.WithDescription("List the tasks assigned to you, most recently updated first"),
				mcp.WithString("status",
					mcp.Description("Only return tasks in this status"),
					mcp.Enum(statusNames()...),
				),
			),
			Handler: taskHandler.List,
		},
		{
			Definition: mcp.NewTool(config.ToolTasksGetDetail,
				mcp.WithDescription("Get a task with its case, attachments and sessions"),
				mcp.WithString("task_id",
					mcp.Required(),
					mcp.Description("Task ID"),
				),
			),
			Handler: taskHandler.GetDetail,
		},
		{
			Definition: mcp.NewTool(config.ToolTasksSetStatus,
				mcp.WithDescription("Move a task to a new status"),
				mcp.WithString("task_id",
					mcp.Required(),
					mcp.Description("Task ID"),
				),
				mcp.WithString("status",
					mcp.Required(),
					mcp.Description("Requested status"),
				),
			),
			Handler: taskHandler.SetStatus,
		},
		{
			Definition: mcp.NewTool(config.ToolSessionsRequest,
				mcp.WithDescription("Request an automation session for a task, or return the active one"),
				mcp.WithString("task_id",
					mcp.Required(),
					mcp.Description("Task ID"),
				),
			),
			Handler: sessionHandler.Handle,
		},
		{
			Definition: mcp.NewTool(config.ToolStatusesList,
				mcp.WithDescription("List task statuses and the legal transitions between them"),
			),
			Handler: taskHandler.Statuses,
		},
	}

	registry := tools.NewToolHandlerRegistry()
	for _, t := range definitions {
		if err := registry.Register(t.Definition, t.Handler); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// registerTools adds every registry tool to the mcp-go server
func (ms *MCPServer) registerTools() {
	for _, t := range ms.registry.Tools() {
		handler := t.Handler
		ms.server.AddTool(t.Definition, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handler(ctx, req)
		})
	}
}
