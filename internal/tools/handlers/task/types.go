// Package task implements the task-facing MCP tools.
package task

import (
	"context"

	"github.com/AltairaLabs/portalops/internal/taskstatus"
	"github.com/AltairaLabs/portalops/internal/types"
)

// Service defines the task operations the handlers need
type Service interface {
	ListTasks(ctx context.Context, agent types.Agent, statusFilter *types.TaskStatus) ([]*types.Task, error)
	GetTaskDetail(ctx context.Context, agent types.Agent, taskID string) (*types.TaskDetail, error)
	SetStatus(ctx context.Context, agent types.Agent, taskID string, newStatus types.TaskStatus) (*types.Task, error)
	Statuses() []taskstatus.StatusInfo
}

// ListResponse is the tasks.list payload
type ListResponse struct {
	Tasks []*types.Task `json:"tasks"`
}

// TaskResponse is the tasks.set_status payload
type TaskResponse struct {
	Task *types.Task `json:"task"`
}

// StatusesResponse is the statuses.list payload
type StatusesResponse struct {
	Statuses []taskstatus.StatusInfo `json:"statuses"`
	Edges    []taskstatus.Edge       `json:"edges"`
}
