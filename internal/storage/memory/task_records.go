package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/AltairaLabs/portalops/internal/types"
)

// CreateTask inserts a new task with version 1
func (s *Store) CreateTask(ctx context.Context, task *types.Task) error {
	if task == nil {
		return errTaskNil
	}
	if task.ID == "" {
		return errIDEmpty
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.ID]; exists {
		return fmt.Errorf("task with ID %s already exists", task.ID)
	}

	taskCopy := *task
	taskCopy.Version = 1
	s.tasks[task.ID] = &taskCopy
	return nil
}

// GetTask retrieves a task by ID
func (s *Store) GetTask(ctx context.Context, taskID string) (*types.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, exists := s.tasks[taskID]
	if !exists {
		return nil, fmt.Errorf("%w: task %s", types.ErrNotFound, taskID)
	}

	taskCopy := *task
	return &taskCopy, nil
}

// ListTasksByAssignee returns the agent's tasks, most recently updated first
func (s *Store) ListTasksByAssignee(
	ctx context.Context,
	agentID string,
	status *types.TaskStatus,
) ([]*types.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*types.Task, 0)
	for _, task := range s.tasks {
		if task.AssignedToID != agentID {
			continue
		}
		if status != nil && task.Status != *status {
			continue
		}
		taskCopy := *task
		result = append(result, &taskCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].UpdatedAt.After(result[j].UpdatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// CompareAndSwapTask persists task if the stored version is expectedVersion
func (s *Store) CompareAndSwapTask(ctx context.Context, task *types.Task, expectedVersion int64) error {
	if task == nil {
		return errTaskNil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.tasks[task.ID]
	if !exists {
		return fmt.Errorf("%w: task %s", types.ErrNotFound, task.ID)
	}
	if stored.Version != expectedVersion {
		return fmt.Errorf("%w: task %s is at version %d, expected %d",
			types.ErrConflict, task.ID, stored.Version, expectedVersion)
	}

	taskCopy := *task
	taskCopy.Version = expectedVersion + 1
	s.tasks[task.ID] = &taskCopy
	return nil
}

// UpsertCase inserts or replaces a case projection
func (s *Store) UpsertCase(ctx context.Context, c *types.Case) error {
	if c == nil {
		return errCaseNil
	}
	if c.ID == "" {
		return errIDEmpty
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	caseCopy := *c
	s.cases[c.ID] = &caseCopy
	return nil
}

// GetCase retrieves a case by ID
func (s *Store) GetCase(ctx context.Context, caseID string) (*types.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.cases[caseID]
	if !exists {
		return nil, fmt.Errorf("%w: case %s", types.ErrNotFound, caseID)
	}

	caseCopy := *c
	return &caseCopy, nil
}

// AddAttachment links an attachment to its task
func (s *Store) AddAttachment(ctx context.Context, attachment *types.Attachment) error {
	if attachment == nil {
		return errAttachmentNil
	}
	if attachment.ID == "" || attachment.TaskID == "" {
		return errIDEmpty
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.attachments[attachment.TaskID] {
		if existing.ID == attachment.ID {
			return fmt.Errorf("attachment with ID %s already exists", attachment.ID)
		}
	}

	attachmentCopy := *attachment
	s.attachments[attachment.TaskID] = append(s.attachments[attachment.TaskID], &attachmentCopy)
	return nil
}

// ListAttachments returns a task's attachments in insertion order
func (s *Store) ListAttachments(ctx context.Context, taskID string) ([]*types.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.attachments[taskID]
	result := make([]*types.Attachment, 0, len(stored))
	for _, a := range stored {
		attachmentCopy := *a
		result = append(result, &attachmentCopy)
	}
	return result, nil
}
