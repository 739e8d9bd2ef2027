// Package taskstore is the authority for task records: lookups, the
// per-agent task list, and the only path through which a task's status
// changes.
package taskstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AltairaLabs/portalops/internal/cache"
	"github.com/AltairaLabs/portalops/internal/keylock"
	"github.com/AltairaLabs/portalops/internal/storage"
	"github.com/AltairaLabs/portalops/internal/taskstatus"
	"github.com/AltairaLabs/portalops/internal/types"
)

// Store serializes status changes per task and persists them with
// compare-and-swap on the task version.
type Store struct {
	records storage.TaskRecords
	cases   *cache.CaseCache
	locks   *keylock.Locker
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the time source used for updatedAt stamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithCaseCache sets the cache used by GetCaseSummary
func WithCaseCache(c *cache.CaseCache) Option {
	return func(s *Store) { s.cases = c }
}

// WithLogger sets the store logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New creates a task store over records
func New(records storage.TaskRecords, opts ...Option) *Store {
	s := &Store{
		records: records,
		locks:   keylock.New(),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Change describes one applied status update.
type Change struct {
	Task *types.Task
	From types.TaskStatus
}

// GetTask returns a task or an error wrapping types.ErrNotFound
func (s *Store) GetTask(ctx context.Context, taskID string) (*types.Task, error) {
	return s.records.GetTask(ctx, taskID)
}

// ListTasksForAgent returns the agent's tasks, most recently updated first.
// A nil statusFilter returns every status.
func (s *Store) ListTasksForAgent(
	ctx context.Context,
	agentID string,
	statusFilter *types.TaskStatus,
) ([]*types.Task, error) {
	return s.records.ListTasksByAssignee(ctx, agentID, statusFilter)
}

// UpdateStatus moves a task to newStatus on behalf of actorAgentID
func (s *Store) UpdateStatus(
	ctx context.Context,
	taskID string,
	newStatus types.TaskStatus,
	actorAgentID string,
) (*types.Task, error) {
	change, err := s.Transition(ctx, taskID, newStatus, actorAgentID)
	if err != nil {
		return nil, err
	}
	return change.Task, nil
}

// Transition is UpdateStatus that also reports the status it left.
//
// The actor must be the task's assignee. A self transition is accepted and
// only refreshes updatedAt. A write that loses the version race returns an
// error wrapping types.ErrConflict and changes nothing.
func (s *Store) Transition(
	ctx context.Context,
	taskID string,
	newStatus types.TaskStatus,
	actorAgentID string,
) (*Change, error) {
	unlock := s.locks.Lock(taskID)
	defer unlock()

	task, err := s.records.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if task.AssignedToID == "" {
		return nil, fmt.Errorf("%w: task %s is unassigned", types.ErrForbidden, taskID)
	}
	if task.AssignedToID != actorAgentID {
		return nil, fmt.Errorf("%w: task %s is not assigned to %s", types.ErrForbidden, taskID, actorAgentID)
	}

	if err := taskstatus.Validate(task.Status, newStatus); err != nil {
		return nil, fmt.Errorf("task %s: %w", taskID, err)
	}

	from := task.Status
	expected := task.Version
	task.Status = newStatus
	task.UpdatedAt = s.now()

	if err := s.records.CompareAndSwapTask(ctx, task, expected); err != nil {
		return nil, err
	}
	task.Version = expected + 1

	s.logger.Debug("task status updated",
		"task_id", taskID,
		"from", from,
		"to", newStatus,
		"actor", actorAgentID,
		"version", task.Version)

	return &Change{Task: task, From: from}, nil
}

// GetCaseSummary returns the case projection, served from the case cache
// when one is configured.
func (s *Store) GetCaseSummary(ctx context.Context, caseID string) (*types.Case, error) {
	if s.cases != nil {
		if cached, ok := s.cases.Get(caseID); ok {
			return cached, nil
		}
	}

	summary, err := s.records.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	if s.cases != nil {
		if err := s.cases.Store(summary); err != nil {
			s.logger.Warn("failed to cache case", "case_id", caseID, "error", err)
		}
	}
	return summary, nil
}

// ListAttachments returns a task's attachments
func (s *Store) ListAttachments(ctx context.Context, taskID string) ([]*types.Attachment, error) {
	return s.records.ListAttachments(ctx, taskID)
}
