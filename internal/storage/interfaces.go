// Package storage defines the pluggable record backends behind the Task
// Store and the Session Manager. Implementations live in subpackages:
// memory for tests and single-process deployments, sqlite for durable state.
package storage

import (
	"context"

	"github.com/AltairaLabs/portalops/internal/types"
)

// TaskRecords holds tasks, the case projections they reference and their
// attachments.
//
// All methods return copies; callers may mutate results freely. Lookups of
// unknown ids return an error wrapping types.ErrNotFound.
type TaskRecords interface {
	// CreateTask inserts a new task. Version is set to 1.
	CreateTask(ctx context.Context, task *types.Task) error

	// GetTask retrieves a task by ID
	GetTask(ctx context.Context, taskID string) (*types.Task, error)

	// ListTasksByAssignee returns tasks assigned to agentID, most recently
	// updated first. A nil status returns every status.
	ListTasksByAssignee(ctx context.Context, agentID string, status *types.TaskStatus) ([]*types.Task, error)

	// CompareAndSwapTask persists task only if the stored version still
	// equals expectedVersion, and stores it with expectedVersion+1.
	// A lost race returns an error wrapping types.ErrConflict.
	CompareAndSwapTask(ctx context.Context, task *types.Task, expectedVersion int64) error

	// UpsertCase inserts or replaces a case projection
	UpsertCase(ctx context.Context, c *types.Case) error

	// GetCase retrieves a case by ID
	GetCase(ctx context.Context, caseID string) (*types.Case, error)

	// AddAttachment links an immutable attachment to a task
	AddAttachment(ctx context.Context, attachment *types.Attachment) error

	// ListAttachments returns a task's attachments in insertion order
	ListAttachments(ctx context.Context, taskID string) ([]*types.Attachment, error)
}

// SessionRecords holds automation sessions.
//
// The store does not evaluate expiry; the Session Manager recomputes it on
// every read and writes the healed state back through UpdateSession.
type SessionRecords interface {
	// CreateSession inserts a new session. A second REQUESTED or ATTACHED
	// session for the same task fails with types.ErrConflict.
	CreateSession(ctx context.Context, session *types.Session) error

	// GetSession retrieves a session by ID
	GetSession(ctx context.Context, sessionID string) (*types.Session, error)

	// UpdateSession replaces the mutable fields of an existing session. It
	// fails with types.ErrConflict when it would leave two live sessions on
	// one task.
	UpdateSession(ctx context.Context, session *types.Session) error

	// ListSessionsByTask returns a task's sessions, newest first
	ListSessionsByTask(ctx context.Context, taskID string) ([]*types.Session, error)

	// ListLiveSessions returns every REQUESTED or ATTACHED session
	ListLiveSessions(ctx context.Context) ([]*types.Session, error)
}

// Backend bundles both record sets behind one lifecycle.
type Backend interface {
	TaskRecords
	SessionRecords
	Close() error
}
