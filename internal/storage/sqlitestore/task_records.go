package sqlitestore

import (
	"context"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/AltairaLabs/portalops/internal/types"
)

const taskColumns = `id, case_id, type, title, status, assigned_to_id, created_at, updated_at, version`

// CreateTask inserts a new task with version 1
func (s *Store) CreateTask(ctx context.Context, task *types.Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if task.ID == "" {
		return errIDEmpty
	}

	return s.write(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn,
			`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)`,
			&sqlitex.ExecOptions{Args: []any{
				task.ID, task.CaseID, task.Type, task.Title, string(task.Status),
				task.AssignedToID, toNanos(task.CreatedAt), toNanos(task.UpdatedAt),
			}})
		if err != nil {
			return fmt.Errorf("sqlitestore: insert task %s: %w", task.ID, err)
		}
		return nil
	})
}

// GetTask retrieves a task by ID
func (s *Store) GetTask(ctx context.Context, taskID string) (*types.Task, error) {
	var task *types.Task
	err := s.read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`SELECT `+taskColumns+` FROM tasks WHERE id = ?`,
			&sqlitex.ExecOptions{
				Args: []any{taskID},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					task = scanTask(stmt)
					return nil
				},
			})
	})
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: get task %s: %w", taskID, err)
	}
	if task == nil {
		return nil, fmt.Errorf("%w: task %s", types.ErrNotFound, taskID)
	}
	return task, nil
}

// ListTasksByAssignee returns the agent's tasks, most recently updated first
func (s *Store) ListTasksByAssignee(
	ctx context.Context,
	agentID string,
	status *types.TaskStatus,
) ([]*types.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE assigned_to_id = ?`
	args := []any{agentID}
	if status != nil {
		query += ` AND status = ?`
		args = append(args, string(*status))
	}
	query += ` ORDER BY updated_at DESC, id ASC`

	tasks := make([]*types.Task, 0)
	err := s.read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args: args,
			ResultFunc: func(stmt *sqlite.Stmt) error {
				tasks = append(tasks, scanTask(stmt))
				return nil
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list tasks for %s: %w", agentID, err)
	}
	return tasks, nil
}

// CompareAndSwapTask persists task if the stored version is expectedVersion
func (s *Store) CompareAndSwapTask(ctx context.Context, task *types.Task, expectedVersion int64) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}

	return s.write(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn,
			`UPDATE tasks
			    SET title = ?, status = ?, assigned_to_id = ?, updated_at = ?, version = ?
			  WHERE id = ? AND version = ?`,
			&sqlitex.ExecOptions{Args: []any{
				task.Title, string(task.Status), task.AssignedToID, toNanos(task.UpdatedAt),
				expectedVersion + 1, task.ID, expectedVersion,
			}})
		if err != nil {
			return fmt.Errorf("sqlitestore: update task %s: %w", task.ID, err)
		}
		if conn.Changes() == 1 {
			return nil
		}

		var current int64
		found := false
		err = sqlitex.Execute(conn, `SELECT version FROM tasks WHERE id = ?`, &sqlitex.ExecOptions{
			Args: []any{task.ID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				current = stmt.ColumnInt64(0)
				return nil
			},
		})
		if err != nil {
			return fmt.Errorf("sqlitestore: read task version %s: %w", task.ID, err)
		}
		if !found {
			return fmt.Errorf("%w: task %s", types.ErrNotFound, task.ID)
		}
		return fmt.Errorf("%w: task %s is at version %d, expected %d",
			types.ErrConflict, task.ID, current, expectedVersion)
	})
}

// UpsertCase inserts or replaces a case projection
func (s *Store) UpsertCase(ctx context.Context, c *types.Case) error {
	if c == nil {
		return fmt.Errorf("case cannot be nil")
	}
	if c.ID == "" {
		return errIDEmpty
	}

	return s.write(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn,
			`INSERT INTO cases (id, state, language, doc_type) VALUES (?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
			   state = excluded.state, language = excluded.language, doc_type = excluded.doc_type`,
			&sqlitex.ExecOptions{Args: []any{c.ID, c.State, c.Language, c.DocType}})
		if err != nil {
			return fmt.Errorf("sqlitestore: upsert case %s: %w", c.ID, err)
		}
		return nil
	})
}

// GetCase retrieves a case by ID
func (s *Store) GetCase(ctx context.Context, caseID string) (*types.Case, error) {
	var c *types.Case
	err := s.read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`SELECT id, state, language, doc_type FROM cases WHERE id = ?`,
			&sqlitex.ExecOptions{
				Args: []any{caseID},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					c = &types.Case{
						ID:       stmt.ColumnText(0),
						State:    stmt.ColumnText(1),
						Language: stmt.ColumnText(2),
						DocType:  stmt.ColumnText(3),
					}
					return nil
				},
			})
	})
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: get case %s: %w", caseID, err)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: case %s", types.ErrNotFound, caseID)
	}
	return c, nil
}

// AddAttachment links an immutable attachment to a task
func (s *Store) AddAttachment(ctx context.Context, attachment *types.Attachment) error {
	if attachment == nil {
		return fmt.Errorf("attachment cannot be nil")
	}
	if attachment.ID == "" || attachment.TaskID == "" {
		return errIDEmpty
	}

	return s.write(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn,
			`INSERT INTO attachments (id, task_id, file_name, url) VALUES (?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{
				attachment.ID, attachment.TaskID, attachment.FileName, attachment.URL,
			}})
		if err != nil {
			return fmt.Errorf("sqlitestore: insert attachment %s: %w", attachment.ID, err)
		}
		return nil
	})
}

// ListAttachments returns a task's attachments in insertion order
func (s *Store) ListAttachments(ctx context.Context, taskID string) ([]*types.Attachment, error) {
	attachments := make([]*types.Attachment, 0)
	err := s.read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`SELECT id, task_id, file_name, url FROM attachments WHERE task_id = ? ORDER BY seq`,
			&sqlitex.ExecOptions{
				Args: []any{taskID},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					attachments = append(attachments, &types.Attachment{
						ID:       stmt.ColumnText(0),
						TaskID:   stmt.ColumnText(1),
						FileName: stmt.ColumnText(2),
						URL:      stmt.ColumnText(3),
					})
					return nil
				},
			})
	})
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list attachments for %s: %w", taskID, err)
	}
	return attachments, nil
}

func scanTask(stmt *sqlite.Stmt) *types.Task {
	return &types.Task{
		ID:           stmt.ColumnText(0),
		CaseID:       stmt.ColumnText(1),
		Type:         stmt.ColumnText(2),
		Title:        stmt.ColumnText(3),
		Status:       types.TaskStatus(stmt.ColumnText(4)),
		AssignedToID: stmt.ColumnText(5),
		CreatedAt:    fromNanos(stmt.ColumnInt64(6)),
		UpdatedAt:    fromNanos(stmt.ColumnInt64(7)),
		Version:      stmt.ColumnInt64(8),
	}
}
