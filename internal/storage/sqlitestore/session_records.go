package sqlitestore

import (
	"context"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/AltairaLabs/portalops/internal/types"
)

const sessionColumns = `id, task_id, status, created_at, expires_at, viewer_url, worker_id, closed_at`

// CreateSession inserts a new session
func (s *Store) CreateSession(ctx context.Context, session *types.Session) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}
	if session.ID == "" || session.TaskID == "" {
		return errIDEmpty
	}

	return s.write(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn,
			`INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{
				session.ID, session.TaskID, string(session.Status),
				toNanos(session.CreatedAt), toNanos(session.ExpiresAt),
				session.ViewerURL, session.WorkerID, closedAtArg(session),
			}})
		if err != nil {
			return sessionWriteError("insert", session, err)
		}
		return nil
	})
}

// GetSession retrieves a session by ID
func (s *Store) GetSession(ctx context.Context, sessionID string) (*types.Session, error) {
	var session *types.Session
	err := s.read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`,
			&sqlitex.ExecOptions{
				Args: []any{sessionID},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					session = scanSession(stmt)
					return nil
				},
			})
	})
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: get session %s: %w", sessionID, err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: session %s", types.ErrNotFound, sessionID)
	}
	return session, nil
}

// UpdateSession replaces status, viewer URL, worker and close time
func (s *Store) UpdateSession(ctx context.Context, session *types.Session) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}

	return s.write(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn,
			`UPDATE sessions SET status = ?, viewer_url = ?, worker_id = ?, closed_at = ? WHERE id = ?`,
			&sqlitex.ExecOptions{Args: []any{
				string(session.Status), session.ViewerURL, session.WorkerID,
				closedAtArg(session), session.ID,
			}})
		if err != nil {
			return sessionWriteError("update", session, err)
		}
		if conn.Changes() == 0 {
			return fmt.Errorf("%w: session %s", types.ErrNotFound, session.ID)
		}
		return nil
	})
}

// ListSessionsByTask returns a task's sessions, newest first
func (s *Store) ListSessionsByTask(ctx context.Context, taskID string) ([]*types.Session, error) {
	return s.listSessions(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE task_id = ? ORDER BY created_at DESC, seq DESC`,
		taskID)
}

// ListLiveSessions returns every REQUESTED or ATTACHED session
func (s *Store) ListLiveSessions(ctx context.Context) ([]*types.Session, error) {
	return s.listSessions(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE status IN (?, ?) ORDER BY created_at DESC, seq DESC`,
		string(types.SessionRequested), string(types.SessionAttached))
}

func (s *Store) listSessions(ctx context.Context, query string, args ...any) ([]*types.Session, error) {
	sessions := make([]*types.Session, 0)
	err := s.read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args: args,
			ResultFunc: func(stmt *sqlite.Stmt) error {
				sessions = append(sessions, scanSession(stmt))
				return nil
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list sessions: %w", err)
	}
	return sessions, nil
}

func scanSession(stmt *sqlite.Stmt) *types.Session {
	session := &types.Session{
		ID:        stmt.ColumnText(0),
		TaskID:    stmt.ColumnText(1),
		Status:    types.SessionState(stmt.ColumnText(2)),
		CreatedAt: fromNanos(stmt.ColumnInt64(3)),
		ExpiresAt: fromNanos(stmt.ColumnInt64(4)),
		ViewerURL: stmt.ColumnText(5),
		WorkerID:  stmt.ColumnText(6),
	}
	if !stmt.ColumnIsNull(7) {
		closedAt := fromNanos(stmt.ColumnInt64(7))
		session.ClosedAt = &closedAt
	}
	return session
}

func closedAtArg(session *types.Session) any {
	if session.ClosedAt == nil {
		return nil
	}
	return toNanos(*session.ClosedAt)
}

// sessionWriteError maps a unique violation, normally of
// idx_sessions_one_live, to types.ErrConflict.
func sessionWriteError(op string, session *types.Session, err error) error {
	if sqlite.ErrCode(err) == sqlite.ResultConstraintUnique {
		return fmt.Errorf("%w: task %s already has a live session: sqlitestore: %s session %s: %v",
			types.ErrConflict, session.TaskID, op, session.ID, err)
	}
	return fmt.Errorf("sqlitestore: %s session %s: %w", op, session.ID, err)
}
