package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/AltairaLabs/portalops/internal/coordinator/config"
	"github.com/AltairaLabs/portalops/internal/keylock"
	"github.com/AltairaLabs/portalops/internal/storage"
	"github.com/AltairaLabs/portalops/internal/types"
)

// SessionManager enforces one live session per task and time-boxes every
// session. Expiry is recomputed on every read and written back, so callers
// never observe a live session past its expiresAt.
//
// Every mutation and every healing read holds the owning task's lock.
type SessionManager struct {
	records storage.SessionRecords
	locks   *keylock.Locker
	ttl     time.Duration
	now     func() time.Time
	newID   func() string
	events  EventPublisher
	tasks   TaskLookup
	metrics *Metrics
	logger  *slog.Logger
}

// TaskLookup resolves the task a session belongs to
type TaskLookup interface {
	GetTask(ctx context.Context, taskID string) (*types.Task, error)
}

// SessionOption configures a SessionManager
type SessionOption func(*SessionManager)

// WithSessionTTL sets the time box for new sessions
func WithSessionTTL(ttl time.Duration) SessionOption {
	return func(sm *SessionManager) { sm.ttl = ttl }
}

// WithSessionClock overrides the time source
func WithSessionClock(now func() time.Time) SessionOption {
	return func(sm *SessionManager) { sm.now = now }
}

// WithSessionIDs overrides session id generation
func WithSessionIDs(newID func() string) SessionOption {
	return func(sm *SessionManager) { sm.newID = newID }
}

// WithSessionEvents publishes session lifecycle events to p
func WithSessionEvents(p EventPublisher) SessionOption {
	return func(sm *SessionManager) { sm.events = p }
}

// WithSessionTasks resolves task assignees for published session events.
// Without it session events carry no assignee.
func WithSessionTasks(tasks TaskLookup) SessionOption {
	return func(sm *SessionManager) { sm.tasks = tasks }
}

// WithSessionMetrics records session lifecycle metrics
func WithSessionMetrics(m *Metrics) SessionOption {
	return func(sm *SessionManager) { sm.metrics = m }
}

// WithSessionLogger sets the manager logger
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(sm *SessionManager) { sm.logger = logger }
}

// NewSessionManager creates a session manager over records
func NewSessionManager(records storage.SessionRecords, opts ...SessionOption) *SessionManager {
	sm := &SessionManager{
		records: records,
		locks:   keylock.New(),
		ttl:     config.DefaultSessionTTL,
		now:     time.Now,
		newID:   uuid.NewString,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(sm)
	}
	return sm
}

// TTL returns the time box applied to new sessions
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// RequestSession returns the task's active session unchanged, or creates a
// new REQUESTED session when there is none. Repeated calls without an
// intervening expiry or close return the same session.
func (sm *SessionManager) RequestSession(ctx context.Context, taskID string) (*types.Session, error) {
	unlock := sm.locks.Lock(taskID)
	defer unlock()

	sessions, err := sm.healedLocked(ctx, taskID)
	if err != nil {
		return nil, err
	}

	now := sm.now()
	for _, s := range sessions {
		if s.IsActiveAt(now) {
			return s, nil
		}
	}

	session := &types.Session{
		ID:        sm.newID(),
		TaskID:    taskID,
		Status:    types.SessionRequested,
		CreatedAt: now,
		ExpiresAt: now.Add(sm.ttl),
	}
	if err := sm.records.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session for task %s: %w", taskID, err)
	}

	sm.logger.InfoContext(ctx, "session requested",
		"session_id", session.ID,
		"task_id", taskID,
		"expires_at", session.ExpiresAt)
	sm.emit(ctx, EventSessionRequested, session)
	return session, nil
}

// AttachWorker records the worker's viewer URL and moves the session from
// REQUESTED to ATTACHED. An expired session is marked EXPIRED before the
// error is returned, so a late worker cannot revive it.
func (sm *SessionManager) AttachWorker(
	ctx context.Context,
	sessionID, viewerURL, workerID string,
) (*types.Session, error) {
	var attached *types.Session
	err := sm.withSession(ctx, sessionID, func(session *types.Session, expired bool) error {
		if expired {
			return fmt.Errorf("%w: session %s expired at %s",
				types.ErrExpired, sessionID, session.ExpiresAt.Format(time.RFC3339))
		}
		if err := validateViewerURL(viewerURL); err != nil {
			return err
		}
		if session.Status != types.SessionRequested {
			return fmt.Errorf("%w: session %s is %s, not %s",
				types.ErrInvalidState, sessionID, session.Status, types.SessionRequested)
		}

		session.Status = types.SessionAttached
		session.ViewerURL = viewerURL
		session.WorkerID = workerID
		if err := sm.records.UpdateSession(ctx, session); err != nil {
			return fmt.Errorf("attach session %s: %w", sessionID, err)
		}
		attached = session
		return nil
	})
	if err != nil {
		return nil, err
	}

	sm.logger.InfoContext(ctx, "worker attached",
		"session_id", sessionID,
		"task_id", attached.TaskID,
		"worker_id", workerID)
	sm.emit(ctx, EventSessionAttached, attached)
	return attached, nil
}

// CloseSession closes a session from any state. Closing a CLOSED session
// returns it unchanged.
func (sm *SessionManager) CloseSession(ctx context.Context, sessionID string) (*types.Session, error) {
	var (
		closed  *types.Session
		changed bool
	)
	err := sm.withSession(ctx, sessionID, func(session *types.Session, _ bool) error {
		closed = session
		if session.Status == types.SessionClosed {
			return nil
		}

		closedAt := sm.now()
		session.Status = types.SessionClosed
		session.ClosedAt = &closedAt
		if err := sm.records.UpdateSession(ctx, session); err != nil {
			return fmt.Errorf("close session %s: %w", sessionID, err)
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		sm.logger.InfoContext(ctx, "session closed", "session_id", sessionID, "task_id", closed.TaskID)
		sm.emit(ctx, EventSessionClosed, closed)
	}
	return closed, nil
}

// GetActiveOrLatest returns the task's active session, else its most
// recently created session, else nil.
func (sm *SessionManager) GetActiveOrLatest(ctx context.Context, taskID string) (*types.Session, error) {
	unlock := sm.locks.Lock(taskID)
	defer unlock()

	sessions, err := sm.healedLocked(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return pickActiveOrLatest(sessions, sm.now()), nil
}

// ListSessions returns the task's session history, newest first, with
// expiry applied.
func (sm *SessionManager) ListSessions(ctx context.Context, taskID string) ([]*types.Session, error) {
	unlock := sm.locks.Lock(taskID)
	defer unlock()

	return sm.healedLocked(ctx, taskID)
}

// GetSession returns one session with expiry applied
func (sm *SessionManager) GetSession(ctx context.Context, sessionID string) (*types.Session, error) {
	var found *types.Session
	err := sm.withSession(ctx, sessionID, func(session *types.Session, _ bool) error {
		found = session
		return nil
	})
	return found, err
}

// SweepExpired heals every live session whose time box has elapsed and
// returns how many were expired, along with the number still live.
func (sm *SessionManager) SweepExpired(ctx context.Context) (expired, live int, err error) {
	sessions, err := sm.records.ListLiveSessions(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list live sessions: %w", err)
	}

	now := sm.now()
	for _, candidate := range sessions {
		if !candidate.IsExpiredAt(now) {
			live++
			continue
		}
		healErr := sm.withSession(ctx, candidate.ID, func(session *types.Session, wasExpired bool) error {
			if wasExpired {
				expired++
			}
			return nil
		})
		if healErr != nil {
			sm.logger.WarnContext(ctx, "sweep failed to expire session",
				"session_id", candidate.ID, "error", healErr)
		}
	}
	sm.metrics.SetLiveSessions(live)
	return expired, live, nil
}

// withSession loads sessionID under its task's lock, heals expiry, and
// hands the result to fn. expired reports whether this call observed the
// session past its time box.
func (sm *SessionManager) withSession(
	ctx context.Context,
	sessionID string,
	fn func(session *types.Session, expired bool) error,
) error {
	located, err := sm.records.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	unlock := sm.locks.Lock(located.TaskID)
	defer unlock()

	session, err := sm.records.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	expired, err := sm.heal(ctx, session)
	if err != nil {
		return err
	}
	return fn(session, expired)
}

// healedLocked lists a task's sessions with expiry applied. The caller
// holds the task lock.
func (sm *SessionManager) healedLocked(ctx context.Context, taskID string) ([]*types.Session, error) {
	sessions, err := sm.records.ListSessionsByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("list sessions for task %s: %w", taskID, err)
	}
	for _, s := range sessions {
		if _, err := sm.heal(ctx, s); err != nil {
			return nil, err
		}
	}
	return sessions, nil
}

// heal marks a live session EXPIRED in place and in storage when its time
// box has elapsed.
func (sm *SessionManager) heal(ctx context.Context, session *types.Session) (bool, error) {
	if !session.IsExpiredAt(sm.now()) {
		return false, nil
	}

	session.Status = types.SessionExpired
	if err := sm.records.UpdateSession(ctx, session); err != nil {
		return false, fmt.Errorf("expire session %s: %w", session.ID, err)
	}

	sm.logger.InfoContext(ctx, "session expired",
		"session_id", session.ID,
		"task_id", session.TaskID,
		"expires_at", session.ExpiresAt)
	sm.emit(ctx, EventSessionExpired, session)
	return true, nil
}

func (sm *SessionManager) emit(ctx context.Context, eventType EventType, session *types.Session) {
	sm.metrics.IncSessionEvent(eventType)
	if sm.events == nil {
		return
	}
	snapshot := *session
	sm.events.Publish(ctx, Event{
		Type:       eventType,
		TaskID:     session.TaskID,
		AssigneeID: sm.assignee(ctx, session.TaskID),
		Session:    &snapshot,
		At:         sm.now(),
	})
}

func (sm *SessionManager) assignee(ctx context.Context, taskID string) string {
	if sm.tasks == nil {
		return ""
	}
	task, err := sm.tasks.GetTask(ctx, taskID)
	if err != nil {
		sm.logger.WarnContext(ctx, "session event without assignee", "task_id", taskID, "error", err)
		return ""
	}
	return task.AssignedToID
}

func pickActiveOrLatest(sessions []*types.Session, now time.Time) *types.Session {
	for _, s := range sessions {
		if s.IsActiveAt(now) {
			return s
		}
	}
	if len(sessions) > 0 {
		return sessions[0]
	}
	return nil
}

func validateViewerURL(viewerURL string) error {
	if viewerURL == "" {
		return fmt.Errorf("%w: viewer URL is required", types.ErrInvalidArgument)
	}
	u, err := url.Parse(viewerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: viewer URL must be an absolute http(s) URL", types.ErrInvalidArgument)
	}
	return nil
}
