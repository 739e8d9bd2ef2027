package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/AltairaLabs/portalops/internal/types"
)

// CreateSession inserts a new session
func (s *Store) CreateSession(ctx context.Context, session *types.Session) error {
	if session == nil {
		return errSessionNil
	}
	if session.ID == "" || session.TaskID == "" {
		return errIDEmpty
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; exists {
		return fmt.Errorf("session with ID %s already exists", session.ID)
	}
	if session.IsLive() {
		if other := s.liveSessionLocked(session.TaskID, session.ID); other != "" {
			return fmt.Errorf("%w: task %s already has live session %s", types.ErrConflict, session.TaskID, other)
		}
	}

	s.seq++
	s.sessions[session.ID] = &storedSession{session: copySession(session), seq: s.seq}
	s.byTask[session.TaskID] = append(s.byTask[session.TaskID], session.ID)
	return nil
}

// GetSession retrieves a session by ID
func (s *Store) GetSession(ctx context.Context, sessionID string) (*types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, exists := s.sessions[sessionID]
	if !exists {
		return nil, fmt.Errorf("%w: session %s", types.ErrNotFound, sessionID)
	}

	sessionCopy := copySession(&stored.session)
	return &sessionCopy, nil
}

// UpdateSession replaces status, viewer URL, worker and close time
func (s *Store) UpdateSession(ctx context.Context, session *types.Session) error {
	if session == nil {
		return errSessionNil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.sessions[session.ID]
	if !exists {
		return fmt.Errorf("%w: session %s", types.ErrNotFound, session.ID)
	}

	updated := copySession(session)
	// identity and time box never change after creation
	updated.TaskID = stored.session.TaskID
	updated.CreatedAt = stored.session.CreatedAt
	updated.ExpiresAt = stored.session.ExpiresAt
	if updated.IsLive() {
		if other := s.liveSessionLocked(updated.TaskID, updated.ID); other != "" {
			return fmt.Errorf("%w: task %s already has live session %s", types.ErrConflict, updated.TaskID, other)
		}
	}
	stored.session = updated
	return nil
}

// liveSessionLocked returns the id of a live session of taskID other than
// except, or "". The caller holds s.mu.
func (s *Store) liveSessionLocked(taskID, except string) string {
	for _, id := range s.byTask[taskID] {
		if id == except {
			continue
		}
		if stored := s.sessions[id]; stored.session.IsLive() {
			return id
		}
	}
	return ""
}

// ListSessionsByTask returns a task's sessions, newest first
func (s *Store) ListSessionsByTask(ctx context.Context, taskID string) ([]*types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := make([]*storedSession, 0, len(s.byTask[taskID]))
	for _, id := range s.byTask[taskID] {
		stored = append(stored, s.sessions[id])
	}
	return sortNewestFirst(stored), nil
}

// ListLiveSessions returns every REQUESTED or ATTACHED session
func (s *Store) ListLiveSessions(ctx context.Context) ([]*types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := make([]*storedSession, 0)
	for _, ss := range s.sessions {
		if ss.session.IsLive() {
			stored = append(stored, ss)
		}
	}
	return sortNewestFirst(stored), nil
}

func sortNewestFirst(stored []*storedSession) []*types.Session {
	sort.Slice(stored, func(i, j int) bool {
		a, b := stored[i], stored[j]
		if !a.session.CreatedAt.Equal(b.session.CreatedAt) {
			return a.session.CreatedAt.After(b.session.CreatedAt)
		}
		return a.seq > b.seq
	})

	result := make([]*types.Session, 0, len(stored))
	for _, ss := range stored {
		sessionCopy := copySession(&ss.session)
		result = append(result, &sessionCopy)
	}
	return result
}

func copySession(session *types.Session) types.Session {
	sessionCopy := *session
	if session.ClosedAt != nil {
		closedAt := *session.ClosedAt
		sessionCopy.ClosedAt = &closedAt
	}
	return sessionCopy
}
