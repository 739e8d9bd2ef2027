package types

import "time"

// SessionState represents the lifecycle state of an automation session
type SessionState string

const (
	// SessionRequested indicates the session waits for a worker to attach
	SessionRequested SessionState = "REQUESTED"
	// SessionAttached indicates a worker supplied a live viewer channel
	SessionAttached SessionState = "ATTACHED"
	// SessionExpired indicates the session outlived its time box
	SessionExpired SessionState = "EXPIRED"
	// SessionClosed indicates an explicit close or a superseded session
	SessionClosed SessionState = "CLOSED"
)

// Session is a time-boxed automation/viewing channel for a task
type Session struct {
	ID        string       `json:"id"`
	TaskID    string       `json:"taskId"`
	Status    SessionState `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
	ExpiresAt time.Time    `json:"expiresAt"`
	ViewerURL string       `json:"viewerUrl,omitempty"`
	WorkerID  string       `json:"workerId,omitempty"`
	ClosedAt  *time.Time   `json:"closedAt,omitempty"`
}

// IsLive reports whether the stored state counts toward the
// one-active-session-per-task rule, ignoring the clock.
func (s *Session) IsLive() bool {
	return s.Status == SessionRequested || s.Status == SessionAttached
}

// IsExpiredAt reports whether a live session has outlived expiresAt at now.
func (s *Session) IsExpiredAt(now time.Time) bool {
	return s.IsLive() && now.After(s.ExpiresAt)
}

// IsActiveAt reports whether the session is live and unexpired at now.
func (s *Session) IsActiveAt(now time.Time) bool {
	return s.IsLive() && !now.After(s.ExpiresAt)
}
