package coordinator

import (
	"context"
	"log/slog"
	"time"
)

// AuditEntry represents a logged event for provenance tracking
type AuditEntry struct {
	Timestamp time.Time
	AgentID   string
	AgentRole string
	Operation string
	TaskID    string
	SessionID string
	Arguments map[string]interface{}
	ErrorKind string
	ErrorMsg  string
	Duration  time.Duration
	TraceID   string
}

// AuditLogger handles audit logging for task service calls
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogCall logs an operation invocation with all relevant context
func (al *AuditLogger) LogCall(ctx context.Context, entry *AuditEntry) {
	if al == nil {
		return
	}
	al.logger.InfoContext(ctx, "task_call",
		"agent_id", entry.AgentID,
		"agent_role", entry.AgentRole,
		"operation", entry.Operation,
		"task_id", entry.TaskID,
		"arguments", entry.Arguments,
		"trace_id", entry.TraceID,
		"timestamp", entry.Timestamp,
	)
}

// LogResult logs an operation outcome
func (al *AuditLogger) LogResult(ctx context.Context, entry *AuditEntry) {
	if al == nil {
		return
	}
	if entry.ErrorMsg != "" {
		al.logger.WarnContext(ctx, "task_error",
			"agent_id", entry.AgentID,
			"operation", entry.Operation,
			"task_id", entry.TaskID,
			"error_kind", entry.ErrorKind,
			"error", entry.ErrorMsg,
			"duration_ms", entry.Duration.Milliseconds(),
			"trace_id", entry.TraceID,
		)
		return
	}
	al.logger.InfoContext(ctx, "task_result",
		"agent_id", entry.AgentID,
		"operation", entry.Operation,
		"task_id", entry.TaskID,
		"session_id", entry.SessionID,
		"duration_ms", entry.Duration.Milliseconds(),
		"trace_id", entry.TraceID,
	)
}
