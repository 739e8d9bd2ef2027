package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AltairaLabs/portalops/internal/coordinator/config"
	"github.com/AltairaLabs/portalops/internal/taskstatus"
	"github.com/AltairaLabs/portalops/internal/taskstore"
	"github.com/AltairaLabs/portalops/internal/types"
)

const tracerName = "github.com/AltairaLabs/portalops/internal/coordinator"

// Operation names used in audit entries, spans and metrics
const (
	OpGetTaskDetail = "get_task_detail"
	OpListTasks     = "list_tasks"
	OpSetStatus     = "set_status"
	OpStartSession  = "start_session"
)

// TaskService is the single entry point agents use. Every call takes the
// resolved agent explicitly; nothing is read from ambient state.
type TaskService struct {
	tasks    *taskstore.Store
	sessions *SessionManager
	audit    *AuditLogger
	metrics  *Metrics
	events   EventPublisher
	tracer   trace.Tracer
	logger   *slog.Logger
	now      func() time.Time
}

// ServiceOption configures a TaskService
type ServiceOption func(*TaskService)

// WithAudit sets the audit logger
func WithAudit(audit *AuditLogger) ServiceOption {
	return func(s *TaskService) { s.audit = audit }
}

// WithMetrics sets the metrics sink
func WithMetrics(m *Metrics) ServiceOption {
	return func(s *TaskService) { s.metrics = m }
}

// WithEvents publishes task events to p
func WithEvents(p EventPublisher) ServiceOption {
	return func(s *TaskService) { s.events = p }
}

// WithTracer overrides the tracer taken from the global provider
func WithTracer(tracer trace.Tracer) ServiceOption {
	return func(s *TaskService) { s.tracer = tracer }
}

// WithServiceClock overrides the time source. Pass the same clock as the
// session manager so both agree on which session is active.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *TaskService) { s.now = now }
}

// WithServiceLogger sets the service logger
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *TaskService) { s.logger = logger }
}

// NewTaskService wires the task store and session manager behind one façade
func NewTaskService(tasks *taskstore.Store, sessions *SessionManager, opts ...ServiceOption) *TaskService {
	s := &TaskService{
		tasks:    tasks,
		sessions: sessions,
		tracer:   otel.Tracer(tracerName),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetTaskDetail returns the task with its case, attachments and session
// history. The active-or-latest session comes first, the rest newest first.
func (s *TaskService) GetTaskDetail(ctx context.Context, agent types.Agent, taskID string) (detail *types.TaskDetail, err error) {
	ctx, done := s.begin(ctx, OpGetTaskDetail, agent, taskID, nil)
	defer func() { done(err, "") }()

	task, err := s.authorizeTask(ctx, agent, taskID)
	if err != nil {
		return nil, err
	}

	summary, err := s.tasks.GetCaseSummary(ctx, task.CaseID)
	if err != nil {
		return nil, fmt.Errorf("case for task %s: %w", taskID, err)
	}

	attachments, err := s.tasks.ListAttachments(ctx, taskID)
	if err != nil {
		return nil, err
	}

	history, err := s.sessions.ListSessions(ctx, taskID)
	if err != nil {
		return nil, err
	}

	detail = &types.TaskDetail{
		Task:        *task,
		Case:        *summary,
		Attachments: make([]types.Attachment, 0, len(attachments)),
		Sessions:    make([]types.Session, 0, len(history)),
	}
	for _, a := range attachments {
		detail.Attachments = append(detail.Attachments, *a)
	}
	for _, session := range orderActiveFirst(history, s.now()) {
		detail.Sessions = append(detail.Sessions, *session)
	}
	return detail, nil
}

// ListTasks returns the agent's tasks, most recently updated first
func (s *TaskService) ListTasks(ctx context.Context, agent types.Agent, statusFilter *types.TaskStatus) (tasks []*types.Task, err error) {
	args := map[string]interface{}{}
	if statusFilter != nil {
		args["status"] = string(*statusFilter)
	}
	ctx, done := s.begin(ctx, OpListTasks, agent, "", args)
	defer func() { done(err, "") }()

	if err := authorizeAgent(agent); err != nil {
		return nil, err
	}
	return s.tasks.ListTasksForAgent(ctx, agent.ID, statusFilter)
}

// SetStatus moves one of the agent's tasks to newStatus
func (s *TaskService) SetStatus(
	ctx context.Context,
	agent types.Agent,
	taskID string,
	newStatus types.TaskStatus,
) (task *types.Task, err error) {
	ctx, done := s.begin(ctx, OpSetStatus, agent, taskID, map[string]interface{}{"status": string(newStatus)})
	defer func() { done(err, "") }()

	if err := authorizeAgent(agent); err != nil {
		return nil, err
	}

	change, err := s.tasks.Transition(ctx, taskID, newStatus, agent.ID)
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition(string(change.From), string(change.Task.Status))
	if s.events != nil {
		snapshot := *change.Task
		s.events.Publish(ctx, Event{
			Type:       EventTaskStatusChanged,
			TaskID:     taskID,
			AgentID:    agent.ID,
			AssigneeID: snapshot.AssignedToID,
			From:       change.From,
			Task:       &snapshot,
			At:         s.now(),
		})
	}
	return change.Task, nil
}

// StartSession returns the task's active session or requests a new one
func (s *TaskService) StartSession(ctx context.Context, agent types.Agent, taskID string) (session *types.Session, err error) {
	ctx, done := s.begin(ctx, OpStartSession, agent, taskID, nil)
	defer func() {
		sessionID := ""
		if session != nil {
			sessionID = session.ID
		}
		done(err, sessionID)
	}()

	if _, err := s.authorizeTask(ctx, agent, taskID); err != nil {
		return nil, err
	}
	return s.sessions.RequestSession(ctx, taskID)
}

// Statuses returns the transition table clients render their actions from
func (s *TaskService) Statuses() []taskstatus.StatusInfo {
	return taskstatus.Describe()
}

func authorizeAgent(agent types.Agent) error {
	if agent.ID == "" {
		return fmt.Errorf("%w: %s", types.ErrUnauthenticated, config.ErrMissingIdentity)
	}
	if !agent.IsAgent() {
		return fmt.Errorf("%w: %s", types.ErrForbidden, config.ErrAgentRoleRequired)
	}
	return nil
}

func (s *TaskService) authorizeTask(ctx context.Context, agent types.Agent, taskID string) (*types.Task, error) {
	if err := authorizeAgent(agent); err != nil {
		return nil, err
	}
	task, err := s.tasks.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.AssignedToID == "" || task.AssignedToID != agent.ID {
		return nil, fmt.Errorf("%w: %s", types.ErrForbidden, config.ErrTaskNotAssigned)
	}
	return task, nil
}

// begin opens the span and audit entry for one operation. The returned
// func closes both and records metrics.
func (s *TaskService) begin(
	ctx context.Context,
	op string,
	agent types.Agent,
	taskID string,
	args map[string]interface{},
) (context.Context, func(err error, sessionID string)) {
	ctx, span := s.tracer.Start(ctx, "TaskService."+op,
		trace.WithAttributes(
			attribute.String("agent.id", agent.ID),
			attribute.String("task.id", taskID),
		))
	start := s.now()

	entry := &AuditEntry{
		Timestamp: start,
		AgentID:   agent.ID,
		AgentRole: agent.Role,
		Operation: op,
		TaskID:    taskID,
		Arguments: args,
	}
	if sc := span.SpanContext(); sc.HasTraceID() {
		entry.TraceID = sc.TraceID().String()
	}
	s.audit.LogCall(ctx, entry)

	return ctx, func(err error, sessionID string) {
		defer span.End()

		entry.Duration = s.now().Sub(start)
		entry.SessionID = sessionID
		result := "ok"
		if err != nil {
			result = types.KindOf(err)
			entry.ErrorKind = result
			entry.ErrorMsg = err.Error()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.String("result", result))
		s.audit.LogResult(ctx, entry)
		s.metrics.ObserveOperation(op, result, entry.Duration)
	}
}

func orderActiveFirst(history []*types.Session, now time.Time) []*types.Session {
	first := pickActiveOrLatest(history, now)
	if first == nil {
		return history
	}
	ordered := make([]*types.Session, 0, len(history))
	ordered = append(ordered, first)
	for _, session := range history {
		if session != first {
			ordered = append(ordered, session)
		}
	}
	return ordered
}
