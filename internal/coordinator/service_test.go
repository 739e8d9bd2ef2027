package coordinator

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/AltairaLabs/portalops/internal/types"
)

var (
	agentOne = types.Agent{ID: "a1", Role: types.RoleAgent}
	agentTwo = types.Agent{ID: "a2", Role: types.RoleAgent}
)

func newTestService(t *testing.T, f *fixture, opts ...ServiceOption) *TaskService {
	t.Helper()
	opts = append([]ServiceOption{
		WithEvents(f.events),
		WithServiceClock(f.clock.Now),
		WithServiceLogger(discardLogger()),
	}, opts...)
	return NewTaskService(f.tasks, f.sessions, opts...)
}

func TestTaskService_ScenarioWalkthrough(t *testing.T) {
	f := newFixture(t)
	f.addTask(t, "t1", "a1", types.StatusAssigned)
	svc := newTestService(t, f)
	ctx := context.Background()

	task, err := svc.SetStatus(ctx, agentOne, "t1", types.StatusInProgress)
	if err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	if task.Status != types.StatusInProgress {
		t.Errorf("Expected IN_PROGRESS, got %s", task.Status)
	}

	task, err = svc.SetStatus(ctx, agentOne, "t1", types.StatusSubmitted)
	if err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	if task.Status != types.StatusSubmitted {
		t.Errorf("Expected SUBMITTED, got %s", task.Status)
	}

	if _, err := svc.SetStatus(ctx, agentTwo, "t1", types.StatusCompleted); !errors.Is(err, types.ErrForbidden) {
		t.Errorf("Expected ErrForbidden for another agent, got %v", err)
	}

	if _, err := svc.SetStatus(ctx, agentOne, "t1", types.StatusCompleted); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	if _, err := svc.SetStatus(ctx, agentOne, "t1", types.StatusInProgress); !errors.Is(err, types.ErrTerminalState) {
		t.Errorf("Expected ErrTerminalState, got %v", err)
	}
}

func TestTaskService_SelfTransitionRefreshesUpdatedAt(t *testing.T) {
	f := newFixture(t)
	f.addTask(t, "t1", "a1", types.StatusInProgress)
	svc := newTestService(t, f)
	f.clock.Advance(time.Minute)

	task, err := svc.SetStatus(context.Background(), agentOne, "t1", types.StatusInProgress)
	if err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	if task.Status != types.StatusInProgress {
		t.Errorf("Expected IN_PROGRESS, got %s", task.Status)
	}
	if !task.UpdatedAt.Equal(t0.Add(time.Minute)) {
		t.Errorf("Expected updatedAt refreshed, got %v", task.UpdatedAt)
	}
}

func TestTaskService_ForbiddenBeatsValidity(t *testing.T) {
	f := newFixture(t)
	f.addTask(t, "t1", "a1", types.StatusCompleted)
	f.addTask(t, "t2", "", types.StatusAssigned)
	svc := newTestService(t, f)
	ctx := context.Background()

	for _, status := range []types.TaskStatus{types.StatusInProgress, types.StatusCompleted, "BOGUS"} {
		if _, err := svc.SetStatus(ctx, agentTwo, "t1", status); !errors.Is(err, types.ErrForbidden) {
			t.Errorf("SetStatus(%s): expected ErrForbidden, got %v", status, err)
		}
	}
	if _, err := svc.GetTaskDetail(ctx, agentTwo, "t1"); !errors.Is(err, types.ErrForbidden) {
		t.Errorf("GetTaskDetail: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.StartSession(ctx, agentTwo, "t1"); !errors.Is(err, types.ErrForbidden) {
		t.Errorf("StartSession: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.StartSession(ctx, agentOne, "t2"); !errors.Is(err, types.ErrForbidden) {
		t.Errorf("StartSession on unassigned task: expected ErrForbidden, got %v", err)
	}
}

func TestTaskService_RoleChecks(t *testing.T) {
	f := newFixture(t)
	f.addTask(t, "t1", "a1", types.StatusAssigned)
	svc := newTestService(t, f)
	ctx := context.Background()

	admin := types.Agent{ID: "a1", Role: "ADMIN"}
	if _, err := svc.ListTasks(ctx, admin, nil); !errors.Is(err, types.ErrForbidden) {
		t.Errorf("Expected ErrForbidden for non-agent role, got %v", err)
	}
	if _, err := svc.SetStatus(ctx, admin, "t1", types.StatusInProgress); !errors.Is(err, types.ErrForbidden) {
		t.Errorf("Expected ErrForbidden for non-agent role, got %v", err)
	}
	if _, err := svc.ListTasks(ctx, types.Agent{}, nil); !errors.Is(err, types.ErrUnauthenticated) {
		t.Errorf("Expected ErrUnauthenticated for missing identity, got %v", err)
	}
}

func TestTaskService_ListTasks(t *testing.T) {
	f := newFixture(t)
	f.addTask(t, "t1", "a1", types.StatusAssigned)
	f.addTask(t, "t2", "a1", types.StatusInProgress)
	f.addTask(t, "t3", "a2", types.StatusAssigned)
	svc := newTestService(t, f)
	ctx := context.Background()

	f.clock.Advance(time.Minute)
	if _, err := svc.SetStatus(ctx, agentOne, "t1", types.StatusInProgress); err != nil {
		t.Fatal(err)
	}

	tasks, err := svc.ListTasks(ctx, agentOne, nil)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 2 || tasks[0].ID != "t1" {
		t.Errorf("Expected t1 first (most recently updated), got %v", tasks)
	}

	assigned := types.StatusAssigned
	tasks, err = svc.ListTasks(ctx, agentOne, &assigned)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("Expected no ASSIGNED tasks left, got %v", tasks)
	}
}

func TestTaskService_GetTaskDetail(t *testing.T) {
	f := newFixture(t)
	f.addTask(t, "t1", "a1", types.StatusInProgress)
	svc := newTestService(t, f)
	ctx := context.Background()

	if err := f.records.AddAttachment(ctx, &types.Attachment{ID: "f1", TaskID: "t1", FileName: "id.pdf"}); err != nil {
		t.Fatal(err)
	}

	old, _ := f.sessions.RequestSession(ctx, "t1")
	_, _ = f.sessions.CloseSession(ctx, old.ID)
	f.clock.Advance(time.Minute)
	active, _ := svc.StartSession(ctx, agentOne, "t1")

	detail, err := svc.GetTaskDetail(ctx, agentOne, "t1")
	if err != nil {
		t.Fatalf("GetTaskDetail failed: %v", err)
	}
	if detail.Task.ID != "t1" {
		t.Errorf("Expected task t1, got %s", detail.Task.ID)
	}
	if detail.Case.DocType != "permit" {
		t.Errorf("Expected case docType permit, got %s", detail.Case.DocType)
	}
	if len(detail.Attachments) != 1 {
		t.Errorf("Expected 1 attachment, got %d", len(detail.Attachments))
	}
	if len(detail.Sessions) != 2 {
		t.Fatalf("Expected 2 sessions, got %d", len(detail.Sessions))
	}
	if detail.Sessions[0].ID != active.ID {
		t.Errorf("Expected active session first, got %s", detail.Sessions[0].ID)
	}

	if _, err := svc.GetTaskDetail(ctx, agentOne, "missing"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestTaskService_StartSessionIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.addTask(t, "t1", "a1", types.StatusInProgress)
	svc := newTestService(t, f)
	ctx := context.Background()

	first, err := svc.StartSession(ctx, agentOne, "t1")
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	second, err := svc.StartSession(ctx, agentOne, "t1")
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("Expected same session, got %s and %s", first.ID, second.ID)
	}
}

func TestTaskService_PublishesAuditsAndCounts(t *testing.T) {
	f := newFixture(t)
	f.addTask(t, "t1", "a1", types.StatusAssigned)

	var buf bytes.Buffer
	audit := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	metrics := MustNewMetrics(prometheus.NewRegistry())
	svc := newTestService(t, f, WithAudit(audit), WithMetrics(metrics))
	ctx := context.Background()

	if _, err := svc.SetStatus(ctx, agentOne, "t1", types.StatusInProgress); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SetStatus(ctx, agentOne, "t1", types.StatusAssigned); err == nil {
		t.Fatal("Expected invalid transition")
	}

	events := f.events.Types()
	if len(events) != 1 || events[0] != EventTaskStatusChanged {
		t.Errorf("Expected one status event, got %v", events)
	}
	if from := f.events.events[0].From; from != types.StatusAssigned {
		t.Errorf("Expected event from ASSIGNED, got %s", from)
	}
	if assignee := f.events.events[0].AssigneeID; assignee != "a1" {
		t.Errorf("Expected event assignee a1, got %q", assignee)
	}
	if at := f.events.events[0].At; !at.Equal(t0) {
		t.Errorf("Expected event stamped by the service clock at %v, got %v", t0, at)
	}

	if got := testutil.ToFloat64(metrics.transitions.WithLabelValues("ASSIGNED", "IN_PROGRESS")); got != 1 {
		t.Errorf("Expected 1 transition counted, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.operations.WithLabelValues(OpSetStatus, types.KindInvalidTransition)); got != 1 {
		t.Errorf("Expected 1 invalid transition counted, got %v", got)
	}

	logs := buf.String()
	for _, want := range []string{`"msg":"task_call"`, `"msg":"task_result"`, `"msg":"task_error"`, `"error_kind":"InvalidTransition"`} {
		if !strings.Contains(logs, want) {
			t.Errorf("Expected audit log to contain %s", want)
		}
	}
}

func TestTaskService_Statuses(t *testing.T) {
	f := newFixture(t)
	svc := newTestService(t, f)

	statuses := svc.Statuses()
	if len(statuses) != len(types.AllStatuses) {
		t.Fatalf("Expected %d statuses, got %d", len(types.AllStatuses), len(statuses))
	}
	if statuses[0].Status != types.StatusAssigned {
		t.Errorf("Expected ASSIGNED first, got %s", statuses[0].Status)
	}
}

func TestOrderActiveFirst(t *testing.T) {
	active := &types.Session{ID: "older", Status: types.SessionRequested, CreatedAt: t0, ExpiresAt: t0.Add(30 * time.Minute)}
	closed := &types.Session{ID: "newer", Status: types.SessionClosed, CreatedAt: t0.Add(time.Minute), ExpiresAt: t0.Add(31 * time.Minute)}
	history := []*types.Session{closed, active}

	tests := []struct {
		name string
		now  time.Time
		want []string
	}{
		{"active session first", t0.Add(10 * time.Minute), []string{"older", "newer"}},
		{"latest first once nothing is active", t0.Add(40 * time.Minute), []string{"newer", "older"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ordered := orderActiveFirst(history, tt.now)
			if len(ordered) != len(tt.want) {
				t.Fatalf("Expected %d sessions, got %d", len(tt.want), len(ordered))
			}
			for i, id := range tt.want {
				if ordered[i].ID != id {
					t.Errorf("Expected %s at %d, got %s", id, i, ordered[i].ID)
				}
			}
		})
	}

	if ordered := orderActiveFirst(nil, t0); len(ordered) != 0 {
		t.Errorf("Expected empty history, got %v", ordered)
	}
}
