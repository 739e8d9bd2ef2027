package coordinator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/AltairaLabs/portalops/internal/storage/memory"
	"github.com/AltairaLabs/portalops/internal/taskstore"
	"github.com/AltairaLabs/portalops/internal/types"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: t0}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sequentialIDs struct {
	mu sync.Mutex
	n  int
}

func (s *sequentialIDs) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("session-%d", s.n)
}

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingPublisher) Publish(_ context.Context, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingPublisher) Types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	records  *memory.Store
	clock    *fakeClock
	events   *recordingPublisher
	sessions *SessionManager
	tasks    *taskstore.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		records: memory.New(),
		clock:   newFakeClock(),
		events:  &recordingPublisher{},
	}
	ids := &sequentialIDs{}
	f.tasks = taskstore.New(f.records, taskstore.WithClock(f.clock.Now), taskstore.WithLogger(discardLogger()))
	f.sessions = NewSessionManager(f.records,
		WithSessionTTL(30*time.Minute),
		WithSessionClock(f.clock.Now),
		WithSessionIDs(ids.Next),
		WithSessionEvents(f.events),
		WithSessionTasks(f.tasks),
		WithSessionLogger(discardLogger()),
	)
	return f
}

func (f *fixture) addTask(t *testing.T, id, agent string, status types.TaskStatus) {
	t.Helper()
	ctx := context.Background()
	if err := f.records.UpsertCase(ctx, &types.Case{ID: "case-1", State: "CA", Language: "en", DocType: "permit"}); err != nil {
		t.Fatal(err)
	}
	err := f.records.CreateTask(ctx, &types.Task{
		ID: id, CaseID: "case-1", Type: "form-fill", Status: status,
		AssignedToID: agent, CreatedAt: t0, UpdatedAt: t0,
	})
	if err != nil {
		t.Fatal(err)
	}
}
