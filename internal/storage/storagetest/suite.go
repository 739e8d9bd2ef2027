// Package storagetest holds a conformance suite every storage.Backend must
// pass.
package storagetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/portalops/internal/storage"
	"github.com/AltairaLabs/portalops/internal/types"
)

// Factory returns a fresh, empty backend for one subtest.
type Factory func(t *testing.T) storage.Backend

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// Run executes the conformance suite against backends from newBackend.
func Run(t *testing.T, newBackend Factory) {
	t.Run("TaskRoundTrip", func(t *testing.T) { testTaskRoundTrip(t, newBackend(t)) })
	t.Run("TaskNotFound", func(t *testing.T) { testTaskNotFound(t, newBackend(t)) })
	t.Run("ListTasksByAssignee", func(t *testing.T) { testListTasksByAssignee(t, newBackend(t)) })
	t.Run("CompareAndSwap", func(t *testing.T) { testCompareAndSwap(t, newBackend(t)) })
	t.Run("ConcurrentCompareAndSwap", func(t *testing.T) { testConcurrentCompareAndSwap(t, newBackend(t)) })
	t.Run("CasesAndAttachments", func(t *testing.T) { testCasesAndAttachments(t, newBackend(t)) })
	t.Run("SessionRoundTrip", func(t *testing.T) { testSessionRoundTrip(t, newBackend(t)) })
	t.Run("SessionsNewestFirst", func(t *testing.T) { testSessionsNewestFirst(t, newBackend(t)) })
	t.Run("ListLiveSessions", func(t *testing.T) { testListLiveSessions(t, newBackend(t)) })
	t.Run("OneLiveSessionPerTask", func(t *testing.T) { testOneLiveSessionPerTask(t, newBackend(t)) })
}

func newTask(id, agent string, status types.TaskStatus, updated time.Time) *types.Task {
	return &types.Task{
		ID:           id,
		CaseID:       "case-1",
		Type:         "form-fill",
		Title:        "Renew permit " + id,
		Status:       status,
		AssignedToID: agent,
		CreatedAt:    base,
		UpdatedAt:    updated,
	}
}

func testTaskRoundTrip(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	in := newTask("t1", "a1", types.StatusAssigned, base)
	require.NoError(t, b.CreateTask(ctx, in))

	got, err := b.GetTask(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "case-1", got.CaseID)
	assert.Equal(t, "form-fill", got.Type)
	assert.Equal(t, "Renew permit t1", got.Title)
	assert.Equal(t, types.StatusAssigned, got.Status)
	assert.Equal(t, "a1", got.AssignedToID)
	assert.True(t, got.UpdatedAt.Equal(base))
	assert.Equal(t, int64(1), got.Version)

	got.Status = types.StatusFailed
	again, err := b.GetTask(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusAssigned, again.Status, "returned task must be a copy")

	assert.Error(t, b.CreateTask(ctx, in), "duplicate id must be rejected")
}

func testTaskNotFound(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	_, err := b.GetTask(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = b.GetCase(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = b.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)

	err = b.CompareAndSwapTask(ctx, newTask("missing", "a1", types.StatusAssigned, base), 1)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func testListTasksByAssignee(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	require.NoError(t, b.CreateTask(ctx, newTask("t1", "a1", types.StatusAssigned, base)))
	require.NoError(t, b.CreateTask(ctx, newTask("t2", "a1", types.StatusInProgress, base.Add(2*time.Minute))))
	require.NoError(t, b.CreateTask(ctx, newTask("t3", "a1", types.StatusAssigned, base.Add(time.Minute))))
	require.NoError(t, b.CreateTask(ctx, newTask("t4", "a2", types.StatusAssigned, base.Add(time.Hour))))

	all, err := b.ListTasksByAssignee(ctx, "a1", nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"t2", "t3", "t1"}, taskIDs(all))

	assigned := types.StatusAssigned
	filtered, err := b.ListTasksByAssignee(ctx, "a1", &assigned)
	require.NoError(t, err)
	assert.Equal(t, []string{"t3", "t1"}, taskIDs(filtered))

	none, err := b.ListTasksByAssignee(ctx, "nobody", nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testCompareAndSwap(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	require.NoError(t, b.CreateTask(ctx, newTask("t1", "a1", types.StatusAssigned, base)))

	task, err := b.GetTask(ctx, "t1")
	require.NoError(t, err)

	task.Status = types.StatusInProgress
	task.UpdatedAt = base.Add(time.Minute)
	require.NoError(t, b.CompareAndSwapTask(ctx, task, 1))

	stale := *task
	stale.Status = types.StatusFailed
	err = b.CompareAndSwapTask(ctx, &stale, 1)
	assert.ErrorIs(t, err, types.ErrConflict)

	got, err := b.GetTask(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusInProgress, got.Status)
	assert.Equal(t, int64(2), got.Version)
	assert.True(t, got.UpdatedAt.Equal(base.Add(time.Minute)))
}

func testConcurrentCompareAndSwap(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	require.NoError(t, b.CreateTask(ctx, newTask("t1", "a1", types.StatusAssigned, base)))

	const writers = 8
	var wg sync.WaitGroup
	results := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task := newTask("t1", "a1", types.StatusInProgress, base.Add(time.Minute))
			results <- b.CompareAndSwapTask(ctx, task, 1)
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, types.ErrConflict)
	}
	assert.Equal(t, 1, wins, "exactly one writer may win a version")
}

func testCasesAndAttachments(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	c := &types.Case{ID: "case-1", State: "CA", Language: "en", DocType: "permit"}
	require.NoError(t, b.UpsertCase(ctx, c))

	c.State = "NY"
	require.NoError(t, b.UpsertCase(ctx, c))

	got, err := b.GetCase(ctx, "case-1")
	require.NoError(t, err)
	assert.Equal(t, "NY", got.State)
	assert.Equal(t, "permit", got.DocType)

	require.NoError(t, b.AddAttachment(ctx, &types.Attachment{ID: "f1", TaskID: "t1", FileName: "id.pdf", URL: "https://files/f1"}))
	require.NoError(t, b.AddAttachment(ctx, &types.Attachment{ID: "f2", TaskID: "t1", FileName: "proof.pdf"}))
	require.NoError(t, b.AddAttachment(ctx, &types.Attachment{ID: "f3", TaskID: "t2", FileName: "other.pdf"}))

	list, err := b.ListAttachments(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "id.pdf", list[0].FileName)
	assert.Equal(t, "https://files/f1", list[0].URL)
	assert.Equal(t, "proof.pdf", list[1].FileName)

	empty, err := b.ListAttachments(ctx, "none")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testSessionRoundTrip(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	s := &types.Session{
		ID:        "s1",
		TaskID:    "t1",
		Status:    types.SessionRequested,
		CreatedAt: base,
		ExpiresAt: base.Add(30 * time.Minute),
	}
	require.NoError(t, b.CreateSession(ctx, s))
	assert.Error(t, b.CreateSession(ctx, s), "duplicate id must be rejected")

	got, err := b.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, types.SessionRequested, got.Status)
	assert.True(t, got.ExpiresAt.Equal(base.Add(30*time.Minute)))
	assert.Empty(t, got.ViewerURL)
	assert.Nil(t, got.ClosedAt)

	closedAt := base.Add(5 * time.Minute)
	got.Status = types.SessionClosed
	got.ViewerURL = "https://viewer/x"
	got.WorkerID = "w1"
	got.ClosedAt = &closedAt
	require.NoError(t, b.UpdateSession(ctx, got))

	updated, err := b.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, types.SessionClosed, updated.Status)
	assert.Equal(t, "https://viewer/x", updated.ViewerURL)
	assert.Equal(t, "w1", updated.WorkerID)
	require.NotNil(t, updated.ClosedAt)
	assert.True(t, updated.ClosedAt.Equal(closedAt))

	err = b.UpdateSession(ctx, &types.Session{ID: "missing"})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func testSessionsNewestFirst(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	for i, id := range []string{"s1", "s2", "s3"} {
		require.NoError(t, b.CreateSession(ctx, &types.Session{
			ID:        id,
			TaskID:    "t1",
			Status:    types.SessionClosed,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			ExpiresAt: base.Add(time.Hour),
		}))
	}
	// same instant as s3: insertion order breaks the tie
	require.NoError(t, b.CreateSession(ctx, &types.Session{
		ID:        "s4",
		TaskID:    "t1",
		Status:    types.SessionRequested,
		CreatedAt: base.Add(2 * time.Minute),
		ExpiresAt: base.Add(time.Hour),
	}))
	require.NoError(t, b.CreateSession(ctx, &types.Session{
		ID:        "other",
		TaskID:    "t2",
		Status:    types.SessionRequested,
		CreatedAt: base,
		ExpiresAt: base.Add(time.Hour),
	}))

	list, err := b.ListSessionsByTask(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s4", "s3", "s2", "s1"}, sessionIDs(list))
}

func testListLiveSessions(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	states := map[string]types.SessionState{
		"s1": types.SessionRequested,
		"s2": types.SessionAttached,
		"s3": types.SessionExpired,
		"s4": types.SessionClosed,
	}
	for id, state := range states {
		require.NoError(t, b.CreateSession(ctx, &types.Session{
			ID:        id,
			TaskID:    "task-" + id,
			Status:    state,
			CreatedAt: base,
			ExpiresAt: base.Add(time.Hour),
		}))
	}

	live, err := b.ListLiveSessions(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s1", "s2"}, sessionIDs(live))
}

func testOneLiveSessionPerTask(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	live := func(id string) *types.Session {
		return &types.Session{
			ID:        id,
			TaskID:    "t1",
			Status:    types.SessionRequested,
			CreatedAt: base,
			ExpiresAt: base.Add(time.Hour),
		}
	}

	require.NoError(t, b.CreateSession(ctx, live("s1")))
	err := b.CreateSession(ctx, live("s2"))
	assert.ErrorIs(t, err, types.ErrConflict)

	other := live("s3")
	other.TaskID = "t2"
	require.NoError(t, b.CreateSession(ctx, other), "other tasks are independent")

	first, err := b.GetSession(ctx, "s1")
	require.NoError(t, err)
	first.Status = types.SessionExpired
	require.NoError(t, b.UpdateSession(ctx, first))
	require.NoError(t, b.CreateSession(ctx, live("s2")))

	first.Status = types.SessionAttached
	assert.ErrorIs(t, b.UpdateSession(ctx, first), types.ErrConflict, "reviving s1 would leave two live sessions")

	list, err := b.ListSessionsByTask(ctx, "t1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s1", "s2"}, sessionIDs(list))
}

func taskIDs(tasks []*types.Task) []string {
	ids := make([]string, 0, len(tasks))
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}
	return ids
}

func sessionIDs(sessions []*types.Session) []string {
	ids := make([]string, 0, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.ID)
	}
	return ids
}
