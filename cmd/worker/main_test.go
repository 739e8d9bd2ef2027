package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/AltairaLabs/portalops/internal/types"
	"github.com/AltairaLabs/portalops/internal/workerapi"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeClient struct {
	addr      string
	calls     []string
	workerID  string
	viewerURL string
	err       error
	closed    bool
}

func (f *fakeClient) session(id string, status types.SessionState) *types.Session {
	return &types.Session{ID: id, TaskID: "t1", Status: status, CreatedAt: t0, ExpiresAt: t0.Add(30 * time.Minute), ViewerURL: f.viewerURL, WorkerID: f.workerID}
}

func (f *fakeClient) AttachWorker(ctx context.Context, sessionID, viewerURL, workerID string) (*types.Session, error) {
	f.calls = append(f.calls, "attach:"+sessionID)
	f.viewerURL, f.workerID = viewerURL, workerID
	if f.err != nil {
		return nil, f.err
	}
	return f.session(sessionID, types.SessionAttached), nil
}

func (f *fakeClient) CloseSession(ctx context.Context, sessionID string) (*types.Session, error) {
	f.calls = append(f.calls, "close:"+sessionID)
	if f.err != nil {
		return nil, f.err
	}
	return f.session(sessionID, types.SessionClosed), nil
}

func (f *fakeClient) GetSession(ctx context.Context, sessionID string) (*types.Session, error) {
	f.calls = append(f.calls, "get:"+sessionID)
	if f.err != nil {
		return nil, f.err
	}
	return f.session(sessionID, types.SessionRequested), nil
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func execute(t *testing.T, client *fakeClient, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	dial := func(addr string, opts ...workerapi.ClientOption) (sessionClient, error) {
		client.addr = addr
		return client, nil
	}
	cmd := newRootCommand(dial, &out)
	cmd.SetArgs(args)
	cmd.SetErr(io.Discard)
	err := cmd.Execute()
	return out.String(), err
}

func TestAttachCommand(t *testing.T) {
	client := &fakeClient{}
	out, err := execute(t, client, "attach", "s1", "https://viewer.example.com/s1",
		"--worker-id", "w-9", "--coordinator", "coord:50051")
	if err != nil {
		t.Fatalf("attach failed: %v", err)
	}

	if client.addr != "coord:50051" {
		t.Errorf("Expected coordinator coord:50051, got %s", client.addr)
	}
	if client.workerID != "w-9" || client.viewerURL != "https://viewer.example.com/s1" {
		t.Errorf("Unexpected attach arguments: worker=%s url=%s", client.workerID, client.viewerURL)
	}
	if !client.closed {
		t.Error("Expected client to be closed")
	}

	var session types.Session
	if err := json.Unmarshal([]byte(out), &session); err != nil {
		t.Fatalf("Invalid output %q: %v", out, err)
	}
	if session.Status != types.SessionAttached {
		t.Errorf("Expected ATTACHED, got %s", session.Status)
	}
}

func TestCloseAndGetCommands(t *testing.T) {
	client := &fakeClient{}
	if _, err := execute(t, client, "close", "s1"); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if _, err := execute(t, client, "get", "s2"); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if strings.Join(client.calls, ",") != "close:s1,get:s2" {
		t.Errorf("Unexpected calls: %v", client.calls)
	}
	if client.addr != defaultCoordinatorAddr {
		t.Errorf("Expected default coordinator address, got %s", client.addr)
	}
}

func TestCommandErrors(t *testing.T) {
	client := &fakeClient{err: types.ErrExpired}
	_, err := execute(t, client, "attach", "s1", "https://viewer.example.com")
	if !errors.Is(err, types.ErrExpired) {
		t.Fatalf("Expected ErrExpired, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), types.KindExpired+":") {
		t.Errorf("Expected error kind prefix, got %q", err.Error())
	}

	if _, err := execute(t, &fakeClient{}, "attach", "s1"); err == nil {
		t.Error("Expected argument error")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("PORTALOPS_WORKER_COORDINATOR", "env-coord:1234")
	client := &fakeClient{}
	if _, err := execute(t, client, "get", "s1"); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if client.addr != "env-coord:1234" {
		t.Errorf("Expected env coordinator, got %s", client.addr)
	}
}

func TestRemaining(t *testing.T) {
	live := &types.Session{Status: types.SessionRequested, ExpiresAt: t0.Add(time.Minute)}
	if got := remaining(live, t0); got != time.Minute {
		t.Errorf("Expected 1m, got %v", got)
	}
	closed := &types.Session{Status: types.SessionClosed, ExpiresAt: t0.Add(time.Minute)}
	if got := remaining(closed, t0); got != 0 {
		t.Errorf("Expected 0, got %v", got)
	}
}
