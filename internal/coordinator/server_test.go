package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AltairaLabs/portalops/internal/coordinator/config"
	"github.com/AltairaLabs/portalops/internal/identity"
	"github.com/AltairaLabs/portalops/internal/types"
)

type toolCallResponse struct {
	Result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestMCPServer(t *testing.T) (*MCPServer, *fixture) {
	t.Helper()
	f := newFixture(t)
	f.addTask(t, "t1", "a1", types.StatusAssigned)
	ms, err := NewMCPServer(Config{Name: "portalops-test", Version: "test"}, newTestService(t, f), discardLogger())
	if err != nil {
		t.Fatalf("NewMCPServer failed: %v", err)
	}
	return ms, f
}

func callTool(t *testing.T, ms *MCPServer, ctx context.Context, name string, args map[string]interface{}) toolCallResponse {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]interface{}{
			"name":      name,
			"arguments": args,
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	out, err := json.Marshal(ms.HandleMessage(ctx, raw))
	if err != nil {
		t.Fatal(err)
	}
	var resp toolCallResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatalf("Invalid response %s: %v", out, err)
	}
	if resp.Error != nil {
		t.Fatalf("JSON-RPC error: %s", resp.Error.Message)
	}
	if len(resp.Result.Content) == 0 {
		t.Fatalf("Empty tool result: %s", out)
	}
	return resp
}

func TestNewMCPServer_RegistersTools(t *testing.T) {
	ms, _ := newTestMCPServer(t)

	names := ms.ToolNames()
	if len(names) != len(config.AllTools()) {
		t.Fatalf("Expected %d tools, got %v", len(config.AllTools()), names)
	}
	for i, name := range config.AllTools() {
		if names[i] != name {
			t.Errorf("Expected tool %d to be %s, got %s", i, name, names[i])
		}
	}

	listed := ms.server.ListTools()
	for _, name := range config.AllTools() {
		if _, ok := listed[name]; !ok {
			t.Errorf("Tool %s not registered with mcp server", name)
		}
	}
}

func TestMCPServer_ToolFlow(t *testing.T) {
	ms, f := newTestMCPServer(t)
	ctx := identity.WithAgent(context.Background(), agentOne)

	resp := callTool(t, ms, ctx, config.ToolTasksSetStatus, map[string]interface{}{
		"task_id": "t1",
		"status":  "IN_PROGRESS",
	})
	if resp.Result.IsError {
		t.Fatalf("set_status failed: %s", resp.Result.Content[0].Text)
	}

	resp = callTool(t, ms, ctx, config.ToolSessionsRequest, map[string]interface{}{"task_id": "t1"})
	if resp.Result.IsError {
		t.Fatalf("sessions.request failed: %s", resp.Result.Content[0].Text)
	}
	if !strings.Contains(resp.Result.Content[0].Text, `"status": "REQUESTED"`) {
		t.Errorf("Expected a REQUESTED session, got %s", resp.Result.Content[0].Text)
	}

	resp = callTool(t, ms, ctx, config.ToolTasksGetDetail, map[string]interface{}{"task_id": "t1"})
	var detail types.TaskDetail
	if err := json.Unmarshal([]byte(resp.Result.Content[0].Text), &detail); err != nil {
		t.Fatalf("Invalid detail JSON: %v", err)
	}
	if detail.Task.Status != types.StatusInProgress {
		t.Errorf("Expected IN_PROGRESS, got %s", detail.Task.Status)
	}
	if len(detail.Sessions) != 1 || detail.Sessions[0].ID != "session-1" {
		t.Errorf("Expected session-1 in detail, got %+v", detail.Sessions)
	}
	if detail.Case.DocType != "permit" {
		t.Errorf("Expected case doc type permit, got %q", detail.Case.DocType)
	}

	stored, _ := f.records.GetTask(context.Background(), "t1")
	if stored.Status != types.StatusInProgress {
		t.Errorf("Expected stored IN_PROGRESS, got %s", stored.Status)
	}
}

func TestMCPServer_ToolErrors(t *testing.T) {
	ms, _ := newTestMCPServer(t)

	tests := []struct {
		name     string
		ctx      context.Context
		tool     string
		args     map[string]interface{}
		wantKind string
	}{
		{"no identity", context.Background(), config.ToolTasksList, nil, types.KindUnauthenticated},
		{"other agent", identity.WithAgent(context.Background(), agentTwo), config.ToolTasksGetDetail,
			map[string]interface{}{"task_id": "t1"}, types.KindForbidden},
		{"wrong role", identity.WithAgent(context.Background(), types.Agent{ID: "a1", Role: "ADMIN"}), config.ToolTasksList,
			nil, types.KindForbidden},
		{"illegal edge", identity.WithAgent(context.Background(), agentOne), config.ToolTasksSetStatus,
			map[string]interface{}{"task_id": "t1", "status": "COMPLETED"}, types.KindInvalidTransition},
		{"unknown task", identity.WithAgent(context.Background(), agentOne), config.ToolSessionsRequest,
			map[string]interface{}{"task_id": "missing"}, types.KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, ms, tt.ctx, tt.tool, tt.args)
			if !resp.Result.IsError {
				t.Fatalf("Expected tool error, got %s", resp.Result.Content[0].Text)
			}
			if !strings.HasPrefix(resp.Result.Content[0].Text, tt.wantKind+":") {
				t.Errorf("Expected %s error, got %s", tt.wantKind, resp.Result.Content[0].Text)
			}
		})
	}
}

func TestMCPServer_StatusesList(t *testing.T) {
	ms, _ := newTestMCPServer(t)

	resp := callTool(t, ms, context.Background(), config.ToolStatusesList, nil)
	if resp.Result.IsError {
		t.Fatalf("statuses.list failed: %s", resp.Result.Content[0].Text)
	}
	for _, s := range types.AllStatuses {
		if !strings.Contains(resp.Result.Content[0].Text, fmt.Sprintf("%q", s)) {
			t.Errorf("Expected %s in statuses listing", s)
		}
	}
}

func TestMCPServer_SSEHandler(t *testing.T) {
	ms, _ := newTestMCPServer(t)

	handler := ms.SSEHandler("http://localhost")
	if handler == nil {
		t.Fatal("Expected SSE handler")
	}
	if again := ms.SSEHandler("http://other"); again != handler {
		t.Error("Expected SSEHandler to reuse the transport")
	}

	req := httptest.NewRequest(http.MethodGet, "/mcp/unknown", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown path, got %d", rec.Code)
	}

	if err := ms.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestMCPServer_ShutdownWithoutSSE(t *testing.T) {
	ms, _ := newTestMCPServer(t)
	if err := ms.Shutdown(context.Background()); err != nil {
		t.Errorf("Expected nil, got %v", err)
	}
}

func TestMCPServer_ServeSSEAfterShutdown(t *testing.T) {
	ms, _ := newTestMCPServer(t)
	if err := ms.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if err := ms.ServeSSE("127.0.0.1:0"); err != nil {
		t.Errorf("Expected nil after shutdown, got %v", err)
	}
}

func TestMCPServer_ServeSSEStopsOnShutdown(t *testing.T) {
	ms, _ := newTestMCPServer(t)

	errCh := make(chan error, 1)
	go func() {
		errCh <- ms.ServeSSE("127.0.0.1:0")
	}()

	// Shutdown may land before or after the listener starts; both must end ServeSSE
	time.Sleep(20 * time.Millisecond)
	if err := ms.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Expected nil, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ServeSSE did not return after Shutdown")
	}
}
