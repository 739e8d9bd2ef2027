package config

import "testing"

func TestAllTools(t *testing.T) {
	tools := AllTools()
	expectedCount := 5
	if len(tools) != expectedCount {
		t.Errorf("Expected %d tools, got %d", expectedCount, len(tools))
	}

	expectedTools := map[string]bool{
		ToolTasksList:       true,
		ToolTasksGetDetail:  true,
		ToolTasksSetStatus:  true,
		ToolSessionsRequest: true,
		ToolStatusesList:    true,
	}

	for _, tool := range tools {
		if !expectedTools[tool] {
			t.Errorf("Unexpected tool: %s", tool)
		}
		delete(expectedTools, tool)
	}

	if len(expectedTools) > 0 {
		t.Errorf("Missing tools: %v", expectedTools)
	}
}

func TestToolConstants(t *testing.T) {
	tests := []struct {
		name     string
		constant string
		expected string
	}{
		{"TasksList", ToolTasksList, "tasks.list"},
		{"TasksGetDetail", ToolTasksGetDetail, "tasks.get_detail"},
		{"TasksSetStatus", ToolTasksSetStatus, "tasks.set_status"},
		{"SessionsRequest", ToolSessionsRequest, "sessions.request"},
		{"StatusesList", ToolStatusesList, "statuses.list"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if test.constant != test.expected {
				t.Errorf("Expected %s, got %s", test.expected, test.constant)
			}
		})
	}
}
