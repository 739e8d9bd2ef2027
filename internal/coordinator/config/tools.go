package config

// Tool defines the available tools in the coordinator
const (
	// ToolTasksList lists the calling agent's tasks
	ToolTasksList = "tasks.list"
	// ToolTasksGetDetail returns one task with case, attachments and sessions
	ToolTasksGetDetail = "tasks.get_detail"
	// ToolTasksSetStatus moves a task through its lifecycle
	ToolTasksSetStatus = "tasks.set_status"
	// ToolSessionsRequest starts or returns an automation session
	ToolSessionsRequest = "sessions.request"
	// ToolStatusesList returns the task status transition table
	ToolStatusesList = "statuses.list"
)

// AllTools returns a slice of all available tool names
func AllTools() []string {
	return []string{
		ToolTasksList,
		ToolTasksGetDetail,
		ToolTasksSetStatus,
		ToolSessionsRequest,
		ToolStatusesList,
	}
}
