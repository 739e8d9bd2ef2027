package config

// Messages used throughout the coordinator
const (
	// ErrMissingIdentity is returned when a request carries no agent identity
	ErrMissingIdentity = "missing agent identity"
	// ErrAgentRoleRequired is returned when the caller is not an agent
	ErrAgentRoleRequired = "agent role required"
	// ErrTaskNotAssigned is returned when a task belongs to another agent
	ErrTaskNotAssigned = "task is not assigned to this agent"
	// MsgSessionAttached is the format string for worker attach acknowledgements
	MsgSessionAttached = "Session %s attached by worker %s"
)
