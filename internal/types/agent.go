package types

const (
	// RoleAgent is the only role allowed to drive agent operations.
	RoleAgent = "AGENT"
	// RoleObserver may watch the event stream of every task. It cannot
	// call agent operations.
	RoleObserver = "OBSERVER"
)

// Agent is the authorization context resolved by a gateway from
// out-of-band identity and passed explicitly into every service call.
type Agent struct {
	ID   string
	Role string
}

// IsAgent reports whether the context carries an agent identity.
func (a Agent) IsAgent() bool {
	return a.ID != "" && a.Role == RoleAgent
}
