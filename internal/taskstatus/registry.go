// Package taskstatus holds the task lifecycle as an explicit edge set.
// Validation and every client-facing enumeration read the same table, so
// what a client offers and what the coordinator accepts cannot drift.
package taskstatus

import (
	"fmt"

	"github.com/AltairaLabs/portalops/internal/types"
)

// edges is the legal-transition relation. Statuses absent as keys have
// no outgoing edges.
var edges = map[types.TaskStatus][]types.TaskStatus{
	types.StatusAssigned: {
		types.StatusInProgress,
		types.StatusFailed,
	},
	types.StatusInProgress: {
		types.StatusWaitingForOTP,
		types.StatusWaitingForCaptcha,
		types.StatusSubmitted,
		types.StatusFailed,
		types.StatusBlocked,
	},
	types.StatusWaitingForOTP: {
		types.StatusInProgress,
		types.StatusFailed,
	},
	types.StatusWaitingForCaptcha: {
		types.StatusInProgress,
		types.StatusFailed,
	},
	types.StatusBlocked: {
		types.StatusInProgress,
		types.StatusFailed,
	},
	types.StatusSubmitted: {
		types.StatusCompleted,
		types.StatusFailed,
	},
}

// Edge is one directed legal transition
type Edge struct {
	From types.TaskStatus `json:"from"`
	To   types.TaskStatus `json:"to"`
}

// StatusInfo describes one status for client enumeration
type StatusInfo struct {
	Status    types.TaskStatus   `json:"status"`
	Terminal  bool               `json:"terminal"`
	HumanGate bool               `json:"humanGate"`
	Next      []types.TaskStatus `json:"next"`
}

// Validate decides whether current may move to requested.
//
// Terminal statuses reject everything, including a self transition.
// Otherwise a self transition is an idempotent refresh.
func Validate(current, requested types.TaskStatus) error {
	if current.IsTerminal() {
		return fmt.Errorf("%w: task is %s", types.ErrTerminalState, current)
	}
	if _, ok := types.ParseTaskStatus(string(requested)); !ok {
		return fmt.Errorf("%w: unknown status %q", types.ErrInvalidTransition, requested)
	}
	if current == requested {
		return nil
	}
	if !Allowed(current, requested) {
		return fmt.Errorf("%w: %s -> %s", types.ErrInvalidTransition, current, requested)
	}
	return nil
}

// Allowed reports whether from -> to is an edge of the table.
func Allowed(from, to types.TaskStatus) bool {
	for _, next := range edges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Next returns the statuses reachable from s in one step.
func Next(s types.TaskStatus) []types.TaskStatus {
	out := make([]types.TaskStatus, len(edges[s]))
	copy(out, edges[s])
	return out
}

// Edges returns the whole relation in lifecycle order.
func Edges() []Edge {
	var out []Edge
	for _, from := range types.AllStatuses {
		for _, to := range edges[from] {
			out = append(out, Edge{From: from, To: to})
		}
	}
	return out
}

// Describe returns every status with its outgoing edges.
func Describe() []StatusInfo {
	out := make([]StatusInfo, 0, len(types.AllStatuses))
	for _, s := range types.AllStatuses {
		out = append(out, StatusInfo{
			Status:    s,
			Terminal:  s.IsTerminal(),
			HumanGate: s.IsHumanGate(),
			Next:      Next(s),
		})
	}
	return out
}
