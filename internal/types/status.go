package types

import "strings"

// TaskStatus is one value of the closed task status vocabulary.
type TaskStatus string

const (
	// StatusAssigned is the initial status of a task handed to an agent
	StatusAssigned TaskStatus = "ASSIGNED"
	// StatusInProgress indicates the agent is actively working the portal
	StatusInProgress TaskStatus = "IN_PROGRESS"
	// StatusWaitingForOTP is a human gate: a one-time password must be entered
	StatusWaitingForOTP TaskStatus = "WAITING_FOR_OTP"
	// StatusWaitingForCaptcha is a human gate: a CAPTCHA must be solved
	StatusWaitingForCaptcha TaskStatus = "WAITING_FOR_CAPTCHA"
	// StatusSubmitted indicates the portal submission was made
	StatusSubmitted TaskStatus = "SUBMITTED"
	// StatusCompleted is terminal: the submission was confirmed
	StatusCompleted TaskStatus = "COMPLETED"
	// StatusFailed is terminal: the task cannot be finished
	StatusFailed TaskStatus = "FAILED"
	// StatusBlocked indicates work is paused on an external blocker
	StatusBlocked TaskStatus = "BLOCKED"
)

// AllStatuses lists the vocabulary in lifecycle order.
var AllStatuses = []TaskStatus{
	StatusAssigned,
	StatusInProgress,
	StatusWaitingForOTP,
	StatusWaitingForCaptcha,
	StatusBlocked,
	StatusSubmitted,
	StatusCompleted,
	StatusFailed,
}

// ParseTaskStatus normalizes s and reports whether it names a known status.
func ParseTaskStatus(s string) (TaskStatus, bool) {
	candidate := TaskStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AllStatuses {
		if candidate == known {
			return known, true
		}
	}
	return "", false
}

// IsTerminal reports whether no further transition is possible.
func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsHumanGate reports whether the status pauses work on a manual action.
func (s TaskStatus) IsHumanGate() bool {
	return s == StatusWaitingForOTP || s == StatusWaitingForCaptcha
}

func (s TaskStatus) String() string {
	return string(s)
}
