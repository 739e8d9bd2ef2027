package taskstatus

import (
	"errors"
	"testing"

	"github.com/AltairaLabs/portalops/internal/types"
)

func TestValidate_Table(t *testing.T) {
	tests := []struct {
		from    types.TaskStatus
		to      types.TaskStatus
		wantErr error
	}{
		{types.StatusAssigned, types.StatusInProgress, nil},
		{types.StatusAssigned, types.StatusFailed, nil},
		{types.StatusAssigned, types.StatusSubmitted, types.ErrInvalidTransition},
		{types.StatusAssigned, types.StatusWaitingForOTP, types.ErrInvalidTransition},
		{types.StatusInProgress, types.StatusWaitingForOTP, nil},
		{types.StatusInProgress, types.StatusWaitingForCaptcha, nil},
		{types.StatusInProgress, types.StatusSubmitted, nil},
		{types.StatusInProgress, types.StatusBlocked, nil},
		{types.StatusInProgress, types.StatusCompleted, types.ErrInvalidTransition},
		{types.StatusInProgress, types.StatusAssigned, types.ErrInvalidTransition},
		{types.StatusWaitingForOTP, types.StatusInProgress, nil},
		{types.StatusWaitingForOTP, types.StatusSubmitted, types.ErrInvalidTransition},
		{types.StatusWaitingForCaptcha, types.StatusWaitingForOTP, types.ErrInvalidTransition},
		{types.StatusBlocked, types.StatusInProgress, nil},
		{types.StatusSubmitted, types.StatusCompleted, nil},
		{types.StatusSubmitted, types.StatusWaitingForCaptcha, types.ErrInvalidTransition},
		{types.StatusSubmitted, types.StatusSubmitted, nil},
		{types.StatusCompleted, types.StatusInProgress, types.ErrTerminalState},
		{types.StatusCompleted, types.StatusCompleted, types.ErrTerminalState},
		{types.StatusFailed, types.StatusFailed, types.ErrTerminalState},
		{types.StatusInProgress, types.TaskStatus("DONE"), types.ErrInvalidTransition},
	}

	for _, test := range tests {
		t.Run(string(test.from)+"->"+string(test.to), func(t *testing.T) {
			err := Validate(test.from, test.to)
			if test.wantErr == nil {
				if err != nil {
					t.Errorf("Expected transition to be allowed, got %v", err)
				}
				return
			}
			if !errors.Is(err, test.wantErr) {
				t.Errorf("Expected %v, got %v", test.wantErr, err)
			}
		})
	}
}

func TestValidate_SelfTransitionAllowedForEveryNonTerminal(t *testing.T) {
	for _, s := range types.AllStatuses {
		err := Validate(s, s)
		if s.IsTerminal() {
			if !errors.Is(err, types.ErrTerminalState) {
				t.Errorf("Expected %s self transition to fail with terminal state, got %v", s, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Expected %s self transition to be allowed, got %v", s, err)
		}
	}
}

func TestHumanGatesOnlyTouchActiveWork(t *testing.T) {
	for _, e := range Edges() {
		if e.To.IsHumanGate() && e.From != types.StatusInProgress {
			t.Errorf("Human gate %s entered from %s", e.To, e.From)
		}
		if e.From.IsHumanGate() && e.To != types.StatusInProgress && e.To != types.StatusFailed {
			t.Errorf("Human gate %s exits to %s", e.From, e.To)
		}
	}
}

func TestTerminalStatusesHaveNoEdges(t *testing.T) {
	for _, s := range []types.TaskStatus{types.StatusCompleted, types.StatusFailed} {
		if len(Next(s)) != 0 {
			t.Errorf("Expected no edges from %s, got %v", s, Next(s))
		}
	}
}

func TestEveryStatusReachableFromAssigned(t *testing.T) {
	seen := map[types.TaskStatus]bool{types.StatusAssigned: true}
	queue := []types.TaskStatus{types.StatusAssigned}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range Next(cur) {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	for _, s := range types.AllStatuses {
		if !seen[s] {
			t.Errorf("Status %s unreachable from ASSIGNED", s)
		}
	}
}

func TestDescribe(t *testing.T) {
	infos := Describe()
	if len(infos) != len(types.AllStatuses) {
		t.Fatalf("Expected %d statuses, got %d", len(types.AllStatuses), len(infos))
	}
	for _, info := range infos {
		if info.Status == types.StatusInProgress && len(info.Next) != 5 {
			t.Errorf("Expected 5 edges from IN_PROGRESS, got %d", len(info.Next))
		}
		if info.Status == types.StatusCompleted && !info.Terminal {
			t.Error("Expected COMPLETED to be terminal")
		}
	}
}

func TestNextReturnsCopy(t *testing.T) {
	next := Next(types.StatusAssigned)
	next[0] = types.StatusCompleted
	if !Allowed(types.StatusAssigned, types.StatusInProgress) {
		t.Error("Mutating Next result changed the table")
	}
}
