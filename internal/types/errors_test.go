package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not found wrapped", fmt.Errorf("%w: task t1", ErrNotFound), KindNotFound},
		{"forbidden", ErrForbidden, KindForbidden},
		{"invalid transition", fmt.Errorf("%w: ASSIGNED -> SUBMITTED", ErrInvalidTransition), KindInvalidTransition},
		{"terminal", ErrTerminalState, KindTerminalState},
		{"invalid state", ErrInvalidState, KindInvalidState},
		{"expired", ErrExpired, KindExpired},
		{"conflict", ErrConflict, KindConflict},
		{"invalid argument", ErrInvalidArgument, KindInvalidArgument},
		{"unauthenticated", ErrUnauthenticated, KindUnauthenticated},
		{"infrastructure", errors.New("disk I/O error"), KindInternal},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := KindOf(test.err); got != test.want {
				t.Errorf("Expected kind %s, got %s", test.want, got)
			}
		})
	}
}

func TestParseTaskStatus(t *testing.T) {
	got, ok := ParseTaskStatus(" waiting_for_otp ")
	if !ok {
		t.Fatal("Expected status to parse")
	}
	if got != StatusWaitingForOTP {
		t.Errorf("Expected %s, got %s", StatusWaitingForOTP, got)
	}

	if _, ok := ParseTaskStatus("DONE"); ok {
		t.Error("Expected DONE to be rejected")
	}
}

func TestTaskStatusPredicates(t *testing.T) {
	for _, s := range AllStatuses {
		wantTerminal := s == StatusCompleted || s == StatusFailed
		if s.IsTerminal() != wantTerminal {
			t.Errorf("IsTerminal(%s) = %v, want %v", s, s.IsTerminal(), wantTerminal)
		}
	}
	if !StatusWaitingForCaptcha.IsHumanGate() || StatusBlocked.IsHumanGate() {
		t.Error("Expected only OTP/CAPTCHA statuses to be human gates")
	}
}

func TestAgent_IsAgent(t *testing.T) {
	if !(Agent{ID: "a1", Role: RoleAgent}).IsAgent() {
		t.Error("Expected agent role to be accepted")
	}
	if (Agent{ID: "a1", Role: "ADMIN"}).IsAgent() {
		t.Error("Expected admin role to be rejected")
	}
	if (Agent{Role: RoleAgent}).IsAgent() {
		t.Error("Expected empty id to be rejected")
	}
}
