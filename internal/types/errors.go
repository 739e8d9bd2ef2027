package types

import "errors"

// Error taxonomy shared by the state machine and its boundaries. Every one
// of these signals a caller-side precondition failure and is never retried
// automatically.
var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrTerminalState     = errors.New("terminal state")
	ErrInvalidState      = errors.New("invalid state")
	ErrExpired           = errors.New("expired")
	ErrConflict          = errors.New("concurrent modification")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrUnauthenticated   = errors.New("unauthenticated")
)

// Error kinds reported to callers
const (
	KindNotFound          = "NotFound"
	KindForbidden         = "Forbidden"
	KindInvalidTransition = "InvalidTransition"
	KindTerminalState     = "TerminalState"
	KindInvalidState      = "InvalidState"
	KindExpired           = "Expired"
	KindConflict          = "Conflict"
	KindInvalidArgument   = "InvalidArgument"
	KindUnauthenticated   = "Unauthenticated"
	KindInternal          = "Internal"
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrNotFound, KindNotFound},
	{ErrForbidden, KindForbidden},
	{ErrInvalidTransition, KindInvalidTransition},
	{ErrTerminalState, KindTerminalState},
	{ErrInvalidState, KindInvalidState},
	{ErrExpired, KindExpired},
	{ErrConflict, KindConflict},
	{ErrInvalidArgument, KindInvalidArgument},
	{ErrUnauthenticated, KindUnauthenticated},
}

// KindOf maps err onto the taxonomy. Anything outside it is Internal.
func KindOf(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
