package workerapi

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/AltairaLabs/portalops/internal/types"
)

var kindCodes = map[string]codes.Code{
	types.KindNotFound:        codes.NotFound,
	types.KindInvalidState:    codes.FailedPrecondition,
	types.KindExpired:         codes.DeadlineExceeded,
	types.KindInvalidArgument: codes.InvalidArgument,
	types.KindForbidden:       codes.PermissionDenied,
	types.KindConflict:        codes.Aborted,
}

var codeErrors = map[codes.Code]error{
	codes.NotFound:           types.ErrNotFound,
	codes.FailedPrecondition: types.ErrInvalidState,
	codes.DeadlineExceeded:   types.ErrExpired,
	codes.InvalidArgument:    types.ErrInvalidArgument,
	codes.PermissionDenied:   types.ErrForbidden,
	codes.Aborted:            types.ErrConflict,
}

// toStatus maps a domain error onto a gRPC status. Errors that already carry
// a status pass through unchanged.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	if code, ok := kindCodes[types.KindOf(err)]; ok {
		return status.Error(code, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// fromStatus maps a gRPC status back onto the domain taxonomy so callers can
// use errors.Is with the types sentinels.
func fromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	if sentinel, ok := codeErrors[st.Code()]; ok {
		return fmt.Errorf("%w: %s", sentinel, st.Message())
	}
	return err
}

// IsRetriable reports whether err is a transport failure worth retrying.
// Only Unavailable qualifies; every domain error is final.
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}
	var st interface{ GRPCStatus() *status.Status }
	if !errors.As(err, &st) {
		return false
	}
	return st.GRPCStatus().Code() == codes.Unavailable
}
