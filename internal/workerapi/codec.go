package workerapi

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/AltairaLabs/portalops/internal/types"
)

func formatTime(t time.Time) string {
	return timestamppb.New(t).AsTime().Format(time.RFC3339Nano)
}

func parseTime(field, raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("field %s: %w", field, err)
	}
	if err := timestamppb.New(t).CheckValid(); err != nil {
		return time.Time{}, fmt.Errorf("field %s: %w", field, err)
	}
	return t.UTC(), nil
}

// encodeSession renders a session as a Struct message
func encodeSession(s *types.Session) (*structpb.Struct, error) {
	fields := map[string]interface{}{
		fieldID:        s.ID,
		fieldTaskID:    s.TaskID,
		fieldStatus:    string(s.Status),
		fieldViewerURL: s.ViewerURL,
		fieldWorkerID:  s.WorkerID,
		fieldCreatedAt: formatTime(s.CreatedAt),
		fieldExpiresAt: formatTime(s.ExpiresAt),
	}
	if s.ClosedAt != nil {
		fields[fieldClosedAt] = formatTime(*s.ClosedAt)
	}
	return structpb.NewStruct(fields)
}

// decodeSession is the inverse of encodeSession
func decodeSession(msg *structpb.Struct) (*types.Session, error) {
	s := &types.Session{
		ID:        stringField(msg, fieldID),
		TaskID:    stringField(msg, fieldTaskID),
		Status:    types.SessionState(stringField(msg, fieldStatus)),
		ViewerURL: stringField(msg, fieldViewerURL),
		WorkerID:  stringField(msg, fieldWorkerID),
	}
	if s.ID == "" {
		return nil, fmt.Errorf("session message has no %s", fieldID)
	}

	var err error
	if s.CreatedAt, err = parseTime(fieldCreatedAt, stringField(msg, fieldCreatedAt)); err != nil {
		return nil, err
	}
	if s.ExpiresAt, err = parseTime(fieldExpiresAt, stringField(msg, fieldExpiresAt)); err != nil {
		return nil, err
	}
	if raw := stringField(msg, fieldClosedAt); raw != "" {
		closedAt, err := parseTime(fieldClosedAt, raw)
		if err != nil {
			return nil, err
		}
		s.ClosedAt = &closedAt
	}
	return s, nil
}

// stringField returns a string field or "" when absent or not a string
func stringField(msg *structpb.Struct, name string) string {
	if msg == nil {
		return ""
	}
	v, ok := msg.GetFields()[name]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}
