package workerapi

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/AltairaLabs/portalops/internal/coordinator/config"
	"github.com/AltairaLabs/portalops/internal/types"
)

// Sessions is the session surface workers call back into
type Sessions interface {
	AttachWorker(ctx context.Context, sessionID, viewerURL, workerID string) (*types.Session, error)
	CloseSession(ctx context.Context, sessionID string) (*types.Session, error)
	GetSession(ctx context.Context, sessionID string) (*types.Session, error)
}

// Server implements WorkerCallbackServer over a session manager
type Server struct {
	sessions Sessions
	logger   *slog.Logger
}

// NewServer creates a worker callback server
func NewServer(sessions Sessions, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		sessions: sessions,
		logger:   logger.With("component", "workerapi"),
	}
}

// AttachWorker handles a worker reporting its viewer URL
func (s *Server) AttachWorker(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sessionID, err := requireField(req, fieldSessionID)
	if err != nil {
		return nil, toStatus(err)
	}
	workerID := stringField(req, fieldWorkerID)

	session, err := s.sessions.AttachWorker(ctx, sessionID, stringField(req, fieldViewerURL), workerID)
	if err != nil {
		s.logger.WarnContext(ctx, "attach rejected",
			"session_id", sessionID,
			"worker_id", workerID,
			"kind", types.KindOf(err),
			"error", err)
		return nil, toStatus(err)
	}
	s.logger.InfoContext(ctx, fmt.Sprintf(config.MsgSessionAttached, sessionID, workerID),
		"session_id", sessionID,
		"worker_id", workerID)
	return s.respond(session)
}

// CloseSession handles a worker closing its session
func (s *Server) CloseSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sessionID, err := requireField(req, fieldSessionID)
	if err != nil {
		return nil, toStatus(err)
	}
	session, err := s.sessions.CloseSession(ctx, sessionID)
	if err != nil {
		return nil, toStatus(err)
	}
	return s.respond(session)
}

// GetSession returns the expiry-healed session
func (s *Server) GetSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sessionID, err := requireField(req, fieldSessionID)
	if err != nil {
		return nil, toStatus(err)
	}
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, toStatus(err)
	}
	return s.respond(session)
}

func (s *Server) respond(session *types.Session) (*structpb.Struct, error) {
	msg, err := encodeSession(session)
	if err != nil {
		return nil, toStatus(fmt.Errorf("encode session %s: %w", session.ID, err))
	}
	return msg, nil
}

func requireField(req *structpb.Struct, name string) (string, error) {
	v := stringField(req, name)
	if v == "" {
		return "", fmt.Errorf("%w: %s is required", types.ErrInvalidArgument, name)
	}
	return v, nil
}
