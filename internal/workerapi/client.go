package workerapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/AltairaLabs/portalops/internal/coordinator/config"
	"github.com/AltairaLabs/portalops/internal/retry"
	"github.com/AltairaLabs/portalops/internal/types"
)

// DefaultCallTimeout bounds a single attempt
const DefaultCallTimeout = config.DefaultWorkerCallTimeout

// Client calls the coordinator's worker callback service
type Client struct {
	conn    grpc.ClientConnInterface
	closer  func() error
	policy  retry.Policy
	timeout time.Duration
	logger  *slog.Logger
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithRetryPolicy sets the backoff used for Unavailable errors
func WithRetryPolicy(p retry.Policy) ClientOption {
	return func(c *Client) {
		c.policy = p
	}
}

// WithCallTimeout bounds each attempt
func WithCallTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithClientLogger sets the client logger
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient wraps an existing connection
func NewClient(conn grpc.ClientConnInterface, opts ...ClientOption) *Client {
	c := &Client{
		conn:    conn,
		closer:  func() error { return nil },
		policy:  retry.NetworkErrorPolicy(),
		timeout: DefaultCallTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dial connects to the coordinator at addr without transport security
func Dial(addr string, opts ...ClientOption) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC client: %w", err)
	}
	c := NewClient(conn, opts...)
	c.closer = conn.Close
	return c, nil
}

// Close releases the connection if the client owns it
func (c *Client) Close() error {
	return c.closer()
}

// AttachWorker reports the live viewer URL of a session. When an attempt
// was retried and the coordinator answers InvalidState, an earlier attempt
// may have been applied with its reply lost; the session is then read back
// and accepted if it is attached with this viewer URL and worker.
func (c *Client) AttachWorker(ctx context.Context, sessionID, viewerURL, workerID string) (*types.Session, error) {
	session, attempts, err := c.invoke(ctx, MethodAttachWorker, map[string]interface{}{
		fieldSessionID: sessionID,
		fieldViewerURL: viewerURL,
		fieldWorkerID:  workerID,
	})
	if err == nil || attempts < 2 || !errors.Is(err, types.ErrInvalidState) {
		return session, err
	}

	current, getErr := c.GetSession(ctx, sessionID)
	if getErr != nil {
		return nil, err
	}
	if current.Status == types.SessionAttached && current.ViewerURL == viewerURL && current.WorkerID == workerID {
		c.logger.DebugContext(ctx, "attach applied by an earlier attempt",
			"session_id", sessionID,
			"attempts", attempts)
		return current, nil
	}
	return nil, err
}

// CloseSession closes a session
func (c *Client) CloseSession(ctx context.Context, sessionID string) (*types.Session, error) {
	return c.call(ctx, MethodCloseSession, map[string]interface{}{
		fieldSessionID: sessionID,
	})
}

// GetSession fetches a session
func (c *Client) GetSession(ctx context.Context, sessionID string) (*types.Session, error) {
	return c.call(ctx, MethodGetSession, map[string]interface{}{
		fieldSessionID: sessionID,
	})
}

func (c *Client) call(ctx context.Context, method string, fields map[string]interface{}) (*types.Session, error) {
	session, _, err := c.invoke(ctx, method, fields)
	return session, err
}

// invoke runs one RPC under the retry policy and reports how many attempts
// it made.
func (c *Client) invoke(ctx context.Context, method string, fields map[string]interface{}) (*types.Session, int, error) {
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}

	out := new(structpb.Struct)
	attempt := 0
	err = retry.Do(ctx, c.policy, IsRetriable, func(ctx context.Context) error {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		callErr := c.conn.Invoke(callCtx, method, req, out)
		if callErr != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			// A timed-out attempt is a transport failure, not an expired session
			callErr = status.Errorf(codes.Unavailable, "attempt timed out after %s", c.timeout)
		}
		if callErr != nil && IsRetriable(callErr) {
			c.logger.DebugContext(ctx, "coordinator unavailable",
				"method", method,
				"attempt", attempt,
				"error", callErr)
		}
		return callErr
	})
	if err != nil {
		return nil, attempt, fromStatus(err)
	}
	session, err := decodeSession(out)
	return session, attempt, err
}
