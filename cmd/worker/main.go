package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/AltairaLabs/portalops/internal/retry"
	"github.com/AltairaLabs/portalops/internal/types"
	"github.com/AltairaLabs/portalops/internal/workerapi"
)

var version = "0.1.0"

const (
	envPrefix              = "PORTALOPS_WORKER"
	defaultCoordinatorAddr = "localhost:50051"
)

// sessionClient is the coordinator callback surface the commands use
type sessionClient interface {
	AttachWorker(ctx context.Context, sessionID, viewerURL, workerID string) (*types.Session, error)
	CloseSession(ctx context.Context, sessionID string) (*types.Session, error)
	GetSession(ctx context.Context, sessionID string) (*types.Session, error)
	Close() error
}

type dialFunc func(addr string, opts ...workerapi.ClientOption) (sessionClient, error)

func dialCoordinator(addr string, opts ...workerapi.ClientOption) (sessionClient, error) {
	return workerapi.Dial(addr, opts...)
}

func main() {
	if err := newRootCommand(dialCoordinator, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func defaultWorkerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "worker-1"
	}
	return host
}

// newRootCommand builds the worker CLI. Every flag can also be set through
// a PORTALOPS_WORKER_* environment variable.
func newRootCommand(dial dialFunc, out io.Writer) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:          "worker",
		Short:        "Report automation session state to the coordinator",
		Version:      version,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("coordinator", defaultCoordinatorAddr, "Coordinator gRPC address")
	flags.String("worker-id", defaultWorkerID(), "Identifier recorded on attached sessions")
	flags.Duration("timeout", workerapi.DefaultCallTimeout, "Timeout for each call attempt")
	flags.Int("retries", retry.NetworkErrorPolicy().MaxRetries, "Retries when the coordinator is unavailable")
	flags.Bool("debug", false, "Enable debug logging")
	for _, name := range []string{"coordinator", "worker-id", "timeout", "retries", "debug"} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}

	// withClient dials, runs fn, prints the session and closes the client
	withClient := func(cmd *cobra.Command, fn func(ctx context.Context, c sessionClient) (*types.Session, error)) error {
		logLevel := slog.LevelInfo
		if v.GetBool("debug") {
			logLevel = slog.LevelDebug
		}
		logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: logLevel}))

		policy := retry.NetworkErrorPolicy()
		policy.MaxRetries = v.GetInt("retries")

		client, err := dial(v.GetString("coordinator"),
			workerapi.WithRetryPolicy(policy),
			workerapi.WithCallTimeout(v.GetDuration("timeout")),
			workerapi.WithClientLogger(logger),
		)
		if err != nil {
			return err
		}
		defer client.Close()

		session, err := fn(cmd.Context(), client)
		if err != nil {
			return fmt.Errorf("%s: %w", types.KindOf(err), err)
		}
		logger.Debug("session updated",
			"session_id", session.ID,
			"status", session.Status,
			"remaining", remaining(session, time.Now()))
		return printSession(out, session)
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "attach SESSION_ID VIEWER_URL",
			Short: "Attach this worker to a requested session",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withClient(cmd, func(ctx context.Context, c sessionClient) (*types.Session, error) {
					return c.AttachWorker(ctx, args[0], args[1], v.GetString("worker-id"))
				})
			},
		},
		&cobra.Command{
			Use:   "close SESSION_ID",
			Short: "Close a session",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withClient(cmd, func(ctx context.Context, c sessionClient) (*types.Session, error) {
					return c.CloseSession(ctx, args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "get SESSION_ID",
			Short: "Show a session",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withClient(cmd, func(ctx context.Context, c sessionClient) (*types.Session, error) {
					return c.GetSession(ctx, args[0])
				})
			},
		},
	)

	return root
}

func printSession(out io.Writer, session *types.Session) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(session)
}

// remaining reports how long a live session has left, for log lines
func remaining(session *types.Session, now time.Time) time.Duration {
	if !session.IsLive() {
		return 0
	}
	return session.ExpiresAt.Sub(now)
}
