package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/AltairaLabs/portalops/internal/coordinator/config"
)

var version = "0.1.0"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCommand builds the coordinator CLI. Flags override the config file
// and PORTALOPS_* environment variables.
func newRootCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:           "coordinator",
		Short:         "Portal task coordinator",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := config.NewViper(configFile)
			if err != nil {
				return err
			}
			if err := bindFlags(cmd, v); err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			cfg.Version = version

			logger := newLogger(cfg.Debug)
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, logger)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", "", "Path to a YAML config file")
	flags.Bool("debug", false, "Enable debug logging")
	flags.String("http-addr", "", "HTTP agent gateway listen address")
	flags.String("grpc-addr", "", "Worker callback gRPC listen address")
	flags.String("mcp-transport", "", "MCP transport: sse, stdio or none")
	flags.String("mcp-addr", "", "MCP HTTP/SSE listen address")
	flags.String("mcp-agent-id", "", "Agent identity for the stdio MCP transport")
	flags.String("storage", "", "Storage driver: memory or sqlite")
	flags.String("db", "", "SQLite database path")
	flags.String("seed", "", "YAML fixture file loaded at startup")
	flags.Duration("session-ttl", 0, "Automation session time box")
	flags.Duration("sweep-interval", 0, "Session expiry sweep interval (0 disables)")

	return cmd
}

// flagKeys maps CLI flags onto config keys
var flagKeys = map[string]string{
	"debug":          "debug",
	"http-addr":      "http.addr",
	"grpc-addr":      "grpc.addr",
	"mcp-transport":  "mcp.transport",
	"mcp-addr":       "mcp.addr",
	"mcp-agent-id":   "mcp.agent_id",
	"storage":        "storage.driver",
	"db":             "storage.path",
	"seed":           "storage.seed_file",
	"session-ttl":    "session.ttl",
	"sweep-interval": "session.sweep_interval",
}

// bindFlags binds the flags the user actually set, so unset flags never
// mask file or environment values.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	for flag, key := range flagKeys {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

func newLogger(debug bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
}

// run starts every server and blocks until ctx ends or one of them fails
func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("Starting portal task coordinator",
		"version", cfg.Version,
		"debug", cfg.Debug,
		"http_addr", cfg.HTTPAddr,
		"grpc_addr", cfg.GRPCAddr,
		"mcp_transport", cfg.MCP.Transport,
		"storage", cfg.Storage.Driver,
	)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logger.Error("Failed to close storage", "error", cerr)
		}
	}()

	return a.Serve(ctx)
}
