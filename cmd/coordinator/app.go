package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/AltairaLabs/portalops/internal/cache"
	"github.com/AltairaLabs/portalops/internal/coordinator"
	"github.com/AltairaLabs/portalops/internal/coordinator/config"
	"github.com/AltairaLabs/portalops/internal/gateway/httpapi"
	"github.com/AltairaLabs/portalops/internal/storage"
	"github.com/AltairaLabs/portalops/internal/storage/memory"
	"github.com/AltairaLabs/portalops/internal/storage/seed"
	"github.com/AltairaLabs/portalops/internal/storage/sqlitestore"
	"github.com/AltairaLabs/portalops/internal/taskstore"
	"github.com/AltairaLabs/portalops/internal/types"
	"github.com/AltairaLabs/portalops/internal/workerapi"
)

// app holds the wired coordinator components
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	backend  storage.Backend
	registry *prometheus.Registry
	hub      *coordinator.EventHub
	sessions *coordinator.SessionManager
	service  *coordinator.TaskService
	mcp      *coordinator.MCPServer
	http     *httpapi.Server
	grpc     *grpc.Server
	sweeper  *coordinator.Sweeper
}

// openStorage opens the configured backend
func openStorage(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (storage.Backend, error) {
	switch cfg.Driver {
	case config.StorageSQLite:
		return sqlitestore.Open(ctx, sqlitestore.Config{
			Path:   cfg.Path,
			Logger: logger.With("component", "sqlite"),
		})
	case config.StorageMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	backend, err := openStorage(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	if cfg.Storage.SeedFile != "" {
		summary, err := seed.LoadFile(ctx, cfg.Storage.SeedFile, backend, time.Now().UTC())
		if err != nil {
			_ = backend.Close()
			return nil, fmt.Errorf("load seed: %w", err)
		}
		logger.Info("Loaded seed fixtures",
			"file", cfg.Storage.SeedFile,
			"cases", summary.Cases,
			"tasks", summary.Tasks,
			"attachments", summary.Attachments,
			"skipped", summary.Skipped)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := coordinator.MustNewMetrics(registry)
	hub := coordinator.NewEventHub(logger.With("component", "events"))

	tasks := taskstore.New(backend,
		taskstore.WithCaseCache(cache.NewCaseCache(cfg.Cache.Size, cfg.Cache.TTL)),
		taskstore.WithLogger(logger.With("component", "taskstore")),
	)

	sessions := coordinator.NewSessionManager(backend,
		coordinator.WithSessionTTL(cfg.Session.TTL),
		coordinator.WithSessionEvents(hub),
		coordinator.WithSessionTasks(tasks),
		coordinator.WithSessionMetrics(metrics),
		coordinator.WithSessionLogger(logger.With("component", "sessions")),
	)

	service := coordinator.NewTaskService(tasks, sessions,
		coordinator.WithAudit(coordinator.NewAuditLogger(logger.With("component", "audit"))),
		coordinator.WithMetrics(metrics),
		coordinator.WithEvents(hub),
		coordinator.WithServiceLogger(logger.With("component", "service")),
	)

	a := &app{
		cfg:      cfg,
		logger:   logger,
		backend:  backend,
		registry: registry,
		hub:      hub,
		sessions: sessions,
		service:  service,
		sweeper:  coordinator.NewSweeper(sessions, cfg.Session.SweepInterval, logger.With("component", "sweeper")),
	}

	if cfg.MCP.Transport != config.MCPTransportNone {
		a.mcp, err = coordinator.NewMCPServer(coordinator.Config{Name: cfg.Name, Version: cfg.Version}, service, logger)
		if err != nil {
			_ = backend.Close()
			return nil, err
		}
	}

	a.http = httpapi.NewServer(httpapi.Config{
		Addr:        cfg.HTTPAddr,
		CORSOrigins: cfg.CORSOrigins,
		Debug:       cfg.Debug,
	}, service, hub, registry, logger)

	a.grpc = grpc.NewServer()
	workerapi.RegisterWorkerCallbackServer(a.grpc, workerapi.NewServer(sessions, logger))

	return a, nil
}

// Serve runs every server until ctx ends, then shuts them down
func (a *app) Serve(ctx context.Context) error {
	listenConfig := net.ListenConfig{}
	lis, err := listenConfig.Listen(ctx, "tcp", a.cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.cfg.GRPCAddr, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("Starting gRPC server for workers", "address", lis.Addr().String())
		if err := a.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	g.Go(a.http.Start)

	g.Go(func() error {
		return a.sweeper.Run(gctx)
	})

	if a.mcp != nil {
		switch a.cfg.MCP.Transport {
		case config.MCPTransportStdio:
			agent := types.Agent{ID: a.cfg.MCP.AgentID, Role: strings.ToUpper(a.cfg.MCP.AgentRole)}
			g.Go(func() error {
				return a.mcp.ServeStdio(gctx, agent)
			})
		case config.MCPTransportSSE:
			g.Go(func() error {
				return a.mcp.ServeSSE(a.cfg.MCP.Addr)
			})
		}
	}

	g.Go(func() error {
		<-gctx.Done()
		a.shutdown()
		return nil
	})

	return g.Wait()
}

func (a *app) shutdown() {
	a.logger.Info("Shutting down gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(ctx); err != nil {
		a.logger.Warn("HTTP gateway shutdown error", "error", err)
	}
	if a.mcp != nil {
		if err := a.mcp.Shutdown(ctx); err != nil {
			a.logger.Warn("MCP server shutdown error", "error", err)
		}
	}

	stopped := make(chan struct{})
	go func() {
		a.grpc.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
		a.logger.Info("gRPC server stopped gracefully")
	case <-ctx.Done():
		a.logger.Warn("Graceful shutdown timeout, forcing stop")
		a.grpc.Stop()
		<-stopped
	}
}

// Close releases the storage backend
func (a *app) Close() error {
	return a.backend.Close()
}
