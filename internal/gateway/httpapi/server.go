// Package httpapi is the agent-facing HTTP gateway. It resolves the caller
// from identity headers, forwards to the task service, and streams task and
// session events over a websocket.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AltairaLabs/portalops/internal/coordinator"
	"github.com/AltairaLabs/portalops/internal/identity"
	"github.com/AltairaLabs/portalops/internal/taskstatus"
	"github.com/AltairaLabs/portalops/internal/types"
)

const (
	defaultReadTimeout = 30 * time.Second
	eventBuffer        = 64
	pingInterval       = 30 * time.Second
	writeTimeout       = 10 * time.Second
)

// TaskService is the slice of the coordinator the gateway forwards to
type TaskService interface {
	GetTaskDetail(ctx context.Context, agent types.Agent, taskID string) (*types.TaskDetail, error)
	ListTasks(ctx context.Context, agent types.Agent, statusFilter *types.TaskStatus) ([]*types.Task, error)
	SetStatus(ctx context.Context, agent types.Agent, taskID string, newStatus types.TaskStatus) (*types.Task, error)
	StartSession(ctx context.Context, agent types.Agent, taskID string) (*types.Session, error)
	Statuses() []taskstatus.StatusInfo
}

// EventSource lets websocket clients subscribe to published events
type EventSource interface {
	Subscribe(id string, sender coordinator.EventSender)
	Unsubscribe(id string)
}

// Config holds gateway settings
type Config struct {
	Addr        string
	CORSOrigins []string
	Debug       bool
}

// Server is the HTTP agent gateway
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	service    TaskService
	events     EventSource
	gatherer   prometheus.Gatherer
	upgrader   websocket.Upgrader
	logger     *slog.Logger

	closeOnce sync.Once
	closing   chan struct{}
}

// NewServer builds the gin engine and its routes. A nil gatherer disables
// /metrics; a nil event source disables /v1/events.
func NewServer(cfg Config, service TaskService, events EventSource, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	s := &Server{
		engine:   engine,
		service:  service,
		events:   events,
		gatherer: gatherer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:  logger.With("component", "httpapi"),
		closing: make(chan struct{}),
	}
	engine.Use(s.requestLogger())

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: defaultReadTimeout,
	}

	s.setupRoutes()
	return s
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", identity.HeaderUserID, identity.HeaderUserRole}
	cfg.AllowWebSockets = true

	allowAll := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
	}
	if allowAll {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", s.handleHealth)
	if s.gatherer != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	v1 := s.engine.Group("/v1")
	v1.GET("/statuses", s.handleStatuses)

	authed := v1.Group("")
	authed.Use(s.requireIdentity())

	agent := authed.Group("/agent/tasks")
	{
		agent.GET("", s.handleListTasks)
		agent.GET("/:taskId", s.handleGetTask)
		agent.POST("/:taskId/status", s.handleSetStatus)
		agent.POST("/:taskId/request-session", s.handleRequestSession)
	}

	if s.events != nil {
		authed.GET("/events", s.handleEvents)
	}
}

// Handler returns the HTTP handler, for embedding and tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves HTTP until Shutdown
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP gateway", "address", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http gateway: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and ends open event streams
func (s *Server) Shutdown(ctx context.Context) error {
	s.closeOnce.Do(func() { close(s.closing) })
	return s.httpServer.Shutdown(ctx)
}
