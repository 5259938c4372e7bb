// Package server exposes the tracker core to a browser UI over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"project-tracker/internal/api"
	"project-tracker/internal/domain"
	apperrors "project-tracker/internal/errors"
	"project-tracker/internal/logging"
	"project-tracker/internal/metrics"
)

const (
	requestIDHeader = "X-Request-ID"
	sessionKey      = "session"
)

// Authenticator issues and checks the bearer tokens browsers send.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, *domain.User, error)
	Identify(ctx context.Context, token string) (*domain.User, error)
}

// TrackerFactory builds the tracker serving one authenticated session.
type TrackerFactory func(token string, user domain.User) (api.Tracker, error)

// Server provides the HTTP handlers of the board UI.
type Server struct {
	engine   *gin.Engine
	srv      *http.Server
	auth     Authenticator
	sessions *sessions
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New constructs the server with routes and middleware configured. m and
// logger may be nil.
func New(addr string, auth Authenticator, factory TrackerFactory, m *metrics.Metrics, logger *slog.Logger) *Server {
	logger = logging.OrDefault(logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		engine:   router,
		auth:     auth,
		sessions: newSessions(factory),
		metrics:  m,
		logger:   logger,
	}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	router.Use(s.requestID, s.observe)
	s.registerRoutes()
	return s
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	s.logger.Info("starting board server", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down, waiting up to five seconds for requests in flight.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

// registerRoutes wires all API handlers together.
func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	public := s.engine.Group("/api")
	{
		public.POST("/login", s.handleLogin)
	}

	authed := s.engine.Group("/api", s.authenticate)
	{
		authed.POST("/logout", s.handleLogout)
		authed.GET("/board", s.handleBoard)
		authed.GET("/dashboard", s.handleDashboard)

		tasks := authed.Group("/tasks")
		{
			tasks.GET(":id", s.handleTaskDetail)
			tasks.DELETE(":id", s.handleDeleteTask)
			tasks.PUT(":id/status", s.handleSetStatus)
		}
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseID converts a path parameter to int64 with error handling.
func (s *Server) parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		s.respondError(c, apperrors.NewInvalidInputError(name, c.Param(name), "must be a positive integer"))
		return 0, false
	}
	return id, true
}

// respondError maps err onto an HTTP status and a JSON payload.
func (s *Server) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if appErr, ok := apperrors.AsAppError(err); ok {
		status = appErr.Type.HTTPStatus()
	} else if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}
	if apperrors.ShouldLogError(err) || status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			slog.String("path", c.FullPath()),
			slog.String("request_id", c.GetString(requestIDHeader)),
			slog.String("error", err.Error()))
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error": apperrors.GetUserMessage(err),
		"code":  apperrors.GetErrorCode(err),
	})
}

// respondSuccess writes payload, or only the status when payload is nil.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
