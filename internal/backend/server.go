// Package backend serves the tracker REST API over a local SQLite store. It
// backs the development profile and end-to-end tests.
package backend

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"project-tracker/internal/domain"
	"project-tracker/internal/logging"
	"project-tracker/internal/metrics"
	"project-tracker/internal/repository"
)

// Store is the persistence the API needs on top of the repository contracts.
// *sqlite.SQLiteRepository implements it.
type Store interface {
	repository.Repository
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
	CreateUser(ctx context.Context, user domain.User, password string) (*domain.User, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	CountUsers(ctx context.Context) (int, error)
	GetComment(ctx context.Context, id int64) (*domain.Comment, error)
	GetAttachment(ctx context.Context, id int64) (*domain.Attachment, error)
}

// Options configures the API server.
type Options struct {
	Addr           string
	JWTSecret      []byte
	TokenTTL       time.Duration
	MaxUploadBytes int64
}

// Server is the REST API.
type Server struct {
	srv     *http.Server
	router  *mux.Router
	store   Store
	opts    Options
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewServer wires the routes. m and logger may be nil.
func NewServer(opts Options, store Store, m *metrics.Metrics, logger *slog.Logger) *Server {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	s := &Server{
		router:  mux.NewRouter(),
		store:   store,
		opts:    opts,
		metrics: m,
		logger:  logging.OrDefault(logger),
		now:     time.Now,
	}
	s.srv = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.registerRoutes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	s.logger.Info("REST API listening", "addr", s.opts.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down, waiting at most 5 seconds for open requests.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.router.Use(s.observe)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)

	authed := api.NewRoute().Subrouter()
	authed.Use(s.authenticate)

	authed.HandleFunc("/auth/me", s.handleMe).Methods(http.MethodGet)

	authed.HandleFunc("/tasks", s.handleListTasks).Methods(http.MethodGet)
	authed.Handle("/tasks", s.requireRole(s.handleCreateTask, domain.RoleAdmin, domain.RoleManager)).Methods(http.MethodPost)
	authed.HandleFunc("/tasks/{id:[0-9]+}", s.handleGetTask).Methods(http.MethodGet)
	authed.HandleFunc("/tasks/{id:[0-9]+}", s.handleUpdateTask).Methods(http.MethodPut)
	authed.HandleFunc("/tasks/{id:[0-9]+}", s.handleDeleteTask).Methods(http.MethodDelete)
	authed.HandleFunc("/tasks/{id:[0-9]+}/status", s.handleSetStatus).Methods(http.MethodPatch)

	authed.HandleFunc("/tasks/{id:[0-9]+}/comments", s.handleListComments).Methods(http.MethodGet)
	authed.HandleFunc("/tasks/{id:[0-9]+}/comments", s.handleAddComment).Methods(http.MethodPost)
	authed.HandleFunc("/comments/{id:[0-9]+}", s.handleDeleteComment).Methods(http.MethodDelete)

	authed.HandleFunc("/tasks/{id:[0-9]+}/attachments", s.handleListAttachments).Methods(http.MethodGet)
	authed.HandleFunc("/tasks/{id:[0-9]+}/attachments", s.handleUploadAttachment).Methods(http.MethodPost)
	authed.HandleFunc("/attachments/{id:[0-9]+}/download", s.handleDownloadAttachment).Methods(http.MethodGet)
	authed.HandleFunc("/attachments/{id:[0-9]+}", s.handleDeleteAttachment).Methods(http.MethodDelete)

	authed.HandleFunc("/projects", s.handleListProjects).Methods(http.MethodGet)
	authed.Handle("/projects", s.requireRole(s.handleCreateProject, domain.RoleAdmin, domain.RoleManager)).Methods(http.MethodPost)
	authed.HandleFunc("/projects/{id:[0-9]+}", s.handleGetProject).Methods(http.MethodGet)
	authed.HandleFunc("/projects/{id:[0-9]+}", s.handleUpdateProject).Methods(http.MethodPut)
	authed.Handle("/projects/{id:[0-9]+}", s.requireRole(s.handleDeleteProject, domain.RoleAdmin)).Methods(http.MethodDelete)
	authed.HandleFunc("/projects/{id:[0-9]+}/manager", s.handleGetManager).Methods(http.MethodGet)
	authed.HandleFunc("/projects/{id:[0-9]+}/tasks/count", s.handleCountTasks).Methods(http.MethodGet)

	authed.Handle("/users", s.requireRole(s.handleListUsers, domain.RoleAdmin, domain.RoleManager)).Methods(http.MethodGet)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

// Bootstrap creates the first administrator when the store has no users.
func Bootstrap(ctx context.Context, store Store, username, password string, logger *slog.Logger) error {
	count, err := store.CountUsers(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	_, err = store.CreateUser(ctx, domain.User{Username: username, Roles: []domain.Role{domain.RoleAdmin}}, password)
	if err != nil {
		return err
	}
	logging.OrDefault(logger).Info("created initial administrator", "username", username)
	return nil
}
