package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"

	"project-tracker/internal/api"
	"project-tracker/internal/backend"
	"project-tracker/internal/cli"
	"project-tracker/internal/compose"
	"project-tracker/internal/config"
	"project-tracker/internal/domain"
	"project-tracker/internal/events"
	"project-tracker/internal/metrics"
	"project-tracker/internal/repository/rest"
	"project-tracker/internal/repository/sqlite"
	"project-tracker/internal/server"
	"project-tracker/internal/session"
)

// Environment represents the current environment
type Environment string

const (
	Development Environment = "development"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

// parseEnvironment maps the configured environment name, defaulting to
// production.
func parseEnvironment(name string) Environment {
	switch Environment(name) {
	case Development, Testing:
		return Environment(name)
	default:
		return Production
	}
}

// openBackend picks the backend for the configured environment. Production
// talks to the REST API; development and testing open a SQLite store in
// process.
func openBackend(cfg *config.Config, users *session.Store, logger *slog.Logger) (cli.Backend, error) {
	rt, err := newRuntime(cfg, logger)
	if err != nil {
		return nil, err
	}

	var b cli.Backend
	switch env := parseEnvironment(cfg.Application.Env); env {
	case Development, Testing:
		b, err = newLocalBackend(cfg, env, users, rt)
	default:
		b, err = newRemoteBackend(cfg, users, rt)
	}
	if err != nil {
		rt.close()
		return nil, err
	}
	return b, nil
}

// runtime holds what every backend shares: metrics, the event connection and
// the logger.
type runtime struct {
	cfg     *config.Config
	metrics *metrics.Metrics
	nc      *nats.Conn
	emitter *events.Emitter
	logger  *slog.Logger
}

func newRuntime(cfg *config.Config, logger *slog.Logger) (*runtime, error) {
	rt := &runtime{cfg: cfg, logger: logger}
	if cfg.Metrics.Enabled {
		rt.metrics = metrics.New()
	}
	if cfg.Events.NATSURL != "" {
		nc, err := events.Connect(cfg.Events.NATSURL, logger)
		if err != nil {
			return nil, err
		}
		rt.nc = nc
		rt.emitter = events.NewEmitter(nc, cfg.Events.Subject, logger)
	}
	return rt, nil
}

func (rt *runtime) options() api.Options {
	return api.Options{
		PageSize: rt.cfg.Pagination.PageSize,
		Lookup: compose.Options{
			MaxConcurrent: rt.cfg.Lookup.MaxConcurrent,
			Timeout:       rt.cfg.Lookup.Timeout,
		},
		UploadConcurrency: rt.cfg.Upload.Concurrency,
	}
}

// watchEvents logs status changes published by other clients until ctx ends.
func (rt *runtime) watchEvents(ctx context.Context) error {
	if rt.nc == nil {
		return nil
	}
	sub, err := events.Subscribe(rt.nc, rt.cfg.Events.Subject, rt.logger, func(ev events.StatusChanged) {
		rt.logger.Info("task status changed",
			"task", ev.TaskID,
			"from", ev.Previous,
			"to", ev.Status,
			"actor", ev.Actor,
			"event", ev.EventID)
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", rt.cfg.Events.Subject, err)
	}
	<-ctx.Done()
	return sub.Unsubscribe()
}

// serveBoard runs the board server next to the event watcher until ctx is
// cancelled.
func (rt *runtime) serveBoard(ctx context.Context, auth server.Authenticator, factory server.TrackerFactory) error {
	srv := server.New(rt.cfg.Server.Addr, auth, factory, rt.metrics, rt.logger)
	return runUntilDone(ctx, srv.Start, srv.Stop, rt.watchEvents)
}

func (rt *runtime) close() {
	if rt.nc != nil {
		if err := rt.nc.Drain(); err != nil {
			rt.logger.Warn("failed to drain nats connection", "error", err)
		}
	}
}

// runUntilDone starts a server and stops it once ctx is cancelled. Extra
// workers share the server's lifetime.
func runUntilDone(ctx context.Context, start, stop func() error, workers ...func(context.Context) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(start)
	g.Go(func() error {
		<-ctx.Done()
		return stop()
	})
	for _, work := range workers {
		work := work
		g.Go(func() error { return work(ctx) })
	}
	return g.Wait()
}

// staticToken authenticates a REST client as one board-server session.
type staticToken string

func (t staticToken) Token() string { return string(t) }

type remoteBackend struct {
	*runtime
	client *rest.Client
	users  *session.Store
}

func newRemoteBackend(cfg *config.Config, users *session.Store, rt *runtime) (*remoteBackend, error) {
	client, err := rest.New(cfg.API.BaseURL, cfg.API.Timeout, users, rt.logger)
	if err != nil {
		return nil, err
	}
	return &remoteBackend{runtime: rt, client: client, users: users}, nil
}

func (b *remoteBackend) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	resp, err := b.client.Login(ctx, username, password)
	if err != nil {
		return "", nil, err
	}
	user := resp.User
	return resp.Token, &user, nil
}

func (b *remoteBackend) Tracker() (api.Tracker, error) {
	return api.New(b.client, b.users, b.options(), b.emitter, b.metrics, b.logger), nil
}

func (b *remoteBackend) Serve(ctx context.Context) error {
	anonymous, err := rest.New(b.cfg.API.BaseURL, b.cfg.API.Timeout, nil, b.logger)
	if err != nil {
		return err
	}
	defer anonymous.Close()

	factory := func(token string, user domain.User) (api.Tracker, error) {
		client, err := rest.New(b.cfg.API.BaseURL, b.cfg.API.Timeout, staticToken(token), b.logger)
		if err != nil {
			return nil, err
		}
		return api.New(client, api.FixedUser(user), b.options(), b.emitter, b.metrics, b.logger), nil
	}
	return b.serveBoard(ctx, server.NewRemoteAuth(anonymous), factory)
}

func (b *remoteBackend) ServeBackend(context.Context) error {
	return errors.New("the REST backend only runs in the development environment (set PT_ENV=development)")
}

func (b *remoteBackend) Close() error {
	b.close()
	return b.client.Close()
}

type localBackend struct {
	*runtime
	store  *sqlite.SQLiteRepository
	users  *session.Store
	auth   *server.LocalAuth
	secret []byte
}

func newLocalBackend(cfg *config.Config, env Environment, users *session.Store, rt *runtime) (*localBackend, error) {
	var (
		store *sqlite.SQLiteRepository
		err   error
	)
	if env == Testing {
		store, err = config.CreateTestRepository()
	} else {
		store, err = config.CreateRepository(cfg)
	}
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := backend.Bootstrap(ctx, store, cfg.Backend.AdminUsername, cfg.Backend.AdminPassword, rt.logger); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to bootstrap users: %w", err)
	}

	secret := []byte(cfg.Backend.JWTSecret)
	if len(secret) == 0 {
		secret = []byte(uuid.NewString())
		rt.logger.Warn("no JWT secret configured, tokens will not survive a restart")
	}

	return &localBackend{
		runtime: rt,
		store:   store,
		users:   users,
		auth:    server.NewLocalAuth(store, secret, cfg.Backend.TokenTTL),
		secret:  secret,
	}, nil
}

func (b *localBackend) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	return b.auth.Login(ctx, username, password)
}

func (b *localBackend) Tracker() (api.Tracker, error) {
	return api.New(b.store, b.users, b.options(), b.emitter, b.metrics, b.logger), nil
}

func (b *localBackend) Serve(ctx context.Context) error {
	factory := func(_ string, user domain.User) (api.Tracker, error) {
		return api.New(b.store, api.FixedUser(user), b.options(), b.emitter, b.metrics, b.logger), nil
	}
	return b.serveBoard(ctx, b.auth, factory)
}

func (b *localBackend) ServeBackend(ctx context.Context) error {
	srv := backend.NewServer(backend.Options{
		Addr:           b.cfg.Backend.Addr,
		JWTSecret:      b.secret,
		TokenTTL:       b.cfg.Backend.TokenTTL,
		MaxUploadBytes: b.cfg.Backend.MaxUploadBytes,
	}, b.store, b.metrics, b.logger)
	return runUntilDone(ctx, srv.Start, srv.Stop, b.watchEvents)
}

func (b *localBackend) Close() error {
	b.close()
	return b.store.Close()
}
