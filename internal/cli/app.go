package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"project-tracker/internal/api"
	"project-tracker/internal/config"
	"project-tracker/internal/domain"
	"project-tracker/internal/errors"
	"project-tracker/internal/logging"
	"project-tracker/internal/permission"
	"project-tracker/internal/session"
)

// Backend is where the tracker's data lives: the REST API in production or a
// local SQLite store in development.
type Backend interface {
	// Login exchanges credentials for a bearer token.
	Login(ctx context.Context, username, password string) (string, *domain.User, error)
	// Tracker returns the tracker acting for the logged-in user.
	Tracker() (api.Tracker, error)
	// Serve runs the board server until ctx is done.
	Serve(ctx context.Context) error
	// ServeBackend runs the REST API until ctx is done.
	ServeBackend(ctx context.Context) error
	Close() error
}

// BackendFactory opens the backend described by cfg. users is the CLI's
// login session; remote backends read the bearer token from it.
type BackendFactory func(cfg *config.Config, users *session.Store, logger *slog.Logger) (Backend, error)

// App represents the main CLI application
type App struct {
	config  *config.Config
	session *session.Store
	access  *permission.Evaluator
	open    BackendFactory
	backend Backend
	tracker api.Tracker
	logger  *slog.Logger

	in     *bufio.Reader
	out    io.Writer
	errors *ErrorHandler

	registry *CommandRegistry
}

// NewApp creates a new CLI application. The backend is opened on first use,
// after command-line flags have been applied to cfg.
func NewApp(cfg *config.Config, open BackendFactory) *App {
	users := session.NewStore()
	app := &App{
		config:  cfg,
		session: users,
		access:  permission.NewEvaluator(users),
		open:    open,
		in:      bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		errors:  NewErrorHandler(),
	}
	app.registry = NewCommandRegistry(app)
	return app
}

// SetIO redirects prompts and command output.
func (a *App) SetIO(in io.Reader, out io.Writer) {
	a.in = bufio.NewReader(in)
	a.out = out
}

// Config returns the effective configuration.
func (a *App) Config() *config.Config {
	return a.config
}

// Session returns the login session shared by all commands.
func (a *App) Session() *session.Store {
	return a.session
}

// Logger returns the application logger, built from the verbose setting.
func (a *App) Logger() *slog.Logger {
	if a.logger == nil {
		a.logger = logging.New(os.Stderr, a.config.Application.Verbose)
	}
	return a.logger
}

// LoadSession restores the session saved by a previous login. An unreadable
// session file leaves the CLI logged out.
func (a *App) LoadSession() {
	if err := a.session.Load(a.config.Session.File); err != nil {
		a.Logger().Warn("discarding saved session", "file", a.config.Session.File, "error", err)
		a.session.Clear()
	}
}

// Backend opens the backend on first use.
func (a *App) Backend() (Backend, error) {
	if a.backend != nil {
		return a.backend, nil
	}
	if a.open == nil {
		return nil, fmt.Errorf("no backend configured")
	}
	backend, err := a.open(a.config, a.session, a.Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to open backend: %w", err)
	}
	a.backend = backend
	return backend, nil
}

// Tracker returns the tracker for the logged-in user.
func (a *App) Tracker() (api.Tracker, error) {
	if a.tracker != nil {
		return a.tracker, nil
	}
	if !a.session.IsLoggedIn() {
		return nil, errors.NewUnauthenticatedError("tracker")
	}
	backend, err := a.Backend()
	if err != nil {
		return nil, err
	}
	tracker, err := backend.Tracker()
	if err != nil {
		return nil, err
	}
	a.tracker = tracker
	return tracker, nil
}

// Close releases the backend, if one was opened.
func (a *App) Close() error {
	if a.backend == nil {
		return nil
	}
	err := a.backend.Close()
	a.backend = nil
	a.tracker = nil
	return err
}

// Run executes the CLI application with the given arguments
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%s", a.registry.GetUsage())
	}
	return a.registry.Execute(ctx, args[0], args[1:])
}

func (a *App) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.out, format, args...)
}

// prompt writes question and reads one line of input.
func (a *App) prompt(question string) (string, error) {
	a.printf("%s", question)
	line, err := a.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
