package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"project-tracker/internal/config"
)

type runMode int

const (
	runWithTimeout runMode = iota
	runInteractive
	runUntilSignal
)

// RootCommand represents the base command when called without any subcommands
type RootCommand struct {
	cmd *cobra.Command
	app *App
}

// NewRootCommand creates the root cobra command with global flags
func NewRootCommand(app *App) *RootCommand {
	root := &RootCommand{app: app}

	root.cmd = &cobra.Command{
		Use:   "pt",
		Short: "A command-line client for the project tracker",
		Long: `Project Tracker (pt) shows the tasks you are entitled to see, split into
buckets by role, and lets you work on them from the terminal.

FEATURES:
  • Board of tasks grouped into "all", "assignedToMe" and "managedProjects"
  • Status filtering and pagination per bucket
  • Status changes kept consistent across every bucket holding the task
  • Comments and concurrent attachment uploads
  • A board server for the browser UI and a local REST API for development

EXAMPLES:
  pt login ana                             # Log in and remember the session
  pt board                                 # Show every bucket, first page
  pt board --bucket assignedToMe --status "En progreso"
  pt status 12 completada                  # Mark task 12 as completed
  pt show 12                               # Task detail with comments and attachments
  pt upload 12 report.pdf notes.txt        # Upload two attachments
  pt board --format csv > board.csv        # Export the current page as CSV

CONFIGURATION:
  Configuration follows this priority order: command-line flags > environment variables > config file > defaults

    PT_ENV                                 production, development or testing (default: production)
    PT_API_URL                             REST API base URL (default: http://localhost:8080)
    PT_SESSION_FILE                        Saved login session (default: ~/.pt/session.json)
    PT_LOOKUP_TIMEOUT                      Manager lookup timeout (default: 5s)
    PT_LOOKUP_MAX_CONCURRENT               Concurrent manager lookups (default: unlimited)
    PT_PAGE_SIZE                           Rows per page (default: 10)
    PT_UPLOAD_CONCURRENCY                  Concurrent uploads (default: 3)
    PT_DB_DIR, PT_DB_FILENAME              Local database (development only)
    PT_SERVER_ADDR                         Board server address (default: :8081)
    PT_BACKEND_ADDR                        Local REST API address (default: :8080)
    PT_ADMIN_USERNAME, PT_ADMIN_PASSWORD   First administrator of a new local database (default: admin/admin)
    PT_NATS_URL                            Publish status changes to NATS when set
    PT_APP_TIMEOUT                         Command timeout (default: 60s)

GETTING HELP:
  pt [command] --help                      # Get help for any specific command`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := root.getConfigFromFlags(); err != nil {
				return err
			}
			root.app.LoadSession()
			return nil
		},
	}

	root.addGlobalFlags()
	root.addSubcommands()

	return root
}

// Command exposes the cobra command, mainly for tests.
func (r *RootCommand) Command() *cobra.Command {
	return r.cmd
}

// Execute runs the root command and releases the backend afterwards.
func (r *RootCommand) Execute() error {
	defer func() {
		if err := r.app.Close(); err != nil {
			r.app.Logger().Warn("failed to close backend", "error", err)
		}
	}()
	return r.cmd.Execute()
}

// addGlobalFlags adds global configuration flags
func (r *RootCommand) addGlobalFlags() {
	flags := r.cmd.PersistentFlags()

	flags.String("api-url", "", "REST API base URL (overrides PT_API_URL)")
	flags.String("session-file", "", "Saved session file (overrides PT_SESSION_FILE)")

	flags.Duration("lookup-timeout", 0, "Manager lookup timeout (overrides PT_LOOKUP_TIMEOUT)")
	flags.Int("lookup-concurrency", 0, "Concurrent manager lookups (overrides PT_LOOKUP_MAX_CONCURRENT)")
	flags.Int("page-size", 0, "Rows per page (overrides PT_PAGE_SIZE)")
	flags.Int("upload-concurrency", 0, "Concurrent uploads (overrides PT_UPLOAD_CONCURRENCY)")

	flags.String("db-dir", "", "Database directory (overrides PT_DB_DIR)")
	flags.String("db-filename", "", "Database filename (overrides PT_DB_FILENAME)")

	flags.String("server-addr", "", "Board server address (overrides PT_SERVER_ADDR)")
	flags.String("backend-addr", "", "REST API address (overrides PT_BACKEND_ADDR)")
	flags.String("jwt-secret", "", "Token signing secret of the local REST API (overrides PT_JWT_SECRET)")
	flags.String("nats-url", "", "NATS server for status events (overrides PT_NATS_URL)")
	flags.Bool("metrics", false, "Expose prometheus metrics (overrides PT_METRICS_ENABLED)")

	flags.Duration("app-timeout", 0, "Command timeout (overrides PT_APP_TIMEOUT)")
	flags.Bool("verbose", false, "Enable verbose output (overrides PT_APP_VERBOSE)")
}

// addSubcommands adds all CLI subcommands to the root command
func (r *RootCommand) addSubcommands() {
	login := r.app.registry.Get("login").(*LoginCommand)
	loginCmd := &cobra.Command{
		Use:   "login [username]",
		Short: "Log in and save the session",
		Long:  "Log in with a username and password. Missing values are prompted for.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  r.run("login", runInteractive),
	}
	loginCmd.Flags().StringVar(&login.Password, "password", "", "Password (prompted for when omitted)")

	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE:  r.run("logout", runWithTimeout),
	}

	board := r.app.registry.Get("board").(*BoardCommand)
	boardCmd := &cobra.Command{
		Use:   "board",
		Short: "Show your tasks grouped into buckets",
		Long: `Load the tasks you may see and show them grouped into buckets:

  all              every task (administrators)
  assignedToMe     tasks assigned to you
  managedProjects  other tasks of the projects you manage (managers)

Examples:
  pt board
  pt board --bucket managedProjects --page 2
  pt board --status pendiente --format json`,
		Args: cobra.NoArgs,
		RunE: r.run("board", runWithTimeout),
	}
	boardCmd.Flags().StringVar(&board.Bucket, "bucket", "", "Only show this bucket")
	boardCmd.Flags().StringVar(&board.Status, "status", "", "Only show tasks with this status (todas for all)")
	boardCmd.Flags().IntVar(&board.Page, "page", 1, "Page to show")
	boardCmd.Flags().StringVar(&board.Format, "format", "table", "Output format: table, csv or json")

	dashboard := r.app.registry.Get("dashboard").(*DashboardCommand)
	dashboardCmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show task totals and recent tasks",
		Args:  cobra.NoArgs,
		RunE:  r.run("dashboard", runWithTimeout),
	}
	dashboardCmd.Flags().StringVar(&dashboard.Format, "format", "table", "Output format: table, csv or json")

	statusCmd := &cobra.Command{
		Use:   "status <task-id> <status>",
		Short: "Change the status of a task",
		Long: `Change the status of a task. Accepted statuses are Pendiente, En progreso
and Completada, or their English names.

Examples:
  pt status 12 en progreso
  pt status 12 completed`,
		Args: cobra.MinimumNArgs(2),
		RunE: r.run("status", runWithTimeout),
	}

	show := r.app.registry.Get("show").(*ShowCommand)
	showCmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task with its comments and attachments",
		Args:  cobra.ExactArgs(1),
		RunE:  r.run("show", runWithTimeout),
	}
	showCmd.Flags().StringVar(&show.Format, "format", "table", "Output format: table, csv or json")

	commentCmd := &cobra.Command{
		Use:   "comment <task-id> <text>",
		Short: "Add a comment to a task",
		Args:  cobra.MinimumNArgs(2),
		RunE:  r.run("comment", runWithTimeout),
	}

	del := r.app.registry.Get("delete").(*DeleteCommand)
	deleteCmd := &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task",
		Long:  "Delete a task. This operation cannot be undone; you are asked to confirm unless --yes is given.",
		Args:  cobra.ExactArgs(1),
		RunE:  r.run("delete", runInteractive),
	}
	deleteCmd.Flags().BoolVarP(&del.Yes, "yes", "y", false, "Do not ask for confirmation")

	uploadCmd := &cobra.Command{
		Use:   "upload <task-id> <file>...",
		Short: "Upload attachments to a task",
		Args:  cobra.MinimumNArgs(2),
		RunE:  r.run("upload", runInteractive),
	}

	download := r.app.registry.Get("download").(*DownloadCommand)
	downloadCmd := &cobra.Command{
		Use:   "download <attachment-id>",
		Short: "Download an attachment",
		Args:  cobra.ExactArgs(1),
		RunE:  r.run("download", runInteractive),
	}
	downloadCmd.Flags().StringVarP(&download.Output, "output", "o", "", "Write to this file instead of standard output")

	projects := r.app.registry.Get("projects").(*ProjectsCommand)
	projectsCmd := &cobra.Command{
		Use:   "projects",
		Short: "List your projects",
		Args:  cobra.NoArgs,
		RunE:  r.run("projects", runWithTimeout),
	}
	projectsCmd.Flags().IntVar(&projects.Page, "page", 1, "Page to show")
	projectsCmd.Flags().StringVar(&projects.Format, "format", "table", "Output format: table, csv or json")

	users := r.app.registry.Get("users").(*UsersCommand)
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "List users (administrators and managers)",
		Args:  cobra.NoArgs,
		RunE:  r.run("users", runWithTimeout),
	}
	usersCmd.Flags().StringVar(&users.Role, "role", "", "Only list users with this role")
	usersCmd.Flags().StringVar(&users.Format, "format", "table", "Output format: table, csv or json")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the board server for the browser UI",
		Args:  cobra.NoArgs,
		RunE:  r.run("serve", runUntilSignal),
	}

	backendCmd := &cobra.Command{
		Use:   "backend",
		Short: "Run the REST API over the local database (development)",
		Args:  cobra.NoArgs,
		RunE:  r.run("backend", runUntilSignal),
	}

	r.cmd.AddCommand(
		loginCmd,
		logoutCmd,
		boardCmd,
		dashboardCmd,
		statusCmd,
		showCmd,
		commentCmd,
		deleteCmd,
		uploadCmd,
		downloadCmd,
		projectsCmd,
		usersCmd,
		serveCmd,
		backendCmd,
	)
}

// run returns a RunE that executes the registered command under a context
// bounded according to mode.
func (r *RootCommand) run(name string, mode runMode) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		var cancel context.CancelFunc
		switch mode {
		case runUntilSignal:
			ctx, cancel = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		case runInteractive:
			// Prompts and uploads get twice the normal budget.
			ctx, cancel = context.WithTimeout(ctx, r.getAppTimeout()*2)
		default:
			ctx, cancel = context.WithTimeout(ctx, r.getAppTimeout())
		}
		defer cancel()
		return r.app.registry.Execute(ctx, name, args)
	}
}

// getAppTimeout returns the configured application timeout
func (r *RootCommand) getAppTimeout() time.Duration {
	if r.app.config != nil && r.app.config.Application.Timeout > 0 {
		return r.app.config.Application.Timeout
	}
	return 60 * time.Second
}

// getConfigFromFlags applies the flags the user set on top of the loaded configuration
func (r *RootCommand) getConfigFromFlags() error {
	if r.app.config == nil {
		return fmt.Errorf("configuration not initialized")
	}
	flags := r.cmd.PersistentFlags()
	overrides := &config.ConfigOverrides{}

	str := func(name string) *string {
		if !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetString(name)
		return &v
	}
	num := func(name string) *int {
		if !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetInt(name)
		return &v
	}
	dur := func(name string) *time.Duration {
		if !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetDuration(name)
		return &v
	}
	flag := func(name string) *bool {
		if !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetBool(name)
		return &v
	}

	overrides.APIURL = str("api-url")
	overrides.SessionFile = str("session-file")
	overrides.LookupTimeout = dur("lookup-timeout")
	overrides.LookupMaxConcurrent = num("lookup-concurrency")
	overrides.PageSize = num("page-size")
	overrides.UploadConcurrency = num("upload-concurrency")
	overrides.DBDir = str("db-dir")
	overrides.DBFilename = str("db-filename")
	overrides.ServerAddr = str("server-addr")
	overrides.BackendAddr = str("backend-addr")
	overrides.JWTSecret = str("jwt-secret")
	overrides.NATSURL = str("nats-url")
	overrides.MetricsEnabled = flag("metrics")
	overrides.Timeout = dur("app-timeout")
	overrides.Verbose = flag("verbose")

	r.app.config.ApplyOverrides(overrides)
	return r.app.config.Validate()
}
