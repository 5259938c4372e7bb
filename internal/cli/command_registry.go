package cli

import (
	"context"
	"strings"

	"project-tracker/internal/errors"
)

// Command represents a CLI command
type Command interface {
	Execute(ctx context.Context, args []string) error
}

// CommandRegistry manages all available commands
type CommandRegistry struct {
	commands map[string]Command
	order    []string
}

// NewCommandRegistry creates a new command registry
func NewCommandRegistry(app *App) *CommandRegistry {
	registry := &CommandRegistry{
		commands: make(map[string]Command),
	}

	registry.Register("login", NewLoginCommand(app))
	registry.Register("logout", NewLogoutCommand(app))
	registry.Register("board", NewBoardCommand(app))
	registry.Register("dashboard", NewDashboardCommand(app))
	registry.Register("status", NewStatusCommand(app))
	registry.Register("show", NewShowCommand(app))
	registry.Register("comment", NewCommentCommand(app))
	registry.Register("delete", NewDeleteCommand(app))
	registry.Register("upload", NewUploadCommand(app))
	registry.Register("download", NewDownloadCommand(app))
	registry.Register("projects", NewProjectsCommand(app))
	registry.Register("users", NewUsersCommand(app))
	registry.Register("serve", NewServeCommand(app))
	registry.Register("backend", NewBackendCommand(app))

	return registry
}

// Register adds a command to the registry
func (r *CommandRegistry) Register(name string, command Command) {
	if _, exists := r.commands[name]; !exists {
		r.order = append(r.order, name)
	}
	r.commands[name] = command
}

// Get returns the named command, or nil.
func (r *CommandRegistry) Get(name string) Command {
	return r.commands[name]
}

// Execute runs the specified command with the given arguments
func (r *CommandRegistry) Execute(ctx context.Context, commandName string, args []string) error {
	command, exists := r.commands[commandName]
	if !exists {
		return errors.NewInvalidInputError("command", commandName, "unknown command")
	}
	return command.Execute(ctx, args)
}

// GetUsage returns the usage string for the CLI
func (r *CommandRegistry) GetUsage() string {
	return "usage: pt " + strings.Join(r.order, "|") + " [args]"
}
