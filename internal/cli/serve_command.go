package cli

import (
	"context"

	"project-tracker/internal/errors"
)

// ServeCommand handles the serve command
type ServeCommand struct {
	app *App
}

// NewServeCommand creates a new serve command handler
func NewServeCommand(app *App) *ServeCommand {
	return &ServeCommand{app: app}
}

// Execute runs the board server until ctx is cancelled.
func (c *ServeCommand) Execute(ctx context.Context, args []string) error {
	if len(args) > 0 {
		return errors.NewInvalidInputError("command", "serve", "takes no arguments")
	}
	backend, err := c.app.Backend()
	if err != nil {
		return err
	}
	c.app.Logger().Info("board server listening", "addr", c.app.config.Server.Addr)
	return backend.Serve(ctx)
}

// BackendCommand handles the backend command
type BackendCommand struct {
	app *App
}

// NewBackendCommand creates a new backend command handler
func NewBackendCommand(app *App) *BackendCommand {
	return &BackendCommand{app: app}
}

// Execute runs the REST API until ctx is cancelled.
func (c *BackendCommand) Execute(ctx context.Context, args []string) error {
	if len(args) > 0 {
		return errors.NewInvalidInputError("command", "backend", "takes no arguments")
	}
	backend, err := c.app.Backend()
	if err != nil {
		return err
	}
	c.app.Logger().Info("rest api listening", "addr", c.app.config.Backend.Addr)
	return backend.ServeBackend(ctx)
}
