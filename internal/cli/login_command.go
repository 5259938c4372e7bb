package cli

import (
	"context"
	"fmt"

	"project-tracker/internal/session"
	"project-tracker/internal/validation"
)

// LoginCommand handles the login command
type LoginCommand struct {
	app      *App
	Password string
}

// NewLoginCommand creates a new login command handler
func NewLoginCommand(app *App) *LoginCommand {
	return &LoginCommand{app: app}
}

// Execute logs in and saves the session for later invocations. The username
// and password are prompted for when not given.
func (c *LoginCommand) Execute(ctx context.Context, args []string) error {
	var username string
	if len(args) > 0 {
		username = args[0]
	} else {
		var err error
		if username, err = c.app.prompt("Username: "); err != nil {
			return err
		}
	}
	password := c.Password
	if password == "" {
		var err error
		if password, err = c.app.prompt("Password: "); err != nil {
			return err
		}
	}
	if err := validation.ValidateCredentials(username, password); err != nil {
		return c.app.errors.Handle("log in", err)
	}

	backend, err := c.app.Backend()
	if err != nil {
		return err
	}
	token, user, err := backend.Login(ctx, username, password)
	if err != nil {
		if c.app.errors.IsUnauthenticatedError(err) {
			return fmt.Errorf("failed to log in: invalid username or password")
		}
		return c.app.errors.Handle("log in", err)
	}

	c.app.session.SetSession(token, *user)
	if err := c.app.session.Save(c.app.config.Session.File); err != nil {
		return err
	}
	c.app.Logger().Debug("session saved", "file", c.app.config.Session.File)
	c.app.printf("Logged in as %s (%s)\n", user.Username, user.PrimaryRole())
	return nil
}

// LogoutCommand handles the logout command
type LogoutCommand struct {
	app *App
}

// NewLogoutCommand creates a new logout command handler
func NewLogoutCommand(app *App) *LogoutCommand {
	return &LogoutCommand{app: app}
}

// Execute forgets the saved session.
func (c *LogoutCommand) Execute(ctx context.Context, args []string) error {
	c.app.session.Clear()
	if err := session.Remove(c.app.config.Session.File); err != nil {
		return err
	}
	c.app.printf("Logged out\n")
	return nil
}
