package cli

import (
	"context"
	"strconv"
	"strings"

	"project-tracker/internal/domain"
	"project-tracker/internal/errors"
	"project-tracker/internal/partition"
	"project-tracker/internal/validation"
)

// ProjectsCommand handles the projects command
type ProjectsCommand struct {
	app    *App
	Page   int
	Format string
}

// NewProjectsCommand creates a new projects command handler
func NewProjectsCommand(app *App) *ProjectsCommand {
	return &ProjectsCommand{app: app, Page: 1}
}

// Execute lists one page of the projects visible to the current user.
func (c *ProjectsCommand) Execute(ctx context.Context, args []string) error {
	format, err := ParseFormat(c.Format)
	if err != nil {
		return c.app.errors.HandleSimple(err)
	}
	if err := validation.ValidatePage(c.Page); err != nil {
		return c.app.errors.HandleSimple(err)
	}
	tracker, err := c.app.Tracker()
	if err != nil {
		return c.app.errors.Handle("list projects", err)
	}
	projects, err := tracker.Projects(ctx)
	if err != nil {
		return c.app.errors.Handle("list projects", err)
	}

	pager := partition.NewPaginator(projects, c.Page, c.app.config.Pagination.PageSize)
	if format == FormatJSON {
		return writeJSON(c.app.out, pager.Items())
	}

	l := listing{header: []string{"ID", "NAME", "MANAGER", "DEADLINE", "CREATED", "ACCESS"}}
	for _, p := range pager.Items() {
		l.rows = append(l.rows, []string{
			strconv.FormatInt(p.ID, 10),
			p.Name,
			orDash(p.ManagerUsername),
			formatDate(p.Deadline),
			p.CreatedAt.Format(dateLayout),
			c.access(p),
		})
	}
	if err := l.write(c.app.out, format); err != nil {
		return err
	}
	if format == FormatTable {
		c.app.printf("%s  page %d/%d\n", pager.DisplayRange(), pager.Page(), max(pager.TotalPages(), 1))
		if pager.HasNext() {
			c.app.printf("more: pt projects --page %d\n", pager.Page()+1)
		}
	}
	return nil
}

// access names what the current user may do with project.
func (c *ProjectsCommand) access(project domain.Project) string {
	switch {
	case c.app.access.CanDeleteProject():
		return "edit, delete"
	case c.app.access.CanEditProject(project):
		return "edit"
	default:
		return "view"
	}
}

// UsersCommand handles the users command
type UsersCommand struct {
	app    *App
	Role   string
	Format string
}

// NewUsersCommand creates a new users command handler
func NewUsersCommand(app *App) *UsersCommand {
	return &UsersCommand{app: app}
}

// Execute lists the users, optionally only those holding Role.
func (c *UsersCommand) Execute(ctx context.Context, args []string) error {
	format, err := ParseFormat(c.Format)
	if err != nil {
		return c.app.errors.HandleSimple(err)
	}
	var role domain.Role
	if c.Role != "" {
		if role, err = domain.ParseRole(c.Role); err != nil {
			return c.app.errors.HandleSimple(errors.NewInvalidInputError("role", c.Role, err.Error()))
		}
	}
	tracker, err := c.app.Tracker()
	if err != nil {
		return c.app.errors.Handle("list users", err)
	}
	users, err := tracker.Users(ctx, role)
	if err != nil {
		return c.app.errors.Handle("list users", err)
	}
	if format == FormatJSON {
		return writeJSON(c.app.out, users)
	}

	l := listing{header: []string{"ID", "USERNAME", "EMAIL", "ROLES"}}
	for _, u := range users {
		roles := make([]string, 0, len(u.Roles))
		for _, r := range u.EffectiveRoles() {
			roles = append(roles, r.String())
		}
		l.rows = append(l.rows, []string{strconv.FormatInt(u.ID, 10), u.Username, orDash(u.Email), strings.Join(roles, ",")})
	}
	return l.write(c.app.out, format)
}
