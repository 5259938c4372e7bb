package cli

import (
	"context"
	"strconv"
	"strings"

	"project-tracker/internal/domain"
	"project-tracker/internal/errors"
)

// StatusCommand handles the status command
type StatusCommand struct {
	app *App
}

// NewStatusCommand creates a new status command handler
func NewStatusCommand(app *App) *StatusCommand {
	return &StatusCommand{app: app}
}

// Execute sets the status of one task. The status may span several
// arguments, as in "pt status 12 en progreso".
func (c *StatusCommand) Execute(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.NewInvalidInputError("command", "status", "usage: pt status <task-id> <status>")
	}
	id, err := parseID("task-id", args[0])
	if err != nil {
		return c.app.errors.HandleSimple(err)
	}
	raw := strings.Join(args[1:], " ")
	status, err := domain.ParseStatus(raw)
	if err != nil {
		return c.app.errors.HandleSimple(errors.NewInvalidInputError("status", raw, err.Error()))
	}

	tracker, err := c.app.Tracker()
	if err != nil {
		return c.app.errors.Handle("change status", err)
	}
	result, err := tracker.SetStatus(ctx, id, status)
	if err != nil {
		return c.app.errors.Handle("change status", err)
	}
	c.app.printf("Task %d %q is now %s\n", result.Task.ID, result.Task.Title, result.Task.Status)
	return nil
}

// ShowCommand handles the show command
type ShowCommand struct {
	app    *App
	Format string
}

// NewShowCommand creates a new show command handler
func NewShowCommand(app *App) *ShowCommand {
	return &ShowCommand{app: app}
}

// Execute prints a task with its comments, attachments and what the current
// user may do with it.
func (c *ShowCommand) Execute(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.NewInvalidInputError("command", "show", "usage: pt show <task-id>")
	}
	format, err := ParseFormat(c.Format)
	if err != nil {
		return c.app.errors.HandleSimple(err)
	}
	id, err := parseID("task-id", args[0])
	if err != nil {
		return c.app.errors.HandleSimple(err)
	}
	tracker, err := c.app.Tracker()
	if err != nil {
		return c.app.errors.Handle("show task", err)
	}
	detail, err := tracker.TaskDetail(ctx, id)
	if err != nil {
		return c.app.errors.Handle("show task", err)
	}
	if format == FormatJSON {
		return writeJSON(c.app.out, detail)
	}

	t := detail.Task
	c.app.printf("#%d %s\n", t.ID, t.Title)
	if t.Description != "" {
		c.app.printf("%s\n", t.Description)
	}
	c.app.printf("\n")
	fields := listing{header: []string{"FIELD", "VALUE"}, rows: [][]string{
		{"Status", string(t.Status)},
		{"Priority", string(t.Priority)},
		{"Project", orDash(t.ProjectName)},
		{"Manager", managerName(t.ProjectManager)},
		{"Assignee", orDash(t.AssigneeUsername)},
		{"Creator", orDash(t.CreatorUsername)},
		{"Created", t.CreatedAt.Format(dateLayout)},
		{"Deadline", formatDate(t.Deadline)},
	}}
	if err := fields.write(c.app.out, format); err != nil {
		return err
	}

	if len(detail.Comments) > 0 {
		c.app.printf("\nComments\n")
		l := listing{header: []string{"ID", "AUTHOR", "DATE", "TEXT"}}
		for _, cm := range detail.Comments {
			l.rows = append(l.rows, []string{
				strconv.FormatInt(cm.ID, 10), orDash(cm.AuthorUsername), cm.CreatedAt.Format(dateLayout), cm.Text,
			})
		}
		if err := l.write(c.app.out, format); err != nil {
			return err
		}
	}
	if len(detail.Attachments) > 0 {
		c.app.printf("\nAttachments\n")
		l := listing{header: []string{"ID", "NAME", "SIZE", "UPLOADER", "DATE"}}
		for _, a := range detail.Attachments {
			l.rows = append(l.rows, []string{
				strconv.FormatInt(a.ID, 10), a.Name, formatSize(a.Size), orDash(a.UploaderUsername), a.UploadedAt.Format(dateLayout),
			})
		}
		if err := l.write(c.app.out, format); err != nil {
			return err
		}
	}

	p := detail.Permissions
	var allowed []string
	for _, perm := range []struct {
		ok   bool
		name string
	}{
		{p.Edit, "edit"},
		{p.Delete, "delete"},
		{p.ChangeStatus, "change status"},
		{p.UploadAttachments, "upload"},
		{p.Comment, "comment"},
	} {
		if perm.ok {
			allowed = append(allowed, perm.name)
		}
	}
	if len(allowed) > 0 {
		c.app.printf("\nYou may: %s\n", strings.Join(allowed, ", "))
	}
	return nil
}

// CommentCommand handles the comment command
type CommentCommand struct {
	app *App
}

// NewCommentCommand creates a new comment command handler
func NewCommentCommand(app *App) *CommentCommand {
	return &CommentCommand{app: app}
}

// Execute adds a comment to a task.
func (c *CommentCommand) Execute(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.NewInvalidInputError("command", "comment", "usage: pt comment <task-id> <text>")
	}
	id, err := parseID("task-id", args[0])
	if err != nil {
		return c.app.errors.HandleSimple(err)
	}
	tracker, err := c.app.Tracker()
	if err != nil {
		return c.app.errors.Handle("add comment", err)
	}
	comment, err := tracker.AddComment(ctx, id, strings.Join(args[1:], " "))
	if err != nil {
		return c.app.errors.Handle("add comment", err)
	}
	c.app.printf("Added comment %d to task %d\n", comment.ID, id)
	return nil
}

// DeleteCommand handles the delete command
type DeleteCommand struct {
	app *App
	Yes bool
}

// NewDeleteCommand creates a new delete command handler
func NewDeleteCommand(app *App) *DeleteCommand {
	return &DeleteCommand{app: app}
}

// Execute deletes a task after asking for confirmation, unless Yes is set.
func (c *DeleteCommand) Execute(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.NewInvalidInputError("command", "delete", "usage: pt delete <task-id>")
	}
	id, err := parseID("task-id", args[0])
	if err != nil {
		return c.app.errors.HandleSimple(err)
	}
	tracker, err := c.app.Tracker()
	if err != nil {
		return c.app.errors.Handle("delete task", err)
	}
	detail, err := tracker.TaskDetail(ctx, id)
	if err != nil {
		return c.app.errors.Handle("delete task", err)
	}
	if !c.app.access.CanDeleteTask(detail.Task) {
		return c.app.errors.Handle("delete task", errors.NewPermissionError("delete", "task"))
	}

	if !c.Yes {
		answer, err := c.app.prompt("Delete task " + strconv.FormatInt(id, 10) + " \"" + detail.Task.Title + "\"? [y/N]: ")
		if err != nil {
			return err
		}
		if a := strings.ToLower(answer); a != "y" && a != "yes" {
			c.app.printf("Delete cancelled.\n")
			return nil
		}
	}

	if err := tracker.DeleteTask(ctx, id); err != nil {
		return c.app.errors.Handle("delete task", err)
	}
	c.app.printf("Deleted task: %s\n", detail.Task.Title)
	return nil
}
