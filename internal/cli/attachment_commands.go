package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"project-tracker/internal/errors"
	"project-tracker/internal/upload"
)

// UploadCommand handles the upload command
type UploadCommand struct {
	app *App
}

// NewUploadCommand creates a new upload command handler
func NewUploadCommand(app *App) *UploadCommand {
	return &UploadCommand{app: app}
}

// Execute uploads one or more files to a task and reports each file's outcome.
// Every file is checked before the first upload starts.
func (c *UploadCommand) Execute(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.NewInvalidInputError("command", "upload", "usage: pt upload <task-id> <file>...")
	}
	id, err := parseID("task-id", args[0])
	if err != nil {
		return c.app.errors.HandleSimple(err)
	}
	files := make([]upload.File, 0, len(args)-1)
	for _, path := range args[1:] {
		f, err := upload.FromPath(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		files = append(files, f)
	}

	tracker, err := c.app.Tracker()
	if err != nil {
		return c.app.errors.Handle("upload attachments", err)
	}
	report, err := tracker.UploadAttachments(ctx, id, files)
	if err != nil {
		return c.app.errors.Handle("upload attachments", err)
	}

	for _, item := range report.Items {
		if item.OK() {
			c.app.printf("uploaded  %s (%s)\n", item.Name, formatSize(item.Attachment.Size))
		} else {
			c.app.printf("failed    %s: %s\n", item.Name, errors.GetUserMessage(item.Err))
		}
	}
	if failed := len(report.Failed()); failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(report.Items))
	}
	return nil
}

// DownloadCommand handles the download command
type DownloadCommand struct {
	app    *App
	Output string
}

// NewDownloadCommand creates a new download command handler
func NewDownloadCommand(app *App) *DownloadCommand {
	return &DownloadCommand{app: app}
}

// Execute writes an attachment's content to Output, or to standard output
// when Output is empty or "-".
func (c *DownloadCommand) Execute(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.NewInvalidInputError("command", "download", "usage: pt download <attachment-id>")
	}
	id, err := parseID("attachment-id", args[0])
	if err != nil {
		return c.app.errors.HandleSimple(err)
	}
	tracker, err := c.app.Tracker()
	if err != nil {
		return c.app.errors.Handle("download attachment", err)
	}
	body, err := tracker.DownloadAttachment(ctx, id)
	if err != nil {
		return c.app.errors.Handle("download attachment", err)
	}
	defer body.Close()

	if c.Output == "" || c.Output == "-" {
		_, err = io.Copy(c.app.out, body)
		return err
	}
	f, err := os.Create(c.Output)
	if err != nil {
		return err
	}
	n, err := io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", c.Output, err)
	}
	c.app.Logger().Debug("attachment downloaded", "id", id, "bytes", n)
	return nil
}
