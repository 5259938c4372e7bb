package cli

import (
	"context"
	"strconv"

	"project-tracker/internal/api"
	"project-tracker/internal/domain"
	"project-tracker/internal/errors"
	"project-tracker/internal/partition"
	"project-tracker/internal/validation"
)

// BoardCommand handles the board command
type BoardCommand struct {
	app    *App
	Bucket string
	Status string
	Page   int
	Format string
}

// NewBoardCommand creates a new board command handler
func NewBoardCommand(app *App) *BoardCommand {
	return &BoardCommand{app: app, Page: 1}
}

// Execute loads the board and prints the selected buckets.
func (c *BoardCommand) Execute(ctx context.Context, args []string) error {
	format, err := ParseFormat(c.Format)
	if err != nil {
		return c.app.errors.HandleSimple(err)
	}
	var filter domain.StatusFilter
	if c.Status != "" {
		if filter, err = domain.ParseStatusFilter(c.Status); err != nil {
			return c.app.errors.HandleSimple(errors.NewInvalidInputError("status", c.Status, err.Error()))
		}
	}
	if err := validation.ValidatePage(c.Page); err != nil {
		return c.app.errors.HandleSimple(err)
	}

	tracker, err := c.app.Tracker()
	if err != nil {
		return c.app.errors.Handle("load board", err)
	}
	board, err := tracker.LoadBoard(ctx)
	if err != nil {
		return c.app.errors.Handle("load board", err)
	}

	buckets, err := c.selectBuckets(board)
	if err != nil {
		return c.app.errors.HandleSimple(err)
	}
	views := make([]partition.View, 0, len(buckets))
	for _, b := range buckets {
		if c.Status != "" {
			b.FilterByStatus(filter)
		}
		b.SetPage(c.Page)
		views = append(views, b.Snapshot())
	}

	switch format {
	case FormatJSON:
		return writeJSON(c.app.out, views)
	case FormatCSV:
		return c.writeCSV(views)
	default:
		return c.writeTable(board, views)
	}
}

func (c *BoardCommand) selectBuckets(board *api.Board) ([]*partition.Bucket, error) {
	if c.Bucket == "" {
		return board.Buckets.All(), nil
	}
	bucket := board.Buckets.Get(partition.Name(c.Bucket))
	if bucket == nil {
		return nil, errors.NewNotFoundError("bucket", c.Bucket)
	}
	return []*partition.Bucket{bucket}, nil
}

func (c *BoardCommand) writeTable(board *api.Board, views []partition.View) error {
	c.app.printf("%s (%s)\n", board.User.Username, board.User.PrimaryRole())
	for _, view := range views {
		c.app.printf("\n%s  %s  page %d/%d  filter: %s\n",
			bucketTitle(view.Name), view.DisplayRange, view.Page, max(view.TotalPages, 1), view.Filter)
		if len(view.Tasks) == 0 {
			c.app.printf("No tasks.\n")
		} else {
			l := listing{header: taskHeader}
			for _, t := range view.Tasks {
				l.rows = append(l.rows, taskRow(t))
			}
			if err := l.write(c.app.out, FormatTable); err != nil {
				return err
			}
		}
		c.app.printf("%s\n", statusCounts(view.Counts))
	}
	return nil
}

func (c *BoardCommand) writeCSV(views []partition.View) error {
	l := listing{header: append([]string{"BUCKET"}, taskHeader...)}
	for _, view := range views {
		for _, t := range view.Tasks {
			l.rows = append(l.rows, append([]string{string(view.Name)}, taskRow(t)...))
		}
	}
	return l.write(c.app.out, FormatCSV)
}

// DashboardCommand handles the dashboard command
type DashboardCommand struct {
	app    *App
	Format string
}

// NewDashboardCommand creates a new dashboard command handler
func NewDashboardCommand(app *App) *DashboardCommand {
	return &DashboardCommand{app: app}
}

// Execute prints task totals and the most recent tasks.
func (c *DashboardCommand) Execute(ctx context.Context, args []string) error {
	format, err := ParseFormat(c.Format)
	if err != nil {
		return c.app.errors.HandleSimple(err)
	}
	tracker, err := c.app.Tracker()
	if err != nil {
		return c.app.errors.Handle("load dashboard", err)
	}
	if _, err := tracker.LoadBoard(ctx); err != nil {
		return c.app.errors.Handle("load dashboard", err)
	}
	dash := tracker.Dashboard()

	switch format {
	case FormatJSON:
		return writeJSON(c.app.out, dash)
	case FormatCSV:
		l := listing{header: taskHeader}
		for _, t := range dash.Recent {
			l.rows = append(l.rows, taskRow(t))
		}
		return l.write(c.app.out, FormatCSV)
	}

	c.app.printf("Total tasks: %d\n", dash.Total)
	c.app.printf("%s\n", statusCounts(dash.Counts))
	c.app.printf("Overdue: %d\n", dash.Overdue)
	if len(dash.Recent) == 0 {
		return nil
	}
	c.app.printf("\nRecent tasks\n")
	l := listing{header: taskHeader}
	for _, t := range dash.Recent {
		l.rows = append(l.rows, taskRow(t))
	}
	return l.write(c.app.out, FormatTable)
}

func parseID(field, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewInvalidInputError(field, raw, "must be a positive integer")
	}
	return id, nil
}
