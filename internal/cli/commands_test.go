package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"project-tracker/internal/api"
	"project-tracker/internal/domain"
	"project-tracker/internal/partition"
)

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o600)
}

func id(v int64) string { return strconv.FormatInt(v, 10) }

func TestBoardCommand_Manager(t *testing.T) {
	env := setupTestApp(t)
	env.loginAs(env.manager)

	require.NoError(t, env.run(t, "board"))
	out := env.out.String()
	assert.Contains(t, out, "ana (MANAGER)")
	assert.Contains(t, out, "Assigned to me  1 - 2 de 2")
	assert.Contains(t, out, "Managed projects  1 - 1 de 1")
	assert.Contains(t, out, "review")
	assert.Contains(t, out, "deploy")
	assert.Contains(t, out, "design")
	assert.Contains(t, out, "Pendiente: 2  En progreso: 0  Completada: 0")
}

func TestBoardCommand_JSON(t *testing.T) {
	env := setupTestApp(t)
	env.loginAs(env.manager)
	board := env.app.registry.Get("board").(*BoardCommand)
	board.Format = "json"

	require.NoError(t, env.run(t, "board"))
	var views []partition.View
	require.NoError(t, json.Unmarshal(env.out.Bytes(), &views))
	require.Len(t, views, 2)
	assert.Equal(t, partition.BucketAssignedToMe, views[0].Name)
	assert.Equal(t, partition.BucketManagedProjects, views[1].Name)
	require.Len(t, views[1].Tasks, 1)
	assert.Equal(t, env.design.ID, views[1].Tasks[0].ID)
	require.NotNil(t, views[1].Tasks[0].ProjectManager)
	assert.Equal(t, "ana", views[1].Tasks[0].ProjectManager.Username)
}

func TestBoardCommand_BucketFilterAndPage(t *testing.T) {
	env := setupTestApp(t)
	env.loginAs(env.manager)
	board := env.app.registry.Get("board").(*BoardCommand)

	board.Bucket = string(partition.BucketManagedProjects)
	require.NoError(t, env.run(t, "board"))
	assert.NotContains(t, env.out.String(), "Assigned to me")
	assert.Contains(t, env.out.String(), "design")

	board.Status = "completada"
	require.NoError(t, env.run(t, "board"))
	assert.Contains(t, env.out.String(), "No tasks.")
	assert.Contains(t, env.out.String(), "filter: Completada")

	board.Status = ""
	board.Page = 2
	require.NoError(t, env.run(t, "board"))
	assert.Contains(t, env.out.String(), "3 - 1 de 1")
	assert.Contains(t, env.out.String(), "No tasks.")
}

func TestBoardCommand_CSV(t *testing.T) {
	env := setupTestApp(t)
	env.loginAs(env.user)
	env.app.registry.Get("board").(*BoardCommand).Format = "csv"

	require.NoError(t, env.run(t, "board"))
	lines := strings.Split(strings.TrimSpace(env.out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "BUCKET,ID,TITLE,STATUS,PRIORITY,PROJECT,ASSIGNEE,MANAGER,DEADLINE", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "assignedToMe,"+id(env.design.ID)+",design,Pendiente,"))
	assert.Contains(t, lines[1], ",ana,")
}

func TestBoardCommand_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*BoardCommand)
		want  string
	}{
		{name: "unknown bucket", setup: func(b *BoardCommand) { b.Bucket = "archive" }, want: "bucket not found"},
		{name: "unknown status", setup: func(b *BoardCommand) { b.Status = "someday" }, want: "someday"},
		{name: "bad page", setup: func(b *BoardCommand) { b.Page = 0 }, want: "page"},
		{name: "bad format", setup: func(b *BoardCommand) { b.Format = "xml" }, want: "table, csv, json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestApp(t)
			env.loginAs(env.manager)
			tt.setup(env.app.registry.Get("board").(*BoardCommand))

			err := env.run(t, "board")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDashboardCommand(t *testing.T) {
	env := setupTestApp(t)
	env.loginAs(env.admin)

	require.NoError(t, env.run(t, "dashboard"))
	out := env.out.String()
	assert.Contains(t, out, "Total tasks: 3")
	assert.Contains(t, out, "Pendiente: 3")
	assert.Contains(t, out, "Overdue: 0")
	assert.Contains(t, out, "Recent tasks")

	env.app.registry.Get("dashboard").(*DashboardCommand).Format = "json"
	require.NoError(t, env.run(t, "dashboard"))
	var dash api.Dashboard
	require.NoError(t, json.Unmarshal(env.out.Bytes(), &dash))
	assert.Equal(t, 3, dash.Total)
	require.Len(t, dash.Recent, 3)
	assert.Equal(t, env.deploy.ID, dash.Recent[0].ID)
}

func TestStatusCommand(t *testing.T) {
	env := setupTestApp(t)
	env.loginAs(env.user)

	require.NoError(t, env.run(t, "status", id(env.design.ID), "en", "progreso"))
	assert.Contains(t, env.out.String(), `"design" is now En progreso`)

	stored, err := env.store.GetTask(context.Background(), env.design.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, stored.Status)
}

func TestStatusCommand_Errors(t *testing.T) {
	env := setupTestApp(t)
	env.loginAs(env.user)

	err := env.run(t, "status", id(env.design.ID))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usage: pt status")

	err = env.run(t, "status", "abc", "completada")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task-id")

	err = env.run(t, "status", id(env.design.ID), "later")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "later")

	err = env.run(t, "status", id(env.review.ID), "completada")
	require.Error(t, err)
	assert.True(t, env.app.errors.IsPermissionError(err))

	stored, err := env.store.GetTask(context.Background(), env.review.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Status)
}

func TestCommentAndShow(t *testing.T) {
	env := setupTestApp(t)
	env.loginAs(env.admin)

	require.NoError(t, env.run(t, "comment", id(env.design.ID), "looks", "good"))
	assert.Contains(t, env.out.String(), "Added comment")

	require.NoError(t, env.run(t, "show", id(env.design.ID)))
	out := env.out.String()
	assert.Contains(t, out, "#"+id(env.design.ID)+" design")
	assert.Contains(t, out, "Web")
	assert.Contains(t, out, "ana")
	assert.Contains(t, out, "looks good")
	assert.Contains(t, out, "You may: edit, delete, change status, upload, comment")

	env.app.registry.Get("show").(*ShowCommand).Format = "json"
	require.NoError(t, env.run(t, "show", id(env.design.ID)))
	var detail api.TaskDetail
	require.NoError(t, json.Unmarshal(env.out.Bytes(), &detail))
	assert.Equal(t, env.design.ID, detail.Task.ID)
	require.Len(t, detail.Comments, 1)
	assert.Equal(t, "looks good", detail.Comments[0].Text)
	assert.True(t, detail.Permissions.Delete)
}

func TestShowCommand_NotFound(t *testing.T) {
	env := setupTestApp(t)
	env.loginAs(env.admin)

	err := env.run(t, "show", "9999")
	require.Error(t, err)
	assert.True(t, env.app.errors.IsNotFoundError(err))
}

func TestDeleteCommand(t *testing.T) {
	env := setupTestApp(t)
	env.loginAs(env.admin)
	ctx := context.Background()

	env.input("n\n")
	require.NoError(t, env.run(t, "delete", id(env.design.ID)))
	assert.Contains(t, env.out.String(), "Delete cancelled.")
	_, err := env.store.GetTask(ctx, env.design.ID)
	require.NoError(t, err)

	env.input("y\n")
	require.NoError(t, env.run(t, "delete", id(env.design.ID)))
	assert.Contains(t, env.out.String(), "Deleted task: design")
	_, err = env.store.GetTask(ctx, env.design.ID)
	assert.Error(t, err)

	env.app.registry.Get("delete").(*DeleteCommand).Yes = true
	require.NoError(t, env.run(t, "delete", id(env.review.ID)))
	assert.NotContains(t, env.out.String(), "[y/N]")
	_, err = env.store.GetTask(ctx, env.review.ID)
	assert.Error(t, err)
}

func TestDeleteCommand_Forbidden(t *testing.T) {
	env := setupTestApp(t)
	env.loginAs(env.user)
	env.app.registry.Get("delete").(*DeleteCommand).Yes = true

	err := env.run(t, "delete", id(env.deploy.ID))
	require.Error(t, err)
	assert.True(t, env.app.errors.IsPermissionError(err))

	_, err = env.store.GetTask(context.Background(), env.deploy.ID)
	assert.NoError(t, err)
}

func TestUploadAndDownload(t *testing.T) {
	env := setupTestApp(t)
	env.loginAs(env.user)
	dir := t.TempDir()
	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, writeFile(notes, "meeting notes"))

	require.NoError(t, env.run(t, "upload", id(env.design.ID), notes))
	assert.Contains(t, env.out.String(), "uploaded  notes.txt (13 B)")

	attachments, err := env.store.ListAttachments(context.Background(), env.design.ID)
	require.NoError(t, err)
	require.Len(t, attachments, 1)

	require.NoError(t, env.run(t, "download", id(attachments[0].ID)))
	assert.Equal(t, "meeting notes", env.out.String())

	target := filepath.Join(dir, "copy.txt")
	env.app.registry.Get("download").(*DownloadCommand).Output = target
	require.NoError(t, env.run(t, "download", id(attachments[0].ID)))
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "meeting notes", string(data))
}

func TestUploadCommand_Errors(t *testing.T) {
	env := setupTestApp(t)
	env.loginAs(env.user)
	notes := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, writeFile(notes, "x"))

	err := env.run(t, "upload", id(env.design.ID), filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")

	err = env.run(t, "upload", id(env.review.ID), notes)
	require.Error(t, err)
	assert.True(t, env.app.errors.IsPermissionError(err))

	attachments, err := env.store.ListAttachments(context.Background(), env.review.ID)
	require.NoError(t, err)
	assert.Empty(t, attachments)
}

func TestProjectsCommand(t *testing.T) {
	env := setupTestApp(t)
	env.loginAs(env.admin)

	require.NoError(t, env.run(t, "projects"))
	out := env.out.String()
	assert.Contains(t, out, "Web")
	assert.Contains(t, out, "Ops")
	assert.Contains(t, out, "1 - 2 de 2  page 1/1")
	assert.Contains(t, out, "edit, delete")
	assert.NotContains(t, out, "more:")

	env.cfg.Pagination.PageSize = 1
	require.NoError(t, env.run(t, "projects"))
	assert.Contains(t, env.out.String(), "more: pt projects --page 2")

	projects := env.app.registry.Get("projects").(*ProjectsCommand)
	projects.Page = 2
	projects.Format = "json"
	require.NoError(t, env.run(t, "projects"))
	var page []domain.Project
	require.NoError(t, json.Unmarshal(env.out.Bytes(), &page))
	assert.Len(t, page, 1)
}

func TestUsersCommand(t *testing.T) {
	env := setupTestApp(t)
	users := env.app.registry.Get("users").(*UsersCommand)
	users.Role = "manager"

	env.loginAs(env.user)
	err := env.run(t, "users")
	require.Error(t, err)
	assert.True(t, env.app.errors.IsPermissionError(err))

	env.app.tracker = nil
	env.loginAs(env.admin)
	require.NoError(t, env.run(t, "users"))
	assert.Contains(t, env.out.String(), "ana")
	assert.NotContains(t, env.out.String(), "luis")

	users.Role = "janitor"
	err = env.run(t, "users")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "janitor")
}

func TestServeCommands(t *testing.T) {
	env := setupTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, env.app.Run(ctx, []string{"serve"}))
	require.NoError(t, env.app.Run(ctx, []string{"backend"}))
	assert.Equal(t, []string{"serve", "backend"}, env.backend.served)

	assert.Error(t, env.app.Run(ctx, []string{"serve", "extra"}))
}
