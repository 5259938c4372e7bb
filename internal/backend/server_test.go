package backend

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"project-tracker/internal/domain"
	apperrors "project-tracker/internal/errors"
	"project-tracker/internal/logging"
	"project-tracker/internal/metrics"
	"project-tracker/internal/repository"
	"project-tracker/internal/repository/rest"
	"project-tracker/internal/repository/sqlite"
	"project-tracker/internal/session"
)

var secret = []byte("test-secret")

type env struct {
	t       *testing.T
	url     string
	store   *sqlite.SQLiteRepository
	metrics *metrics.Metrics
	admin   *domain.User
	manager *domain.User
	user    *domain.User
	other   *domain.User
	project *domain.Project
	task    *domain.Task
}

func setup(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.New(sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, Bootstrap(ctx, store, "root", "rootpw", logging.Discard()))
	admin, err := store.Authenticate(ctx, "root", "rootpw")
	require.NoError(t, err)

	mk := func(name string, roles ...domain.Role) *domain.User {
		u, err := store.CreateUser(ctx, domain.User{Username: name, Roles: roles}, "pw")
		require.NoError(t, err)
		return u
	}
	manager := mk("ana", domain.RoleManager)
	user := mk("luis")
	other := mk("eva")

	actx := repository.WithActor(ctx, admin)
	deadline := time.Now().AddDate(0, 1, 0)
	project, err := store.CreateProject(actx, domain.Project{Name: "Web", Deadline: &deadline, ManagerID: &manager.ID})
	require.NoError(t, err)
	task, err := store.CreateTask(actx, domain.Task{Title: "Landing page", ProjectID: project.ID, AssigneeID: &user.ID})
	require.NoError(t, err)

	m := metrics.New()
	srv := NewServer(Options{JWTSecret: secret}, store, m, logging.Discard())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &env{t: t, url: ts.URL, store: store, metrics: m, admin: admin, manager: manager, user: user, other: other, project: project, task: task}
}

// clientFor logs in as username and returns a client carrying the token.
func (e *env) clientFor(username string) *rest.Client {
	e.t.Helper()
	anon, err := rest.New(e.url, 5*time.Second, nil, logging.Discard())
	require.NoError(e.t, err)

	password := "pw"
	if username == "root" {
		password = "rootpw"
	}
	login, err := anon.Login(context.Background(), username, password)
	require.NoError(e.t, err)

	store := session.NewStore()
	require.NoError(e.t, store.SetToken(login.Token))
	c, err := rest.New(e.url, 5*time.Second, store, logging.Discard())
	require.NoError(e.t, err)
	return c
}

func TestBootstrap_OnlyOnEmptyStore(t *testing.T) {
	e := setup(t)
	require.NoError(t, Bootstrap(context.Background(), e.store, "second", "pw", nil))
	_, err := e.store.Authenticate(context.Background(), "second", "pw")
	assert.Error(t, err)
}

func TestLogin(t *testing.T) {
	e := setup(t)
	anon, err := rest.New(e.url, time.Second, nil, nil)
	require.NoError(t, err)

	_, err = anon.Login(context.Background(), "luis", "wrong")
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeUnauthenticated))

	_, err = anon.Login(context.Background(), "", "")
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))

	login, err := anon.Login(context.Background(), "ana", "pw")
	require.NoError(t, err)
	claims, err := session.VerifyToken(secret, login.Token)
	require.NoError(t, err)
	assert.Equal(t, "ana", claims.Subject)
	assert.Equal(t, []string{"ROLE_ENCARGADO"}, claims.Roles)
	assert.Equal(t, e.manager.ID, login.User.ID)
}

func TestAuthentication(t *testing.T) {
	e := setup(t)

	anon, err := rest.New(e.url, time.Second, nil, nil)
	require.NoError(t, err)
	_, err = anon.ListTasks(context.Background(), domain.AssignedScope(e.user.ID))
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeUnauthenticated))

	forged, err := session.IssueToken([]byte("other-secret"), *e.admin, time.Hour, time.Now())
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodGet, e.url+"/api/tasks", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+forged)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestListTasks_ScopeChecks(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	luis := e.clientFor("luis")

	_, err := luis.ListTasks(ctx, domain.AllScope())
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypePermission))

	_, err = luis.ListTasks(ctx, domain.AssignedScope(e.manager.ID))
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypePermission))

	tasks, err := luis.ListTasks(ctx, domain.AssignedScope(e.user.ID))
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "luis", tasks[0].AssigneeUsername)

	managed, err := e.clientFor("ana").ListTasks(ctx, domain.ManagedScope(e.manager.ID))
	require.NoError(t, err)
	assert.Len(t, managed, 1)

	all, err := e.clientFor("root").ListTasks(ctx, domain.AllScope())
	require.NoError(t, err)
	assert.Len(t, all, 1)

	empty, err := e.clientFor("eva").ListTasks(ctx, domain.AssignedScope(e.other.ID))
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestSetStatus_Permissions(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	updated, err := e.clientFor("luis").SetTaskStatus(ctx, e.task.ID, domain.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, updated.Status)

	// The project manager may edit the task, so may move it too.
	updated, err = e.clientFor("ana").SetTaskStatus(ctx, e.task.ID, domain.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, updated.Status)

	_, err = e.clientFor("eva").SetTaskStatus(ctx, e.task.ID, domain.StatusCompleted)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypePermission))

	_, err = e.clientFor("luis").SetTaskStatus(ctx, 999, domain.StatusCompleted)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound))

	stored, err := e.store.GetTask(ctx, e.task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Status)
}

func TestTaskLifecycle(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	ana := e.clientFor("ana")

	_, err := e.clientFor("luis").CreateTask(ctx, domain.Task{Title: "x", ProjectID: e.project.ID})
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypePermission))

	_, err = ana.CreateTask(ctx, domain.Task{Title: "", ProjectID: e.project.ID})
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))

	created, err := ana.CreateTask(ctx, domain.Task{Title: "Copy", ProjectID: e.project.ID, Priority: domain.PriorityLow})
	require.NoError(t, err)
	assert.Equal(t, "ana", created.CreatorUsername)
	assert.Equal(t, domain.StatusPending, created.Status)

	created.Title = "Copy v2"
	updated, err := ana.UpdateTask(ctx, *created)
	require.NoError(t, err)
	assert.Equal(t, "Copy v2", updated.Title)

	_, err = e.clientFor("luis").UpdateTask(ctx, *created)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypePermission))

	require.NoError(t, ana.DeleteTask(ctx, created.ID))
	_, err = ana.GetTask(ctx, created.ID)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound))
}

func TestProjects(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	root := e.clientFor("root")

	manager, err := root.GetManager(ctx, e.project.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana", manager.Username)

	deadline := time.Now().AddDate(0, 2, 0)
	bare, err := root.CreateProject(ctx, domain.Project{Name: "Ops", Deadline: &deadline})
	require.NoError(t, err)
	none, err := root.GetManager(ctx, bare.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	count, err := root.CountProjectTasks(ctx, e.project.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	err = root.DeleteProject(ctx, e.project.ID)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeConflict))

	err = e.clientFor("ana").DeleteProject(ctx, bare.ID)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypePermission))
	require.NoError(t, root.DeleteProject(ctx, bare.ID))

	managed, err := e.clientFor("ana").ListProjects(ctx, domain.ManagedScope(e.manager.ID))
	require.NoError(t, err)
	assert.Len(t, managed, 1)

	_, err = e.clientFor("luis").ListUsers(ctx, domain.RoleManager)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypePermission))
	managers, err := root.ListUsers(ctx, domain.RoleManager)
	require.NoError(t, err)
	require.Len(t, managers, 1)
	assert.Equal(t, "ana", managers[0].Username)
}

func TestCommentsAndAttachments(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	luis := e.clientFor("luis")
	eva := e.clientFor("eva")

	comment, err := luis.AddComment(ctx, e.task.ID, "started")
	require.NoError(t, err)
	assert.Equal(t, "luis", comment.AuthorUsername)

	_, err = luis.AddComment(ctx, e.task.ID, "   ")
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))

	err = eva.DeleteComment(ctx, comment.ID)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypePermission))
	require.NoError(t, luis.DeleteComment(ctx, comment.ID))

	_, err = eva.UploadAttachment(ctx, e.task.ID, "x.txt", "text/plain", strings.NewReader("x"))
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypePermission))

	att, err := luis.UploadAttachment(ctx, e.task.ID, "notes.txt", "text/plain", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", att.Name)
	assert.Equal(t, "luis", att.UploaderUsername)

	list, err := eva.ListAttachments(ctx, e.task.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	body, err := eva.DownloadAttachment(ctx, att.ID)
	require.NoError(t, err)
	data, _ := io.ReadAll(body)
	body.Close()
	assert.Equal(t, "hello", string(data))

	err = eva.DeleteAttachment(ctx, att.ID)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypePermission))
	require.NoError(t, e.clientFor("root").DeleteAttachment(ctx, att.ID))
}

func TestUploadTooLarge(t *testing.T) {
	e := setup(t)
	srv := NewServer(Options{JWTSecret: secret, MaxUploadBytes: 16}, e.store, nil, logging.Discard())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	login, err := e.clientFor("luis").Login(context.Background(), "luis", "pw")
	require.NoError(t, err)
	store := session.NewStore()
	require.NoError(t, store.SetToken(login.Token))
	c, err := rest.New(ts.URL, time.Second, store, nil)
	require.NoError(t, err)

	_, err = c.UploadAttachment(context.Background(), e.task.ID, "big.bin", "", strings.NewReader(strings.Repeat("x", 1024)))
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation), "got %v", err)
}

func TestHealthAndMetrics(t *testing.T) {
	e := setup(t)
	_, err := e.clientFor("luis").ListTasks(context.Background(), domain.AssignedScope(e.user.ID))
	require.NoError(t, err)

	resp, err := http.Get(e.url + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(e.url + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(data), `project_tracker_http_requests_total{code="200",method="GET",route="/api/tasks"}`)
}
