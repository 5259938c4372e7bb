package server

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"project-tracker/internal/api"
	"project-tracker/internal/domain"
	"project-tracker/internal/logging"
	"project-tracker/internal/metrics"
	"project-tracker/internal/partition"
	"project-tracker/internal/repository"
	"project-tracker/internal/repository/sqlite"
	tokens "project-tracker/internal/session"
)

var testSecret = []byte("board-test-secret")

type testEnv struct {
	server *Server
	store  *sqlite.SQLiteRepository
	mine   *domain.Task
	theirs *domain.Task
}

func setupServer(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "pt.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	admin, err := store.CreateUser(ctx, domain.User{Username: "root", Roles: []domain.Role{domain.RoleAdmin}}, "secret1")
	require.NoError(t, err)
	luis, err := store.CreateUser(ctx, domain.User{Username: "luis"}, "secret1")
	require.NoError(t, err)
	marta, err := store.CreateUser(ctx, domain.User{Username: "marta"}, "secret1")
	require.NoError(t, err)

	actx := repository.WithActor(ctx, admin)
	project, err := store.CreateProject(actx, domain.Project{Name: "Web"})
	require.NoError(t, err)
	mine, err := store.CreateTask(actx, domain.Task{Title: "mine", ProjectID: project.ID, AssigneeID: &luis.ID})
	require.NoError(t, err)
	theirs, err := store.CreateTask(actx, domain.Task{Title: "theirs", ProjectID: project.ID, AssigneeID: &marta.ID})
	require.NoError(t, err)

	factory := func(_ string, user domain.User) (api.Tracker, error) {
		return api.New(store, api.FixedUser(user), api.Options{PageSize: 10}, nil, nil, logging.Discard()), nil
	}
	srv := New(":0", NewLocalAuth(store, testSecret, time.Hour), factory, metrics.New(), logging.Discard())
	return &testEnv{server: srv, store: store, mine: mine, theirs: theirs}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.Engine().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T, username string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/login", "", loginRequest{Username: username, Password: "secret1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, username, resp.User.Username)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decodeBoard(t *testing.T, rec *httptest.ResponseRecorder) boardResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var board boardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &board))
	return board
}

func TestHealthAndMetrics(t *testing.T) {
	env := setupServer(t)

	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	rec = env.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "project_tracker_http_requests_total")
}

func TestRequestIDIsPropagated(t *testing.T) {
	env := setupServer(t)
	id := "7d0b6a1e-6c5a-4a8e-9f0a-2b1c3d4e5f60"

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, id)
	rec := httptest.NewRecorder()
	env.server.Engine().ServeHTTP(rec, req)
	assert.Equal(t, id, rec.Header().Get(requestIDHeader))
}

func TestLogin(t *testing.T) {
	env := setupServer(t)

	rec := env.do(t, http.MethodPost, "/api/login", "", loginRequest{Username: "luis", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/login", "", loginRequest{Username: "", Password: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.login(t, "luis")
}

func TestAuthentication(t *testing.T) {
	env := setupServer(t)

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/board", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/board", "not-a-token", nil).Code)
	assert.Zero(t, env.server.sessions.len())
}

func TestBoard(t *testing.T) {
	env := setupServer(t)
	token := env.login(t, "luis")

	board := decodeBoard(t, env.do(t, http.MethodGet, "/api/board", token, nil))
	assert.Equal(t, "luis", board.User.Username)
	require.Len(t, board.Buckets, 1)
	assert.Equal(t, partition.BucketAssignedToMe, board.Buckets[0].Name)
	require.Len(t, board.Buckets[0].Tasks, 1)
	assert.Equal(t, env.mine.ID, board.Buckets[0].Tasks[0].ID)
	assert.Equal(t, 1, board.Counts[domain.StatusPending])

	t.Run("filter by status", func(t *testing.T) {
		board := decodeBoard(t, env.do(t, http.MethodGet, "/api/board?status=completed", token, nil))
		assert.Empty(t, board.Buckets[0].Tasks)
		assert.Equal(t, 1, board.Buckets[0].Total)

		board = decodeBoard(t, env.do(t, http.MethodGet, "/api/board?status=all", token, nil))
		assert.Len(t, board.Buckets[0].Tasks, 1)
	})

	t.Run("bad parameters", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/board?bucket=all", token, nil).Code)
		assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/board?page=0", token, nil).Code)
		assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/board?status=closed", token, nil).Code)
	})

	t.Run("huge page is empty", func(t *testing.T) {
		board := decodeBoard(t, env.do(t, http.MethodGet, "/api/board?status=all&page="+strconv.Itoa(math.MaxInt), token, nil))
		assert.Empty(t, board.Buckets[0].Tasks)
		assert.Equal(t, strconv.Itoa(math.MaxInt)+" - 1 de 1", board.Buckets[0].DisplayRange)
	})

	t.Run("one session per token", func(t *testing.T) {
		assert.Equal(t, 1, env.server.sessions.len())
	})
}

func TestSetStatus(t *testing.T) {
	env := setupServer(t)
	token := env.login(t, "luis")
	decodeBoard(t, env.do(t, http.MethodGet, "/api/board", token, nil))

	path := "/api/tasks/" + itoa(env.mine.ID) + "/status"
	rec := env.do(t, http.MethodPut, path, token, statusRequest{Status: "En progreso"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.StatusInProgress, resp.Task.Status)
	assert.Equal(t, 1, resp.Replaced)
	assert.Equal(t, []partition.Name{partition.BucketAssignedToMe}, resp.Buckets)

	board := decodeBoard(t, env.do(t, http.MethodGet, "/api/board", token, nil))
	assert.Equal(t, domain.StatusInProgress, board.Buckets[0].Tasks[0].Status, "cached copy follows without reload")

	rec = env.do(t, http.MethodPut, "/api/tasks/"+itoa(env.theirs.ID)+"/status", token, statusRequest{Status: "Completada"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPut, path, token, statusRequest{Status: "Archived"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	stored, err := env.store.GetTask(context.Background(), env.theirs.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Status)
}

func TestTaskDetailAndDelete(t *testing.T) {
	env := setupServer(t)
	token := env.login(t, "luis")

	rec := env.do(t, http.MethodGet, "/api/tasks/"+itoa(env.mine.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var detail api.TaskDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "mine", detail.Task.Title)
	assert.True(t, detail.Permissions.ChangeStatus)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/tasks/abc", token, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/tasks/999", token, nil).Code)

	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodDelete, "/api/tasks/"+itoa(env.theirs.ID), token, nil).Code)

	decodeBoard(t, env.do(t, http.MethodGet, "/api/board", token, nil))
	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/api/tasks/"+itoa(env.mine.ID), token, nil).Code)
	board := decodeBoard(t, env.do(t, http.MethodGet, "/api/board", token, nil))
	assert.Empty(t, board.Buckets[0].Tasks)
}

func TestDashboardAndLogout(t *testing.T) {
	env := setupServer(t)
	token := env.login(t, "root")

	rec := env.do(t, http.MethodGet, "/api/dashboard", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var d api.Dashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, 2, d.Total)
	assert.Equal(t, 2, d.Counts[domain.StatusPending])
	assert.Len(t, d.Recent, 2)

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodPost, "/api/logout", token, nil).Code)
	assert.Zero(t, env.server.sessions.len())
}

func TestSessions_ExpiredTokensAreEvicted(t *testing.T) {
	env := setupServer(t)
	luis, err := env.store.Authenticate(context.Background(), "luis", "secret1")
	require.NoError(t, err)

	now := time.Now()
	shortLived, err := tokens.IssueToken(testSecret, *luis, time.Minute, now)
	require.NoError(t, err)
	longLived, err := tokens.IssueToken(testSecret, *luis, time.Hour, now)
	require.NoError(t, err)

	decodeBoard(t, env.do(t, http.MethodGet, "/api/board", shortLived, nil))
	decodeBoard(t, env.do(t, http.MethodGet, "/api/board", longLived, nil))
	assert.Equal(t, 2, env.server.sessions.len())

	env.server.sessions.now = func() time.Time { return now.Add(2 * time.Minute) }
	decodeBoard(t, env.do(t, http.MethodGet, "/api/board", longLived, nil))
	assert.Equal(t, 1, env.server.sessions.len())
}

func TestSessions_IdleSessionsAreEvicted(t *testing.T) {
	now := time.Now()
	s := newSessions(func(string, domain.User) (api.Tracker, error) { return nil, nil })
	s.now = func() time.Time { return now }

	_, err := s.get("opaque-token", domain.User{ID: 1, Username: "luis"})
	require.NoError(t, err)
	assert.Equal(t, 1, s.len())

	s.now = func() time.Time { return now.Add(sessionIdleTimeout) }
	_, err = s.get("other-token", domain.User{ID: 2, Username: "marta"})
	require.NoError(t, err)
	assert.Equal(t, 1, s.len())
}

func TestSessions_RoleChangeRebuildsTracker(t *testing.T) {
	built := 0
	s := newSessions(func(string, domain.User) (api.Tracker, error) {
		built++
		return nil, nil
	})
	user := domain.User{ID: 7, Username: "ana"}

	first, err := s.get("token", user)
	require.NoError(t, err)
	again, err := s.get("token", user)
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, 1, built)

	user.Roles = []domain.Role{domain.RoleManager}
	promoted, err := s.get("token", user)
	require.NoError(t, err)
	assert.NotSame(t, first, promoted)
	assert.Equal(t, 2, built)
	assert.True(t, promoted.user.IsManager())
	assert.Equal(t, 1, s.len())
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
