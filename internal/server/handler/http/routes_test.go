package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/atinyakov/todosync/internal/auth"
	"github.com/atinyakov/todosync/internal/models"
	"github.com/atinyakov/todosync/internal/repository"
	handler "github.com/atinyakov/todosync/internal/server/handler/http"
	"github.com/atinyakov/todosync/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type apiClient struct {
	t     *testing.T
	srv   *httptest.Server
	token string
}

func (c *apiClient) do(method, path string, body any) (*http.Response, []byte) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, c.srv.URL+path, &buf)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.srv.Client().Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(c.t, err)
	return resp, out.Bytes()
}

func newTestServer(t *testing.T) *apiClient {
	t.Helper()
	tasks := repository.NewMemoryTaskRepository()
	tokens := auth.NewTokens("test-secret", time.Hour)

	router := handler.NewRouter(
		&handler.AuthHandler{AuthService: service.NewAuthService(repository.NewMemoryUserRepository(), tokens)},
		&handler.TaskHandler{TaskService: service.NewTaskService(tasks)},
		&handler.SyncHandler{SyncService: service.NewReconciler(tasks)},
		tokens,
		zap.NewNop(),
	)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &apiClient{t: t, srv: srv}
}

func TestRouter_Health(t *testing.T) {
	c := newTestServer(t)
	resp, _ := c.do(http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	c := newTestServer(t)
	for _, path := range []string{"/api/profile", "/api/tasks"} {
		resp, body := c.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
		assert.JSONEq(t, `{"message":"unauthorized"}`, string(body), path)
	}
	resp, _ := c.do(http.MethodPost, "/api/tasks/sync", map[string]any{"actions": []any{}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_RejectsNonJSON(t *testing.T) {
	c := newTestServer(t)
	req, err := http.NewRequest(http.MethodPost, c.srv.URL+"/api/login", bytes.NewBufferString("email=a"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestRouter_OfflineQueueRoundTrip(t *testing.T) {
	c := newTestServer(t)

	resp, body := c.do(http.MethodPost, "/api/register", handler.RegisterRequest{Name: "Alice", Email: "alice@example.com", Password: "hunter22"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var sess service.Session
	require.NoError(t, json.Unmarshal(body, &sess))
	c.token = sess.Token

	resp, body = c.do(http.MethodPost, "/api/tasks/sync", map[string]any{"actions": []map[string]any{
		{"type": "create", "payload": map[string]any{"_id": "client-1", "title": "Buy milk", "status": "Pending"}},
		{"type": "update", "payload": map[string]any{"_id": "client-1", "status": "Completed"}},
		{"type": "create", "payload": map[string]any{"_id": "client-2", "title": "Walk dog"}},
		{"type": "delete", "payload": map[string]any{"_id": "client-2"}},
	}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var out handler.SyncResponse
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Tasks, 1)
	assert.Equal(t, "Buy milk", out.Tasks[0].Title)
	assert.Equal(t, models.StatusCompleted, out.Tasks[0].Status)
	assert.Equal(t, out.Tasks[0].ID, out.IDs["client-1"])
	assert.Contains(t, out.IDs, "client-2")
	assert.False(t, models.IsTemporaryID(out.Tasks[0].ID))

	id := out.Tasks[0].ID
	resp, body = c.do(http.MethodGet, "/api/tasks/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, _ = c.do(http.MethodDelete, "/api/tasks/"+id, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = c.do(http.MethodGet, "/api/tasks/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = c.do(http.MethodGet, "/api/tasks", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))
}

func TestRouter_TaskCRUD(t *testing.T) {
	c := newTestServer(t)
	resp, body := c.do(http.MethodPost, "/api/register", handler.RegisterRequest{Name: "Bob", Email: "bob@example.com", Password: "hunter22"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var sess service.Session
	require.NoError(t, json.Unmarshal(body, &sess))
	c.token = sess.Token

	resp, body = c.do(http.MethodPost, "/api/tasks", map[string]string{"title": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))

	resp, body = c.do(http.MethodPost, "/api/tasks", map[string]string{"title": "Write report", "description": "Q3"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var task models.Task
	require.NoError(t, json.Unmarshal(body, &task))
	assert.Equal(t, models.StatusPending, task.Status)

	resp, body = c.do(http.MethodPut, "/api/tasks/"+task.ID, map[string]string{"status": "Completed"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &task))
	assert.Equal(t, models.StatusCompleted, task.Status)
	assert.Equal(t, "Write report", task.Title)

	resp, _ = c.do(http.MethodPut, "/api/tasks/missing", map[string]string{"title": "x"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = c.do(http.MethodGet, "/api/tasks?status=Pending", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))

	resp, body = c.do(http.MethodGet, "/api/tasks?q=report", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []models.Task
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list, 1)

	resp, _ = c.do(http.MethodGet, "/api/tasks?status=Bogus", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = c.do(http.MethodGet, "/api/profile", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var u models.User
	require.NoError(t, json.Unmarshal(body, &u))
	assert.Equal(t, "bob@example.com", u.Email)
}
