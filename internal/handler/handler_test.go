package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/taskdeck/taskdeck/internal/auth"
	"github.com/taskdeck/taskdeck/internal/handler"
	"github.com/taskdeck/taskdeck/internal/model"
	"github.com/taskdeck/taskdeck/internal/query"
	"github.com/taskdeck/taskdeck/internal/repository"
	"github.com/taskdeck/taskdeck/internal/service"
	"github.com/taskdeck/taskdeck/internal/telemetry"
)

type envelope struct {
	Success    bool              `json:"success"`
	Data       json.RawMessage   `json:"data"`
	Message    string            `json:"message"`
	Error      string            `json:"error"`
	Pagination *query.Pagination `json:"pagination"`
}

// newTestServer wires the full router against an in-memory database,
// mirroring the assembly in cmd/server.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Task{}))

	taskRepo := repository.NewTaskRepository(db)
	userRepo := repository.NewUserRepository(db)

	tokens := auth.NewTokenManager("test-secret", time.Hour, "test")
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)

	taskSvc := service.NewTaskService(taskRepo)
	userSvc := service.NewUserService(userRepo, hasher)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics, err := telemetry.NewMetrics(otel.Meter("test"), taskRepo.CountPending)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(handler.Instrument(metrics))
	r.Get("/health", handler.Health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/auth", handler.NewAuthHandler(userSvc, tokens, log).Routes())
		r.Group(func(r chi.Router) {
			r.Use(handler.RequireAuth(tokens))
			r.Mount("/tasks", handler.NewTaskHandler(taskSvc, log).Routes())
		})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

// newClient returns an HTTP client with a cookie jar, so the auth cookie
// set by login flows into subsequent requests.
func newClient(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func do(t *testing.T, client *http.Client, method, url string, body any) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func signup(t *testing.T, client *http.Client, baseURL, email string) {
	t.Helper()

	status, env := do(t, client, http.MethodPost, baseURL+"/api/v1/auth/register", map[string]string{
		"name":     "Test User",
		"email":    email,
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, status)
	require.True(t, env.Success)

	status, env = do(t, client, http.MethodPost, baseURL+"/api/v1/auth/login", map[string]string{
		"email":    email,
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, status)
	require.True(t, env.Success)
}

func createTask(t *testing.T, client *http.Client, baseURL string, body any) model.Task {
	t.Helper()

	status, env := do(t, client, http.MethodPost, baseURL+"/api/v1/tasks", body)
	require.Equal(t, http.StatusCreated, status)

	var task model.Task
	require.NoError(t, json.Unmarshal(env.Data, &task))
	return task
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTasksRequireAuthentication(t *testing.T) {
	srv := newTestServer(t)
	client := newClient(t)

	status, env := do(t, client, http.MethodGet, srv.URL+"/api/v1/tasks", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, env.Success)
	assert.Equal(t, "Not authenticated", env.Error)
}

func TestBearerTokenFallback(t *testing.T) {
	srv := newTestServer(t)
	client := newClient(t)
	signup(t, client, srv.URL, "bearer@example.com")

	// Extract the cookie token and replay it as a bearer header from a
	// jarless client.
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	cookies := client.Jar.Cookies(u)
	require.NotEmpty(t, cookies)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/tasks", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+cookies[0].Value)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestInvalidTokenRejected(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/tasks", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer garbage")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterValidation(t *testing.T) {
	srv := newTestServer(t)
	client := newClient(t)

	status, env := do(t, client, http.MethodPost, srv.URL+"/api/v1/auth/register", map[string]string{
		"name":     "T",
		"email":    "bad@example.com",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, env.Success)

	status, _ = do(t, client, http.MethodPost, srv.URL+"/api/v1/auth/register", map[string]string{
		"name":     "Test User",
		"email":    "not-an-email",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestLoginWrongPassword(t *testing.T) {
	srv := newTestServer(t)
	client := newClient(t)
	signup(t, client, srv.URL, "wrongpw@example.com")

	status, env := do(t, newClient(t), http.MethodPost, srv.URL+"/api/v1/auth/login", map[string]string{
		"email":    "wrongpw@example.com",
		"password": "nope99",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid email or password", env.Error)
}

func TestTaskLifecycleScenario(t *testing.T) {
	srv := newTestServer(t)
	owner := newClient(t)
	other := newClient(t)
	signup(t, owner, srv.URL, "owner@example.com")
	signup(t, other, srv.URL, "other@example.com")

	task := createTask(t, owner, srv.URL, map[string]string{"title": "Buy milk"})
	assert.Equal(t, model.StatusPending, task.Status)

	taskURL := srv.URL + "/api/v1/tasks/" + task.ID

	// Owner sees it; anyone else gets an indistinguishable not-found.
	status, _ := do(t, owner, http.MethodGet, taskURL, nil)
	assert.Equal(t, http.StatusOK, status)

	status, env := do(t, other, http.MethodGet, taskURL, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Task not found", env.Error)

	// Cancel, then try to complete: terminal state rejects the change.
	status, _ = do(t, owner, http.MethodPut, taskURL, map[string]string{"status": "CANCELED"})
	assert.Equal(t, http.StatusOK, status)

	status, env = do(t, owner, http.MethodPut, taskURL, map[string]string{"status": "COMPLETED"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Cannot change status of completed or canceled task", env.Error)

	// Re-sending the same terminal status is a no-op success.
	status, _ = do(t, owner, http.MethodPatch, taskURL, map[string]string{"status": "CANCELED"})
	assert.Equal(t, http.StatusOK, status)

	status, _ = do(t, owner, http.MethodDelete, taskURL, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = do(t, owner, http.MethodGet, taskURL, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCreateTaskValidation(t *testing.T) {
	srv := newTestServer(t)
	client := newClient(t)
	signup(t, client, srv.URL, "validate@example.com")

	status, env := do(t, client, http.MethodPost, srv.URL+"/api/v1/tasks", map[string]string{"title": "ab"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Title must be at least 3 characters", env.Error)

	status, _ = do(t, client, http.MethodPost, srv.URL+"/api/v1/tasks", map[string]string{
		"title":  "Valid title",
		"status": "DONE",
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestListTasksPaginationAndFilters(t *testing.T) {
	srv := newTestServer(t)
	client := newClient(t)
	signup(t, client, srv.URL, "list@example.com")

	for i := 0; i < 7; i++ {
		createTask(t, client, srv.URL, map[string]string{"title": fmt.Sprintf("pending %d", i)})
	}
	createTask(t, client, srv.URL, map[string]string{"title": "finished one", "status": "COMPLETED"})

	t.Run("pagination metadata", func(t *testing.T) {
		status, env := do(t, client, http.MethodGet, srv.URL+"/api/v1/tasks?page=2&limit=3", nil)
		require.Equal(t, http.StatusOK, status)
		require.NotNil(t, env.Pagination)
		assert.EqualValues(t, 8, env.Pagination.Total)
		assert.Equal(t, 2, env.Pagination.Page)
		assert.Equal(t, 3, env.Pagination.Limit)
		assert.Equal(t, 3, env.Pagination.TotalPages)
	})

	t.Run("limit below one is raised to one", func(t *testing.T) {
		status, env := do(t, client, http.MethodGet, srv.URL+"/api/v1/tasks?limit=0", nil)
		require.Equal(t, http.StatusOK, status)
		require.NotNil(t, env.Pagination)
		assert.Equal(t, 1, env.Pagination.Limit)
		var tasks []model.Task
		require.NoError(t, json.Unmarshal(env.Data, &tasks))
		assert.Len(t, tasks, 1)
	})

	t.Run("absent limit defaults to ten", func(t *testing.T) {
		status, env := do(t, client, http.MethodGet, srv.URL+"/api/v1/tasks", nil)
		require.Equal(t, http.StatusOK, status)
		require.NotNil(t, env.Pagination)
		assert.Equal(t, 10, env.Pagination.Limit)
	})

	t.Run("limit above max is capped", func(t *testing.T) {
		status, env := do(t, client, http.MethodGet, srv.URL+"/api/v1/tasks?limit=200", nil)
		require.Equal(t, http.StatusOK, status)
		require.NotNil(t, env.Pagination)
		assert.Equal(t, 100, env.Pagination.Limit)
	})

	t.Run("page zero behaves as page one", func(t *testing.T) {
		status, env := do(t, client, http.MethodGet, srv.URL+"/api/v1/tasks?page=0", nil)
		require.Equal(t, http.StatusOK, status)
		require.NotNil(t, env.Pagination)
		assert.Equal(t, 1, env.Pagination.Page)
	})

	t.Run("status filter", func(t *testing.T) {
		status, env := do(t, client, http.MethodGet, srv.URL+"/api/v1/tasks?status=COMPLETED", nil)
		require.Equal(t, http.StatusOK, status)
		var tasks []model.Task
		require.NoError(t, json.Unmarshal(env.Data, &tasks))
		require.Len(t, tasks, 1)
		assert.Equal(t, "finished one", tasks[0].Title)
	})

	t.Run("title search", func(t *testing.T) {
		status, env := do(t, client, http.MethodGet, srv.URL+"/api/v1/tasks?search=FINISHED", nil)
		require.Equal(t, http.StatusOK, status)
		var tasks []model.Task
		require.NoError(t, json.Unmarshal(env.Data, &tasks))
		assert.Len(t, tasks, 1)
	})
}

func TestListNeverLeaksOtherUsersTasks(t *testing.T) {
	srv := newTestServer(t)
	owner := newClient(t)
	other := newClient(t)
	signup(t, owner, srv.URL, "mine@example.com")
	signup(t, other, srv.URL, "theirs@example.com")

	createTask(t, owner, srv.URL, map[string]string{"title": "mine only"})

	status, env := do(t, other, http.MethodGet, srv.URL+"/api/v1/tasks", nil)
	require.Equal(t, http.StatusOK, status)
	var tasks []model.Task
	require.NoError(t, json.Unmarshal(env.Data, &tasks))
	assert.Empty(t, tasks)
}

func TestLogoutClearsSession(t *testing.T) {
	srv := newTestServer(t)
	client := newClient(t)
	signup(t, client, srv.URL, "logout@example.com")

	status, _ := do(t, client, http.MethodGet, srv.URL+"/api/v1/auth/profile", nil)
	require.Equal(t, http.StatusOK, status)

	status, env := do(t, client, http.MethodPost, srv.URL+"/api/v1/auth/logout", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Logged out successfully", env.Message)

	status, _ = do(t, client, http.MethodGet, srv.URL+"/api/v1/auth/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestDeleteAccountRemovesTasks(t *testing.T) {
	srv := newTestServer(t)
	client := newClient(t)
	signup(t, client, srv.URL, "farewell@example.com")

	createTask(t, client, srv.URL, map[string]string{"title": "soon gone"})

	status, env := do(t, client, http.MethodDelete, srv.URL+"/api/v1/auth/account", map[string]string{
		"password": "wrong",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid password", env.Error)

	status, env = do(t, client, http.MethodDelete, srv.URL+"/api/v1/auth/account", map[string]string{
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Account deleted successfully", env.Message)

	// Logging back in is no longer possible.
	status, _ = do(t, newClient(t), http.MethodPost, srv.URL+"/api/v1/auth/login", map[string]string{
		"email":    "farewell@example.com",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestUpdateProfileAndPassword(t *testing.T) {
	srv := newTestServer(t)
	client := newClient(t)
	signup(t, client, srv.URL, "settings@example.com")

	status, env := do(t, client, http.MethodPut, srv.URL+"/api/v1/auth/profile", map[string]string{
		"name": "Renamed",
	})
	require.Equal(t, http.StatusOK, status)
	var user model.User
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, "Renamed", user.Name)

	status, env = do(t, client, http.MethodPut, srv.URL+"/api/v1/auth/password", map[string]string{
		"currentPassword": "secret123",
		"newPassword":     "evenmoresecret",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Password updated successfully", env.Message)

	status, _ = do(t, newClient(t), http.MethodPost, srv.URL+"/api/v1/auth/login", map[string]string{
		"email":    "settings@example.com",
		"password": "evenmoresecret",
	})
	assert.Equal(t, http.StatusOK, status)
}
