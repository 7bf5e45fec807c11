package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/taskdeck/taskdeck/internal/model"
	"github.com/taskdeck/taskdeck/internal/query"
	"github.com/taskdeck/taskdeck/internal/service"
)

var tracer = otel.Tracer("github.com/taskdeck/taskdeck/internal/handler")

// TaskHandler handles HTTP requests for tasks. Every route is mounted
// behind RequireAuth, so the authenticated user id is always available.
type TaskHandler struct {
	svc    *service.TaskService
	logger *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(svc *service.TaskService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		svc:    svc,
		logger: logger,
	}
}

// Routes returns the chi router with task routes.
func (h *TaskHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Update)
	r.Patch("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)

	return r
}

// List returns one page of the caller's tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ctx, span := tracer.Start(ctx, "TaskHandler.List")
	defer span.End()

	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	params := listParams(r)

	page, err := h.svc.List(ctx, claims.UserID, params)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list tasks", slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "Failed to get tasks")
		return
	}

	span.SetAttributes(attribute.Int("task.count", len(page.Tasks)))
	h.logger.InfoContext(ctx, "tasks listed",
		slog.String("user_id", claims.UserID),
		slog.Int("count", len(page.Tasks)),
	)

	// User-specific data; keep intermediaries from caching it.
	w.Header().Set("Cache-Control", "private, no-cache, no-store, must-revalidate")
	respondList(w, page.Tasks, page.Pagination)
}

// Create adds a new task owned by the caller.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ctx, span := tracer.Start(ctx, "TaskHandler.Create")
	defer span.End()

	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req model.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid request body", slog.Any("error", err))
		respondError(w, http.StatusBadRequest, "Invalid input data")
		return
	}

	if err := req.Validate(); err != nil {
		h.logger.WarnContext(ctx, "validation failed", slog.Any("error", err))
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.svc.Create(ctx, claims.UserID, &req)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to create task", slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "Failed to create task")
		return
	}

	span.SetAttributes(attribute.String("task.id", task.ID))
	h.logger.InfoContext(ctx, "task created",
		slog.String("id", task.ID),
		slog.String("user_id", claims.UserID),
	)

	respondData(w, http.StatusCreated, task)
}

// GetByID returns a single task owned by the caller.
func (h *TaskHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "TaskHandler.GetByID",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	task, err := h.svc.GetByID(ctx, claims.UserID, id)
	if err != nil {
		h.taskError(ctx, w, err, "Failed to get task")
		return
	}

	respondData(w, http.StatusOK, task)
}

// Update applies a partial update to the caller's task.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "TaskHandler.Update",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req model.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid request body", slog.Any("error", err))
		respondError(w, http.StatusBadRequest, "Invalid input data")
		return
	}

	if err := req.Validate(); err != nil {
		h.logger.WarnContext(ctx, "validation failed", slog.Any("error", err))
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.svc.Update(ctx, claims.UserID, id, &req)
	if err != nil {
		h.taskError(ctx, w, err, "Failed to update task")
		return
	}

	h.logger.InfoContext(ctx, "task updated", slog.String("id", id))
	respondData(w, http.StatusOK, task)
}

// Delete removes the caller's task.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "TaskHandler.Delete",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	if err := h.svc.Delete(ctx, claims.UserID, id); err != nil {
		h.taskError(ctx, w, err, "Failed to delete task")
		return
	}

	h.logger.InfoContext(ctx, "task deleted", slog.String("id", id))
	respondMessage(w, http.StatusOK, "Task deleted successfully")
}

// taskError maps service errors to transport responses. Transition
// violations surface with the validator's literal message.
func (h *TaskHandler) taskError(ctx context.Context, w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, model.ErrTaskNotFound):
		h.logger.WarnContext(ctx, "task not found")
		respondError(w, http.StatusNotFound, model.ErrTaskNotFound.Message)
	case errors.Is(err, model.ErrTerminalState), errors.Is(err, model.ErrInvalidTransition):
		h.logger.WarnContext(ctx, "invalid status transition", slog.Any("error", err))
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.ErrorContext(ctx, fallback, slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, fallback)
	}
}

// listParams extracts filter, sort and pagination parameters from the
// request. An absent or unparseable limit falls back to the default;
// supplied values are clamped later by Params.Normalize.
func listParams(r *http.Request) query.Params {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))

	limit := query.DefaultLimit
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	return query.Params{
		Page:      page,
		Limit:     limit,
		Status:    model.TaskStatus(q.Get("status")),
		Search:    q.Get("search"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}
}
