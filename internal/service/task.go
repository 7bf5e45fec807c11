package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/taskdeck/taskdeck/internal/model"
	"github.com/taskdeck/taskdeck/internal/query"
	"github.com/taskdeck/taskdeck/internal/repository"
)

var tracer = otel.Tracer("github.com/taskdeck/taskdeck/internal/service")

// TaskPage is one page of a user's task listing.
type TaskPage struct {
	Tasks      []*model.Task
	Pagination query.Pagination
}

// TaskService is the sole entry point for task reads and mutations. Every
// operation is scoped to the calling user; a task owned by someone else
// behaves exactly like a task that does not exist.
type TaskService struct {
	repo *repository.TaskRepository
}

// NewTaskService creates a new TaskService.
func NewTaskService(repo *repository.TaskRepository) *TaskService {
	return &TaskService{repo: repo}
}

// Create constructs a task owned by userID. Status defaults to PENDING
// when the request leaves it empty. Callers are expected to have
// validated the request.
func (s *TaskService) Create(ctx context.Context, userID string, req *model.CreateTaskRequest) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskService.Create",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	status := req.Status
	if status == "" {
		status = model.StatusPending
	}

	now := time.Now()
	task := &model.Task{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		Status:      status,
		UserID:      userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, task); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("task.id", task.ID))
	return task, nil
}

// List returns one page of the user's tasks. Parameters are normalized
// first, so out-of-range pages and limits are clamped rather than
// rejected.
func (s *TaskService) List(ctx context.Context, userID string, params query.Params) (*TaskPage, error) {
	ctx, span := tracer.Start(ctx, "TaskService.List",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	params.Normalize()

	tasks, total, err := s.repo.List(ctx, userID, params)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("task.count", len(tasks)))
	return &TaskPage{
		Tasks:      tasks,
		Pagination: query.NewPagination(total, params.Page, params.Limit),
	}, nil
}

// GetByID returns the task only if it exists and belongs to userID.
func (s *TaskService) GetByID(ctx context.Context, userID, id string) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskService.GetByID",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	return s.repo.FindByIDAndOwner(ctx, id, userID)
}

// Update applies the fields present in req to the user's task. When the
// request carries a status, the transition is validated against the state
// machine before anything is written. Absent fields are left untouched.
func (s *TaskService) Update(ctx context.Context, userID, id string, req *model.UpdateTaskRequest) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskService.Update",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	task, err := s.repo.FindByIDAndOwner(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if req.Status != nil {
		if err := ValidateTransition(task.Status, *req.Status); err != nil {
			return nil, err
		}
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = req.Description
	}
	if req.Status != nil {
		task.Status = *req.Status
	}
	task.UpdatedAt = time.Now()

	if err := s.repo.Save(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Delete removes the user's task.
func (s *TaskService) Delete(ctx context.Context, userID, id string) error {
	ctx, span := tracer.Start(ctx, "TaskService.Delete",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	// Ownership check first; the row delete is keyed by id alone.
	if _, err := s.repo.FindByIDAndOwner(ctx, id, userID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
