package repository

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/taskdeck/taskdeck/internal/model"
	"github.com/taskdeck/taskdeck/internal/query"
)

var tracer = otel.Tracer("github.com/taskdeck/taskdeck/internal/repository")

// TaskRepository provides durable task storage backed by GORM. It carries
// no business rules; ownership and transition checks happen in the
// service layer, except that lookups are always keyed by both task id and
// owner so another user's task resolves exactly like a missing one.
type TaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a new task row.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	ctx, span := tracer.Start(ctx, "TaskRepository.Create",
		trace.WithAttributes(attribute.String("task.id", task.ID)),
	)
	defer span.End()

	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// FindByIDAndOwner retrieves a task by id, scoped to its owner. A task
// belonging to another user is reported as model.ErrTaskNotFound, same as
// a task that does not exist.
func (r *TaskRepository) FindByIDAndOwner(ctx context.Context, id, userID string) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskRepository.FindByIDAndOwner",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	var task model.Task
	err := r.db.WithContext(ctx).First(&task, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetAttributes(attribute.Bool("task.found", false))
			return nil, model.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	span.SetAttributes(attribute.Bool("task.found", true))
	return &task, nil
}

// List returns one page of the owner's tasks matching the normalized
// params, along with the total row count before pagination.
func (r *TaskRepository) List(ctx context.Context, userID string, p query.Params) ([]*model.Task, int64, error) {
	ctx, span := tracer.Start(ctx, "TaskRepository.List",
		trace.WithAttributes(
			attribute.Int("query.page", p.Page),
			attribute.Int("query.limit", p.Limit),
		),
	)
	defer span.End()

	base := r.db.WithContext(ctx).
		Model(&model.Task{}).
		Where("user_id = ?", userID).
		Scopes(p.Filter()).
		Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	var tasks []*model.Task
	if err := base.Scopes(p.Sort(), p.Paginate()).Find(&tasks).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	span.SetAttributes(attribute.Int("task.count", len(tasks)))
	return tasks, total, nil
}

// Save persists all fields of an existing task row.
func (r *TaskRepository) Save(ctx context.Context, task *model.Task) error {
	ctx, span := tracer.Start(ctx, "TaskRepository.Save",
		trace.WithAttributes(attribute.String("task.id", task.ID)),
	)
	defer span.End()

	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

// Delete removes a task row by id.
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "TaskRepository.Delete",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	result := r.db.WithContext(ctx).Delete(&model.Task{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete task: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		span.SetAttributes(attribute.Bool("task.found", false))
		return model.ErrTaskNotFound
	}
	return nil
}

// CountPending returns the number of tasks still in PENDING, across all
// users. Feeds the open-tasks gauge.
func (r *TaskRepository) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Task{}).
		Where("status = ?", model.StatusPending).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return count, nil
}
