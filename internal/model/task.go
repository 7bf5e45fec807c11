package model

import (
	"time"
	"unicode/utf8"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusPending   TaskStatus = "PENDING"
	StatusCompleted TaskStatus = "COMPLETED"
	StatusCanceled  TaskStatus = "CANCELED"
)

// IsValid reports whether s is one of the known task statuses.
func (s TaskStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

// IsTerminal reports whether s permits no further transitions.
func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// Task represents a user-owned unit of work.
//
// The JSON field names form the serialization contract with API clients
// and must not change.
type Task struct {
	ID          string     `gorm:"primaryKey;type:text" json:"id"`
	Title       string     `gorm:"not null;type:text" json:"title"`
	Description *string    `gorm:"type:text" json:"description"`
	Status      TaskStatus `gorm:"not null;type:text;index:idx_tasks_owner_status,priority:2" json:"status"`
	UserID      string     `gorm:"not null;type:text;index;index:idx_tasks_owner_status,priority:1;index:idx_tasks_owner_created,priority:1" json:"userId"`
	CreatedAt   time.Time  `gorm:"index:idx_tasks_owner_created,priority:2" json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// TableName returns the table name for the Task entity.
func (Task) TableName() string {
	return "tasks"
}

// CreateTaskRequest represents the request body for creating a task.
// A nil description stays null; clients see it back as JSON null rather
// than an empty string.
type CreateTaskRequest struct {
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      TaskStatus `json:"status"`
}

// Validate checks if the CreateTaskRequest is valid. An empty status is
// permitted and defaults to PENDING downstream.
func (r *CreateTaskRequest) Validate() error {
	if utf8.RuneCountInString(r.Title) < 3 {
		return ErrTitleTooShort
	}
	if r.Status != "" && !r.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}

// UpdateTaskRequest represents the request body for updating a task.
// Nil fields are absent from the request and leave the task untouched.
type UpdateTaskRequest struct {
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	Status      *TaskStatus `json:"status,omitempty"`
}

// Validate checks if the UpdateTaskRequest is valid.
func (r *UpdateTaskRequest) Validate() error {
	if r.Title != nil && utf8.RuneCountInString(*r.Title) < 3 {
		return ErrTitleTooShort
	}
	if r.Status != nil && !r.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}

// TaskError represents a domain error for tasks. The messages are part of
// the API contract and surface verbatim in error responses.
type TaskError struct {
	Message string
}

func (e TaskError) Error() string {
	return e.Message
}

var (
	ErrTaskNotFound      = TaskError{Message: "Task not found"}
	ErrTitleTooShort     = TaskError{Message: "Title must be at least 3 characters"}
	ErrInvalidStatus     = TaskError{Message: "Invalid task status"}
	ErrTerminalState     = TaskError{Message: "Cannot change status of completed or canceled task"}
	ErrInvalidTransition = TaskError{Message: "Pending tasks can only be changed to completed or canceled"}
)
