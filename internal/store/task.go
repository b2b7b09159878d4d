package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/studytask-api/internal/domain"
)

// TaskFilter narrows a task listing. Every set field must match (AND).
// Zero values mean "no constraint".
type TaskFilter struct {
	// State matches exactly.
	State *domain.TaskState
	// TitleContains is a case-sensitive substring of the title.
	TitleContains string
	// DueBefore keeps tasks with due_at strictly before it.
	DueBefore *time.Time
	// DueAfter keeps tasks with due_at strictly after it.
	DueAfter *time.Time
}

// TaskStore defines the interface for task persistence.
type TaskStore interface {
	// Create saves a new task. Returns validation errors if the task is invalid.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// LockByID retrieves a task and, where the engine supports row locks,
	// locks it until the surrounding transaction ends.
	// Returns ErrTaskNotFound if the task does not exist.
	LockByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// ExpireOverdue moves every PENDING task whose due_at is at or before now
	// to EXPIRED and returns how many tasks changed.
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)

	// List returns tasks matching filter ordered by due_at ascending.
	// Returns an empty slice when nothing matches.
	List(ctx context.Context, filter TaskFilter) ([]*domain.Task, error)

	// UpdateState sets the state and updated_at of a task.
	// Returns ErrTaskNotFound if the task does not exist.
	UpdateState(ctx context.Context, id uuid.UUID, state domain.TaskState, updatedAt time.Time) error

	// WithTx returns a TaskStore bound to tx.
	WithTx(tx *sql.Tx) TaskStore
}
