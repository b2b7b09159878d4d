package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskState represents where a task is in its lifecycle.
type TaskState string

// Possible task states
const (
	TaskStatePending  TaskState = "PENDING"
	TaskStateApproved TaskState = "APPROVED"
	TaskStateExpired  TaskState = "EXPIRED"
)

// Task is a trackable unit of study work with a deadline and a description of
// how completion is verified. Title, VerifyMethod and DueAt never change after
// creation; only State and UpdatedAt move.
type Task struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	VerifyMethod string    `json:"verify_method"`
	DueAt        time.Time `json:"due_at"`
	State        TaskState `json:"state"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewTask creates a pending Task. Title and verify method are trimmed and must
// not be empty; dueAt is normalized to UTC.
func NewTask(title, verifyMethod string, dueAt, now time.Time) (*Task, error) {
	now = NormalizeTimestamp(now)
	task := &Task{
		ID:           uuid.New(),
		Title:        strings.TrimSpace(title),
		VerifyMethod: strings.TrimSpace(verifyMethod),
		DueAt:        NormalizeTimestamp(dueAt),
		State:        TaskStatePending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}

	if strings.TrimSpace(t.Title) == "" {
		return NewValidationError("title", "cannot be empty", ErrEmptyContent)
	}

	if strings.TrimSpace(t.VerifyMethod) == "" {
		return NewValidationError("verify_method", "cannot be empty", ErrEmptyContent)
	}

	if t.DueAt.IsZero() {
		return NewValidationError("due_at", "is required", ErrValidation)
	}

	if !t.State.IsValid() {
		return NewValidationError("state", "must be PENDING, APPROVED or EXPIRED", ErrInvalidTaskState)
	}

	return nil
}

// IsOverdue reports whether a pending task has reached its due time at now.
// Tasks in any other state are never overdue.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.State == TaskStatePending && !t.DueAt.After(now)
}

// Approve moves the task to APPROVED from any state. A late proof on an
// expired task, or a repeated proof on an approved one, still approves it.
func (t *Task) Approve(now time.Time) {
	t.State = TaskStateApproved
	t.UpdatedAt = NormalizeTimestamp(now)
}

// IsValid reports whether s is one of the known task states.
func (s TaskState) IsValid() bool {
	switch s {
	case TaskStatePending, TaskStateApproved, TaskStateExpired:
		return true
	default:
		return false
	}
}

// ParseTaskState converts user input into a TaskState. Matching ignores case
// and surrounding whitespace.
func ParseTaskState(value string) (TaskState, error) {
	state := TaskState(strings.ToUpper(strings.TrimSpace(value)))
	if !state.IsValid() {
		return "", NewValidationError("state", "must be PENDING, APPROVED or EXPIRED", ErrInvalidTaskState)
	}
	return state, nil
}
