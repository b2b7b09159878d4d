package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/studytask-api/internal/domain"
	"github.com/phrazzld/studytask-api/internal/platform/logger"
	"github.com/phrazzld/studytask-api/internal/store"
)

// VerificationInput carries one verification attempt as submitted by a
// client. Verdict is decided by the caller.
type VerificationInput struct {
	ProofURL    string
	Verdict     bool
	Score       *float64
	Reasons     *string
	RawFeatures json.RawMessage
}

// TaskService provides task lifecycle operations.
type TaskService interface {
	// CreateTask creates a PENDING task. dueAt is normalized to UTC.
	CreateTask(ctx context.Context, title, verifyMethod string, dueAt time.Time) (*domain.Task, error)

	// ListTasks expires overdue tasks and then returns the tasks matching
	// filter, ordered by due date.
	ListTasks(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error)

	// RecordVerificationAttempt appends an attempt to the task's audit trail
	// and returns the task's resulting state. A positive verdict approves the
	// task whatever its current state.
	RecordVerificationAttempt(ctx context.Context, taskID uuid.UUID, input VerificationInput) (domain.TaskState, error)

	// ListVerificationAttempts returns the task's attempts, oldest first.
	ListVerificationAttempts(ctx context.Context, taskID uuid.UUID) ([]*domain.VerificationAttempt, error)
}

// Option configures a task service.
type Option func(*taskServiceImpl)

// WithClock replaces time.Now as the source of the current instant.
func WithClock(now func() time.Time) Option {
	return func(s *taskServiceImpl) {
		s.now = now
	}
}

type taskServiceImpl struct {
	db       *sql.DB
	tasks    store.TaskStore
	attempts store.VerificationAttemptStore
	logger   *slog.Logger
	now      func() time.Time
}

// NewTaskService creates a TaskService. db is used to open transactions;
// the stores are bound to each transaction with WithTx.
func NewTaskService(
	db *sql.DB,
	tasks store.TaskStore,
	attempts store.VerificationAttemptStore,
	logger *slog.Logger,
	opts ...Option,
) (TaskService, error) {
	if db == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "db cannot be nil"}
	}
	if tasks == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "task store cannot be nil"}
	}
	if attempts == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "verification attempt store cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &taskServiceImpl{
		db:       db,
		tasks:    tasks,
		attempts: attempts,
		logger:   logger.With(slog.String("component", "task_service")),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *taskServiceImpl) clock() time.Time {
	return domain.NormalizeTimestamp(s.now())
}

// CreateTask implements TaskService.
func (s *taskServiceImpl) CreateTask(
	ctx context.Context,
	title, verifyMethod string,
	dueAt time.Time,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.clock()

	task, err := domain.NewTask(title, verifyMethod, dueAt, now)
	if err != nil {
		log.Debug("rejected invalid task", slog.String("error", err.Error()))
		return nil, err
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, NewTaskServiceError("create_task", "failed to save task", err)
	}

	log.Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("due_at", domain.FormatTimestamp(task.DueAt)),
		slog.Bool("already_due", task.IsOverdue(now)))
	return task, nil
}

// ListTasks implements TaskService.
func (s *taskServiceImpl) ListTasks(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.clock()

	if filter.DueBefore != nil {
		before := domain.NormalizeTimestamp(*filter.DueBefore)
		filter.DueBefore = &before
	}
	if filter.DueAfter != nil {
		after := domain.NormalizeTimestamp(*filter.DueAfter)
		filter.DueAfter = &after
	}

	var tasks []*domain.Task
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)

		expired, err := txTasks.ExpireOverdue(ctx, now)
		if err != nil {
			return err
		}
		if expired > 0 {
			log.Debug("expiry sweep", slog.Int64("expired", expired))
		}

		tasks, err = txTasks.List(ctx, filter)
		return err
	})
	if err != nil {
		return nil, NewTaskServiceError("list_tasks", "failed to list tasks", err)
	}

	return tasks, nil
}

// RecordVerificationAttempt implements TaskService.
func (s *taskServiceImpl) RecordVerificationAttempt(
	ctx context.Context,
	taskID uuid.UUID,
	input VerificationInput,
) (domain.TaskState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.clock()

	attempt, err := domain.NewVerificationAttempt(
		taskID,
		input.ProofURL,
		input.Verdict,
		input.Score,
		input.Reasons,
		input.RawFeatures,
		now,
	)
	if err != nil {
		// ErrInvalidID only surfaces once the payload is valid. No task has the nil id.
		if taskID == uuid.Nil && errors.Is(err, domain.ErrInvalidID) {
			return "", ErrTaskNotFound
		}
		return "", err
	}

	var (
		prior    domain.TaskState
		resulted domain.TaskState
	)
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)

		task, err := txTasks.LockByID(ctx, taskID)
		if err != nil {
			return err
		}
		prior = task.State

		if err := s.attempts.WithTx(tx).Create(ctx, attempt); err != nil {
			return err
		}

		if attempt.Verdict {
			task.Approve(now)
			if err := txTasks.UpdateState(ctx, task.ID, task.State, task.UpdatedAt); err != nil {
				return err
			}
		}

		resulted = attempt.ResultingState(prior)
		return nil
	})
	if err != nil {
		return "", NewTaskServiceError("record_verification_attempt", "failed to record verification attempt", err)
	}

	log.Info("verification attempt recorded",
		slog.String("task_id", taskID.String()),
		slog.String("attempt_id", attempt.ID.String()),
		slog.Bool("verdict", attempt.Verdict),
		slog.String("prior_state", string(prior)),
		slog.String("state", string(resulted)))
	return resulted, nil
}

// ListVerificationAttempts implements TaskService.
func (s *taskServiceImpl) ListVerificationAttempts(
	ctx context.Context,
	taskID uuid.UUID,
) ([]*domain.VerificationAttempt, error) {
	if _, err := s.tasks.GetByID(ctx, taskID); err != nil {
		return nil, NewTaskServiceError("list_verification_attempts", "failed to get task", err)
	}

	attempts, err := s.attempts.ListByTaskID(ctx, taskID)
	if err != nil {
		return nil, NewTaskServiceError("list_verification_attempts", "failed to list verification attempts", err)
	}
	return attempts, nil
}
