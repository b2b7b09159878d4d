package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/studytask-api/internal/domain"
	"github.com/phrazzld/studytask-api/internal/platform/logger"
	"github.com/phrazzld/studytask-api/internal/store"
)

const taskColumns = `id, title, verify_method, due_at, state, created_at, updated_at`

// likeEscaper neutralizes LIKE wildcards in user input. Used with ESCAPE '\'.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SQLTaskStore implements store.TaskStore on a SQL database.
type SQLTaskStore struct {
	db      store.DBTX
	dialect Dialect
	logger  *slog.Logger
}

var _ store.TaskStore = (*SQLTaskStore)(nil)

// NewTaskStore creates a task store running queries against db.
// db may be a *sql.DB or a *sql.Tx. A nil logger falls back to slog.Default().
func NewTaskStore(db store.DBTX, dialect Dialect, logger *slog.Logger) *SQLTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLTaskStore{
		db:      db,
		dialect: dialect,
		logger:  logger.With(slog.String("component", "task_store")),
	}
}

// WithTx implements store.TaskStore.
func (s *SQLTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &SQLTaskStore{db: tx, dialect: s.dialect, logger: s.logger}
}

// Create implements store.TaskStore.
func (s *SQLTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	query := s.dialect.Rebind(`
		INSERT INTO tasks (` + taskColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.Title,
		task.VerifyMethod,
		s.dialect.timeValue(task.DueAt),
		string(task.State),
		s.dialect.timeValue(task.CreatedAt),
		s.dialect.timeValue(task.UpdatedAt),
	)
	if err != nil {
		log.Error("failed to insert task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return store.NewStoreError("task", "create", "failed to insert task", MapError(err))
	}

	log.Debug("task created",
		slog.String("task_id", task.ID.String()),
		slog.Time("due_at", task.DueAt))
	return nil
}

// GetByID implements store.TaskStore.
func (s *SQLTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return s.getByID(ctx, id, "")
}

// LockByID implements store.TaskStore.
func (s *SQLTaskStore) LockByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return s.getByID(ctx, id, s.dialect.lockClause())
}

func (s *SQLTaskStore) getByID(ctx context.Context, id uuid.UUID, suffix string) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := s.dialect.Rebind(`SELECT ` + taskColumns + ` FROM tasks WHERE id = ?` + suffix)
	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.String("task_id", id.String()))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, store.NewStoreError("task", "get", "failed to query task", MapError(err))
	}
	return task, nil
}

// ExpireOverdue implements store.TaskStore.
func (s *SQLTaskStore) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := s.dialect.Rebind(`
		UPDATE tasks
		SET state = ?, updated_at = ?
		WHERE state = ? AND due_at <= ?
	`)
	nowValue := s.dialect.timeValue(now)
	result, err := s.db.ExecContext(ctx, query,
		string(domain.TaskStateExpired),
		nowValue,
		string(domain.TaskStatePending),
		nowValue,
	)
	if err != nil {
		log.Error("failed to expire overdue tasks", slog.String("error", err.Error()))
		return 0, store.NewStoreError("task", "expire", "failed to expire overdue tasks", MapError(err))
	}

	expired, err := result.RowsAffected()
	if err != nil {
		return 0, store.NewStoreError("task", "expire", "failed to count expired tasks", err)
	}
	if expired > 0 {
		log.Info("expired overdue tasks", slog.Int64("count", expired))
	}
	return expired, nil
}

// List implements store.TaskStore.
func (s *SQLTaskStore) List(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var (
		conditions []string
		args       []any
	)
	if filter.State != nil {
		conditions = append(conditions, "state = ?")
		args = append(args, string(*filter.State))
	}
	if filter.TitleContains != "" {
		conditions = append(conditions, `title LIKE ? ESCAPE '\'`)
		args = append(args, "%"+likeEscaper.Replace(filter.TitleContains)+"%")
	}
	if filter.DueBefore != nil {
		conditions = append(conditions, "due_at < ?")
		args = append(args, s.dialect.timeValue(*filter.DueBefore))
	}
	if filter.DueAfter != nil {
		conditions = append(conditions, "due_at > ?")
		args = append(args, s.dialect.timeValue(*filter.DueAfter))
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY due_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		log.Error("failed to list tasks", slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", "list", "failed to query tasks", MapError(err))
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Error("failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Error("failed to scan task row", slog.String("error", err.Error()))
			return nil, store.NewStoreError("task", "list", "failed to scan task", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating task rows", slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", "list", "failed to iterate tasks", MapError(err))
	}

	log.Debug("listed tasks", slog.Int("count", len(tasks)))
	return tasks, nil
}

// UpdateState implements store.TaskStore.
func (s *SQLTaskStore) UpdateState(
	ctx context.Context,
	id uuid.UUID,
	state domain.TaskState,
	updatedAt time.Time,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !state.IsValid() {
		return domain.NewValidationError("state", "must be PENDING, APPROVED or EXPIRED", domain.ErrInvalidTaskState)
	}

	query := s.dialect.Rebind(`UPDATE tasks SET state = ?, updated_at = ? WHERE id = ?`)
	result, err := s.db.ExecContext(ctx, query, string(state), s.dialect.timeValue(updatedAt), id)
	if err != nil {
		log.Error("failed to update task state",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return store.NewStoreError("task", "update_state", "failed to update task state", MapError(err))
	}
	if err := checkRowsAffected(result, store.ErrTaskNotFound); err != nil {
		return err
	}

	log.Debug("task state updated",
		slog.String("task_id", id.String()),
		slog.String("state", string(state)))
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task                      domain.Task
		state                     string
		dueAt, createdAt, updated dbTime
	)
	if err := row.Scan(
		&task.ID,
		&task.Title,
		&task.VerifyMethod,
		&dueAt,
		&state,
		&createdAt,
		&updated,
	); err != nil {
		return nil, err
	}
	task.State = domain.TaskState(state)
	task.DueAt = dueAt.Time
	task.CreatedAt = createdAt.Time
	task.UpdatedAt = updated.Time
	return &task, nil
}
