package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/studytask-api/internal/domain"
	"github.com/phrazzld/studytask-api/internal/platform/logger"
	"github.com/phrazzld/studytask-api/internal/store"
)

const attemptColumns = `id, task_id, proof_url, verdict, score, reasons, raw_features, created_at`

// SQLVerificationAttemptStore implements store.VerificationAttemptStore.
type SQLVerificationAttemptStore struct {
	db      store.DBTX
	dialect Dialect
	logger  *slog.Logger
}

var _ store.VerificationAttemptStore = (*SQLVerificationAttemptStore)(nil)

// NewVerificationAttemptStore creates an attempt store running queries against db.
func NewVerificationAttemptStore(db store.DBTX, dialect Dialect, logger *slog.Logger) *SQLVerificationAttemptStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLVerificationAttemptStore{
		db:      db,
		dialect: dialect,
		logger:  logger.With(slog.String("component", "verification_attempt_store")),
	}
}

// WithTx implements store.VerificationAttemptStore.
func (s *SQLVerificationAttemptStore) WithTx(tx *sql.Tx) store.VerificationAttemptStore {
	return &SQLVerificationAttemptStore{db: tx, dialect: s.dialect, logger: s.logger}
}

// Create implements store.VerificationAttemptStore.
// Returns store.ErrInvalidEntity when the task does not exist.
func (s *SQLVerificationAttemptStore) Create(ctx context.Context, attempt *domain.VerificationAttempt) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := attempt.Validate(); err != nil {
		log.Warn("verification attempt validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", attempt.TaskID.String()))
		return err
	}

	var rawFeatures sql.NullString
	if attempt.RawFeatures != nil {
		rawFeatures = sql.NullString{String: string(attempt.RawFeatures), Valid: true}
	}

	var score sql.NullFloat64
	if attempt.Score != nil {
		score = sql.NullFloat64{Float64: *attempt.Score, Valid: true}
	}
	var reasons sql.NullString
	if attempt.Reasons != nil {
		reasons = sql.NullString{String: *attempt.Reasons, Valid: true}
	}

	query := s.dialect.Rebind(`
		INSERT INTO verification_attempts (` + attemptColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := s.db.ExecContext(ctx, query,
		attempt.ID,
		attempt.TaskID,
		attempt.ProofURL,
		attempt.Verdict,
		score,
		reasons,
		rawFeatures,
		s.dialect.timeValue(attempt.CreatedAt),
	)
	if err != nil {
		log.Error("failed to insert verification attempt",
			slog.String("error", err.Error()),
			slog.String("task_id", attempt.TaskID.String()))
		return store.NewStoreError("verification_attempt", "create",
			"failed to insert verification attempt", MapError(err))
	}

	log.Debug("verification attempt recorded",
		slog.String("attempt_id", attempt.ID.String()),
		slog.String("task_id", attempt.TaskID.String()),
		slog.Bool("verdict", attempt.Verdict))
	return nil
}

// ListByTaskID implements store.VerificationAttemptStore.
func (s *SQLVerificationAttemptStore) ListByTaskID(
	ctx context.Context,
	taskID uuid.UUID,
) ([]*domain.VerificationAttempt, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := s.dialect.Rebind(`
		SELECT ` + attemptColumns + `
		FROM verification_attempts
		WHERE task_id = ?
		ORDER BY created_at ASC, id ASC
	`)
	rows, err := s.db.QueryContext(ctx, query, taskID)
	if err != nil {
		log.Error("failed to list verification attempts",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return nil, store.NewStoreError("verification_attempt", "list",
			"failed to query verification attempts", MapError(err))
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Error("failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	attempts := make([]*domain.VerificationAttempt, 0)
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			log.Error("failed to scan verification attempt", slog.String("error", err.Error()))
			return nil, store.NewStoreError("verification_attempt", "list",
				"failed to scan verification attempt", err)
		}
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("verification_attempt", "list",
			"failed to iterate verification attempts", MapError(err))
	}

	return attempts, nil
}

func scanAttempt(row rowScanner) (*domain.VerificationAttempt, error) {
	var (
		attempt     domain.VerificationAttempt
		score       sql.NullFloat64
		reasons     sql.NullString
		rawFeatures sql.NullString
		createdAt   dbTime
	)
	if err := row.Scan(
		&attempt.ID,
		&attempt.TaskID,
		&attempt.ProofURL,
		&attempt.Verdict,
		&score,
		&reasons,
		&rawFeatures,
		&createdAt,
	); err != nil {
		return nil, err
	}

	if score.Valid {
		attempt.Score = &score.Float64
	}
	if reasons.Valid {
		attempt.Reasons = &reasons.String
	}
	if rawFeatures.Valid {
		attempt.RawFeatures = json.RawMessage(rawFeatures.String)
	}
	attempt.CreatedAt = createdAt.Time
	return &attempt, nil
}
