package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/studytask-api/internal/domain"
)

// VerificationAttemptStore persists the append-only audit trail of
// verification attempts. There is no update or delete.
type VerificationAttemptStore interface {
	// Create appends a new attempt.
	// Returns ErrInvalidEntity if the referenced task does not exist.
	Create(ctx context.Context, attempt *domain.VerificationAttempt) error

	// ListByTaskID returns all attempts for a task, oldest first.
	ListByTaskID(ctx context.Context, taskID uuid.UUID) ([]*domain.VerificationAttempt, error)

	// WithTx returns a VerificationAttemptStore bound to tx.
	WithTx(tx *sql.Tx) VerificationAttemptStore
}
