package domain

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// VerificationAttempt records one attempt to prove a task was completed.
// Attempts are append-only: they are created once and never modified.
type VerificationAttempt struct {
	ID       uuid.UUID `json:"id"`
	TaskID   uuid.UUID `json:"task_id"`
	ProofURL string    `json:"proof_url"`
	Verdict  bool      `json:"verdict"`
	// Score is an optional confidence value. No range is enforced.
	Score   *float64 `json:"score,omitempty"`
	Reasons *string  `json:"reasons,omitempty"`
	// RawFeatures is a JSON object kept byte for byte. It is never decoded,
	// so numbers keep their original text.
	RawFeatures json.RawMessage `json:"raw_features,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewVerificationAttempt creates an attempt for taskID. The proof URL is
// trimmed and must not be empty; the remaining fields are kept as given.
func NewVerificationAttempt(
	taskID uuid.UUID,
	proofURL string,
	verdict bool,
	score *float64,
	reasons *string,
	rawFeatures json.RawMessage,
	now time.Time,
) (*VerificationAttempt, error) {
	if isJSONNull(rawFeatures) {
		rawFeatures = nil
	}

	attempt := &VerificationAttempt{
		ID:          uuid.New(),
		TaskID:      taskID,
		ProofURL:    strings.TrimSpace(proofURL),
		Verdict:     verdict,
		Score:       score,
		Reasons:     reasons,
		RawFeatures: rawFeatures,
		CreatedAt:   NormalizeTimestamp(now),
	}

	if err := attempt.Validate(); err != nil {
		return nil, err
	}

	return attempt, nil
}

// Validate checks if the VerificationAttempt has valid data. Payload fields
// are checked before ids.
func (a *VerificationAttempt) Validate() error {
	if strings.TrimSpace(a.ProofURL) == "" {
		return NewValidationError("proof_url", "cannot be empty", ErrEmptyContent)
	}

	if a.RawFeatures != nil && !isJSONObject(a.RawFeatures) {
		return NewValidationError("raw_features", "must be a JSON object", ErrInvalidFormat)
	}

	if a.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}

	if a.TaskID == uuid.Nil {
		return NewValidationError("task_id", "cannot be empty", ErrInvalidID)
	}

	return nil
}

// ResultingState returns the state a task in current moves to once this
// attempt is applied. Rejections never change the state.
func (a *VerificationAttempt) ResultingState(current TaskState) TaskState {
	if a.Verdict {
		return TaskStateApproved
	}
	return current
}

func isJSONNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func isJSONObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{' && json.Valid(trimmed)
}
