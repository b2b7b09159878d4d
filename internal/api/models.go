package api

import (
	"encoding/json"

	"github.com/phrazzld/studytask-api/internal/domain"
)

// CreateTaskRequest is the body of POST /v1/tasks.
type CreateTaskRequest struct {
	Title        string `json:"title"         validate:"required"`
	VerifyMethod string `json:"verify_method" validate:"required"`
	// DueAtISO is an ISO-8601 timestamp; without a zone it is read as UTC.
	DueAtISO string `json:"due_at_iso" validate:"required"`
}

// VerifyAttemptRequest is the body of POST /v1/tasks/{id}/verify-attempt.
type VerifyAttemptRequest struct {
	ProofURL string   `json:"proof_url" validate:"required"`
	Verdict  *bool    `json:"verdict"   validate:"required"`
	Score    *float64 `json:"score"`
	Reasons  *string  `json:"reasons"`
	// RawFeatures must be a JSON object. It is passed through undecoded.
	RawFeatures json.RawMessage `json:"raw_features"`
}

// TaskResponse is the wire form of a task.
type TaskResponse struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	VerifyMethod string `json:"verify_method"`
	DueAtISO     string `json:"due_at_iso"`
	State        string `json:"state"`
	CreatedAtISO string `json:"created_at_iso"`
	UpdatedAtISO string `json:"updated_at_iso"`
}

// TaskListResponse is the body of GET /v1/tasks.
type TaskListResponse struct {
	Items []TaskResponse `json:"items"`
}

// VerifyAttemptResponse reports the task state after a verification attempt.
type VerifyAttemptResponse struct {
	TaskID string `json:"task_id"`
	State  string `json:"state"`
}

// AttemptResponse is the wire form of a verification attempt.
type AttemptResponse struct {
	ID           string          `json:"id"`
	TaskID       string          `json:"task_id"`
	ProofURL     string          `json:"proof_url"`
	Verdict      bool            `json:"verdict"`
	Score        *float64        `json:"score"`
	Reasons      *string         `json:"reasons"`
	RawFeatures  json.RawMessage `json:"raw_features"`
	CreatedAtISO string          `json:"created_at_iso"`
}

// AttemptListResponse is the body of GET /v1/tasks/{id}/verify-attempts.
type AttemptListResponse struct {
	Items []AttemptResponse `json:"items"`
}

func taskToResponse(task *domain.Task) TaskResponse {
	return TaskResponse{
		ID:           task.ID.String(),
		Title:        task.Title,
		VerifyMethod: task.VerifyMethod,
		DueAtISO:     domain.FormatTimestamp(task.DueAt),
		State:        string(task.State),
		CreatedAtISO: domain.FormatTimestamp(task.CreatedAt),
		UpdatedAtISO: domain.FormatTimestamp(task.UpdatedAt),
	}
}

func attemptToResponse(attempt *domain.VerificationAttempt) AttemptResponse {
	return AttemptResponse{
		ID:           attempt.ID.String(),
		TaskID:       attempt.TaskID.String(),
		ProofURL:     attempt.ProofURL,
		Verdict:      attempt.Verdict,
		Score:        attempt.Score,
		Reasons:      attempt.Reasons,
		RawFeatures:  attempt.RawFeatures,
		CreatedAtISO: domain.FormatTimestamp(attempt.CreatedAt),
	}
}
