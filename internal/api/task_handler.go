package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/studytask-api/internal/api/shared"
	"github.com/phrazzld/studytask-api/internal/domain"
	"github.com/phrazzld/studytask-api/internal/platform/logger"
	"github.com/phrazzld/studytask-api/internal/service"
)

// TaskHandler serves the task lifecycle endpoints.
type TaskHandler struct {
	taskService service.TaskService
	logger      *slog.Logger
}

// NewTaskHandler creates a TaskHandler.
func NewTaskHandler(taskService service.TaskService, logger *slog.Logger) *TaskHandler {
	if taskService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("taskService cannot be nil for TaskHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		taskService: taskService,
		logger:      logger.With(slog.String("component", "task_handler")),
	}
}

// CreateTask handles POST /v1/tasks.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req CreateTaskRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	dueAt, err := domain.ParseTimestamp("due_at_iso", req.DueAtISO)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	task, err := h.taskService.CreateTask(r.Context(), req.Title, req.VerifyMethod, dueAt)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create task")
		return
	}

	log.Debug("task created", slog.String("task_id", task.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, taskToResponse(task))
}

// ListTasks handles GET /v1/tasks.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTaskFilter(r.URL.Query())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	tasks, err := h.taskService.ListTasks(r.Context(), filter)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}

	items := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		items = append(items, taskToResponse(task))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, TaskListResponse{Items: items})
}

// RecordVerificationAttempt handles POST /v1/tasks/{id}/verify-attempt.
func (h *TaskHandler) RecordVerificationAttempt(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req VerifyAttemptRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	// The body is validated first, so a bad payload is reported even for
	// an unknown task.
	taskID, err := getTaskID(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	state, err := h.taskService.RecordVerificationAttempt(r.Context(), taskID, service.VerificationInput{
		ProofURL:    req.ProofURL,
		Verdict:     *req.Verdict,
		Score:       req.Score,
		Reasons:     req.Reasons,
		RawFeatures: req.RawFeatures,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to record verification attempt")
		return
	}

	log.Debug("verification attempt handled",
		slog.String("task_id", taskID.String()),
		slog.String("state", string(state)))
	shared.RespondWithJSON(w, r, http.StatusOK, VerifyAttemptResponse{
		TaskID: taskID.String(),
		State:  string(state),
	})
}

// ListVerificationAttempts handles GET /v1/tasks/{id}/verify-attempts.
func (h *TaskHandler) ListVerificationAttempts(w http.ResponseWriter, r *http.Request) {
	taskID, err := getTaskID(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	attempts, err := h.taskService.ListVerificationAttempts(r.Context(), taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list verification attempts")
		return
	}

	items := make([]AttemptResponse, 0, len(attempts))
	for _, attempt := range attempts {
		items = append(items, attemptToResponse(attempt))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, AttemptListResponse{Items: items})
}

// RegisterRoutes mounts the task endpoints on r.
func (h *TaskHandler) RegisterRoutes(r chi.Router) {
	r.Route("/tasks", func(r chi.Router) {
		r.Post("/", h.CreateTask)
		r.Get("/", h.ListTasks)
		r.Post("/{id}/verify-attempt", h.RecordVerificationAttempt)
		r.Get("/{id}/verify-attempts", h.ListVerificationAttempts)
	})
}
