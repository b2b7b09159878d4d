package api

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/studytask-api/internal/domain"
	"github.com/phrazzld/studytask-api/internal/service"
	"github.com/phrazzld/studytask-api/internal/store"
)

// getTaskID reads the task id path parameter. Any value that is not a UUID
// cannot name a task, so it is reported as not found.
func getTaskID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, service.ErrTaskNotFound
	}
	return id, nil
}

// parseTaskFilter builds a listing filter from the query string.
// Empty parameters are ignored.
func parseTaskFilter(query url.Values) (store.TaskFilter, error) {
	var filter store.TaskFilter

	if raw := query.Get("state"); raw != "" {
		state, err := domain.ParseTaskState(raw)
		if err != nil {
			return filter, err
		}
		filter.State = &state
	}

	filter.TitleContains = query.Get("q")

	if raw := query.Get("due_before"); raw != "" {
		before, err := parseQueryTimestamp("due_before", raw)
		if err != nil {
			return filter, err
		}
		filter.DueBefore = &before
	}

	if raw := query.Get("due_after"); raw != "" {
		after, err := parseQueryTimestamp("due_after", raw)
		if err != nil {
			return filter, err
		}
		filter.DueAfter = &after
	}

	return filter, nil
}

// parseQueryTimestamp parses a timestamp query parameter. An unescaped "+"
// in an offset arrives as a space, so a failed parse is retried with the
// last space restored.
func parseQueryTimestamp(field, raw string) (time.Time, error) {
	t, err := domain.ParseTimestamp(field, raw)
	if err == nil {
		return t, nil
	}
	if i := strings.LastIndex(raw, " "); i > 0 {
		if t, retryErr := domain.ParseTimestamp(field, raw[:i]+"+"+raw[i+1:]); retryErr == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}
