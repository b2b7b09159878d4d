package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/studytask-api/internal/api"
	"github.com/phrazzld/studytask-api/internal/api/middleware"
	"github.com/phrazzld/studytask-api/internal/api/shared"
	"github.com/phrazzld/studytask-api/internal/platform/sqlstore"
	"github.com/phrazzld/studytask-api/internal/service"
	"github.com/phrazzld/studytask-api/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2030, 6, 1, 8, 0, 0, 0, time.UTC)

type testServer struct {
	router http.Handler
	now    time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testdb.SQLite(t)
	ts := &testServer{now: testNow}

	svc, err := service.NewTaskService(db,
		sqlstore.NewTaskStore(db, sqlstore.DialectSQLite, nil),
		sqlstore.NewVerificationAttemptStore(db, sqlstore.DialectSQLite, nil),
		nil,
		service.WithClock(func() time.Time { return ts.now }),
	)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(middleware.NewTraceMiddleware(nil))
	r.Route("/v1", api.NewTaskHandler(svc, nil).RegisterRoutes)
	ts.router = r
	return ts
}

func (ts *testServer) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	switch b := body.(type) {
	case nil:
	case string:
		payload = []byte(b)
	default:
		var err error
		payload, err = json.Marshal(b)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, target, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) createTask(t *testing.T, title string, due time.Time) api.TaskResponse {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/v1/tasks", map[string]any{
		"title":         title,
		"verify_method": "Upload photo",
		"due_at_iso":    due.Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp api.TaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func (ts *testServer) listTasks(t *testing.T, query string) []api.TaskResponse {
	t.Helper()
	rec := ts.do(t, http.MethodGet, "/v1/tasks"+query, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp api.TaskListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Items
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) shared.ErrorResponse {
	t.Helper()
	var resp shared.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCreateTask(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.do(t, http.MethodPost, "/v1/tasks", map[string]any{
			"title":         "  Physics practice ",
			"verify_method": "Upload photo",
			"due_at_iso":    "2030-06-01T12:30:00.250+02:00",
		})

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.NotEmpty(t, rec.Header().Get(middleware.TraceIDHeader))

		var resp api.TaskResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		_, err := uuid.Parse(resp.ID)
		assert.NoError(t, err)
		assert.Equal(t, "Physics practice", resp.Title)
		assert.Equal(t, "Upload photo", resp.VerifyMethod)
		assert.Equal(t, "2030-06-01T10:30:00.25Z", resp.DueAtISO)
		assert.Equal(t, "PENDING", resp.State)
		assert.Equal(t, "2030-06-01T08:00:00Z", resp.CreatedAtISO)
		assert.Equal(t, resp.CreatedAtISO, resp.UpdatedAtISO)
	})

	t.Run("timestamp without zone is UTC", func(t *testing.T) {
		ts := newTestServer(t)
		rec := ts.do(t, http.MethodPost, "/v1/tasks", map[string]any{
			"title": "naive", "verify_method": "photo", "due_at_iso": "2030-06-02T09:15:00",
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp api.TaskResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "2030-06-02T09:15:00Z", resp.DueAtISO)
	})

	tests := []struct {
		name    string
		body    any
		message string
	}{
		{"empty title", map[string]any{"title": "", "verify_method": "photo", "due_at_iso": "2030-06-02T00:00:00Z"}, "Invalid title: required field"},
		{"blank title", map[string]any{"title": "   ", "verify_method": "photo", "due_at_iso": "2030-06-02T00:00:00Z"}, "Invalid title: cannot be empty"},
		{"blank verify method", map[string]any{"title": "t", "verify_method": " ", "due_at_iso": "2030-06-02T00:00:00Z"}, "Invalid verify_method: cannot be empty"},
		{"missing due date", map[string]any{"title": "t", "verify_method": "photo"}, "Invalid due_at_iso: required field"},
		{"malformed due date", map[string]any{"title": "t", "verify_method": "photo", "due_at_iso": "next tuesday"}, "Invalid due_at_iso: must be an ISO-8601 timestamp"},
		{"malformed json", `{"title":`, "Invalid request format"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t)

			rec := ts.do(t, http.MethodPost, "/v1/tasks", tc.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tc.message, resp.Error)
			assert.Len(t, resp.TraceID, 32)
			assert.Empty(t, ts.listTasks(t, ""), "nothing is persisted")
		})
	}
}

func TestListTasks(t *testing.T) {
	t.Run("expired and pending tasks", func(t *testing.T) {
		ts := newTestServer(t)
		future := ts.createTask(t, "Physics practice", testNow.Add(2*time.Hour))
		past := ts.createTask(t, "Chemistry homework", testNow.Add(-time.Hour))

		items := ts.listTasks(t, "")

		require.Len(t, items, 2)
		assert.Equal(t, past.ID, items[0].ID)
		assert.Equal(t, "EXPIRED", items[0].State)
		assert.Equal(t, future.ID, items[1].ID)
		assert.Equal(t, "PENDING", items[1].State)
	})

	t.Run("empty list is an empty array", func(t *testing.T) {
		ts := newTestServer(t)
		rec := ts.do(t, http.MethodGet, "/v1/tasks", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"items":[]}`, rec.Body.String())
	})

	t.Run("filters", func(t *testing.T) {
		ts := newTestServer(t)
		ts.createTask(t, "Math 101", testNow.Add(1*time.Hour))
		ts.createTask(t, "math drills", testNow.Add(2*time.Hour))
		ts.createTask(t, "History essay", testNow.Add(3*time.Hour))
		ts.createTask(t, "Old math", testNow.Add(-time.Hour))

		titles := func(items []api.TaskResponse) []string {
			out := make([]string, 0, len(items))
			for _, item := range items {
				out = append(out, item.Title)
			}
			return out
		}

		assert.Equal(t, []string{"Old math"}, titles(ts.listTasks(t, "?state=expired")))
		assert.Equal(t, []string{"Math 101", "math drills", "History essay"}, titles(ts.listTasks(t, "?state=PENDING")))
		assert.Equal(t, []string{"Old math", "math drills"}, titles(ts.listTasks(t, "?q=math")))
		assert.Equal(t, []string{"Math 101", "math drills"},
			titles(ts.listTasks(t, "?due_after=2030-06-01T08:00:00Z&due_before=2030-06-01T11:00:00Z")))

		// 10:00 at UTC+02:00 is 08:00Z; an unescaped + arrives as a space.
		assert.Equal(t, []string{"Old math"}, titles(ts.listTasks(t, "?due_before=2030-06-01T10:00:00+02:00")))
		assert.Equal(t, []string{"Old math"},
			titles(ts.listTasks(t, "?due_before="+url.QueryEscape("2030-06-01T10:00:00+02:00"))))
	})

	for name, query := range map[string]string{
		"bad state":      "?state=DONE",
		"bad due_before": "?due_before=soon",
		"bad due_after":  "?due_after=2030-13-45",
	} {
		t.Run(name, func(t *testing.T) {
			ts := newTestServer(t)
			rec := ts.do(t, http.MethodGet, "/v1/tasks"+query, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRecordVerificationAttempt(t *testing.T) {
	t.Run("approval", func(t *testing.T) {
		ts := newTestServer(t)
		task := ts.createTask(t, "Physics practice", testNow.Add(2*time.Hour))

		rec := ts.do(t, http.MethodPost, "/v1/tasks/"+task.ID+"/verify-attempt", map[string]any{
			"proof_url":    "https://example.com/proof.png",
			"verdict":      true,
			"score":        0.95,
			"reasons":      "All steps verified",
			"raw_features": map[string]any{"pages": []int{1, 2}},
		})

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"task_id":"`+task.ID+`","state":"APPROVED"}`, rec.Body.String())

		items := ts.listTasks(t, "")
		require.Len(t, items, 1)
		assert.Equal(t, "APPROVED", items[0].State)
	})

	t.Run("rejection keeps state", func(t *testing.T) {
		ts := newTestServer(t)
		task := ts.createTask(t, "Physics practice", testNow.Add(2*time.Hour))

		rec := ts.do(t, http.MethodPost, "/v1/tasks/"+task.ID+"/verify-attempt", map[string]any{
			"proof_url": "https://example.com/blurry.png",
			"verdict":   false,
		})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"task_id":"`+task.ID+`","state":"PENDING"}`, rec.Body.String())
	})

	t.Run("unknown or malformed task id", func(t *testing.T) {
		ts := newTestServer(t)
		body := map[string]any{"proof_url": "https://example.com/p.png", "verdict": true}

		for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
			rec := ts.do(t, http.MethodPost, "/v1/tasks/"+id+"/verify-attempt", body)
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Equal(t, "Task not found", decodeError(t, rec).Error)
		}
	})

	t.Run("body is validated before the task id", func(t *testing.T) {
		ts := newTestServer(t)
		invalid := map[string]any{"proof_url": "  ", "verdict": true}

		for _, id := range []string{uuid.NewString(), "not-a-uuid", uuid.Nil.String()} {
			rec := ts.do(t, http.MethodPost, "/v1/tasks/"+id+"/verify-attempt", invalid)
			assert.Equal(t, http.StatusBadRequest, rec.Code, id)
			assert.Equal(t, "Invalid proof_url: cannot be empty", decodeError(t, rec).Error)
		}

		rec := ts.do(t, http.MethodPost, "/v1/tasks/not-a-uuid/verify-attempt", map[string]any{"proof_url": "https://p"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid verdict: required field", decodeError(t, rec).Error)

		rec = ts.do(t, http.MethodPost, "/v1/tasks/"+uuid.Nil.String()+"/verify-attempt",
			map[string]any{"proof_url": "https://p", "verdict": false})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("validation", func(t *testing.T) {
		ts := newTestServer(t)
		task := ts.createTask(t, "Physics practice", testNow.Add(2*time.Hour))
		target := "/v1/tasks/" + task.ID + "/verify-attempt"

		rec := ts.do(t, http.MethodPost, target, map[string]any{"proof_url": "  ", "verdict": true})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid proof_url: cannot be empty", decodeError(t, rec).Error)

		rec = ts.do(t, http.MethodPost, target, map[string]any{"proof_url": "https://p"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid verdict: required field", decodeError(t, rec).Error)

		rec = ts.do(t, http.MethodGet, "/v1/tasks/"+task.ID+"/verify-attempts", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"items":[]}`, rec.Body.String())
	})
}

func TestRawFeaturesPassThroughUndecoded(t *testing.T) {
	ts := newTestServer(t)
	task := ts.createTask(t, "Essay", testNow.Add(time.Hour))
	target := "/v1/tasks/" + task.ID + "/verify-attempt"

	// 2^53 + 1 cannot be represented as a float64.
	rec := ts.do(t, http.MethodPost, target,
		`{"proof_url":"https://example.com/p","verdict":false,"raw_features":{"id":9007199254740993,"ratio":1.0}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	ts.now = testNow.Add(time.Second)
	rec = ts.do(t, http.MethodPost, target, `{"proof_url":"https://example.com/p","verdict":false,"raw_features":null}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for _, payload := range []string{`[1,2]`, `"text"`, `42`} {
		rec = ts.do(t, http.MethodPost, target,
			`{"proof_url":"https://example.com/p","verdict":false,"raw_features":`+payload+`}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code, payload)
		assert.Equal(t, "Invalid raw_features: must be a JSON object", decodeError(t, rec).Error)
	}

	rec = ts.do(t, http.MethodGet, "/v1/tasks/"+task.ID+"/verify-attempts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"raw_features":{"id":9007199254740993,"ratio":1.0}`)

	var resp api.AttemptListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 2)
	assert.Equal(t, `{"id":9007199254740993,"ratio":1.0}`, string(resp.Items[0].RawFeatures))
	assert.Equal(t, "null", string(resp.Items[1].RawFeatures))
}

func TestListVerificationAttempts(t *testing.T) {
	ts := newTestServer(t)
	task := ts.createTask(t, "Essay", testNow.Add(time.Hour))

	rec := ts.do(t, http.MethodPost, "/v1/tasks/"+task.ID+"/verify-attempt", map[string]any{
		"proof_url":    "https://example.com/essay.pdf",
		"verdict":      false,
		"score":        -3,
		"raw_features": map[string]any{"words": 812},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/v1/tasks/"+task.ID+"/verify-attempts", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.AttemptListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	item := resp.Items[0]
	assert.Equal(t, task.ID, item.TaskID)
	assert.Equal(t, "https://example.com/essay.pdf", item.ProofURL)
	assert.False(t, item.Verdict)
	require.NotNil(t, item.Score)
	assert.Equal(t, -3.0, *item.Score)
	assert.Nil(t, item.Reasons)
	assert.JSONEq(t, `{"words":812}`, string(item.RawFeatures))
	assert.Equal(t, "2030-06-01T08:00:00Z", item.CreatedAtISO)

	rec = ts.do(t, http.MethodGet, "/v1/tasks/"+uuid.NewString()+"/verify-attempts", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
