package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/logsift/classify/mock"
	"github.com/poiesic/logsift/core"
	"github.com/poiesic/logsift/ingestion"
	"github.com/poiesic/logsift/storage"
	"github.com/poiesic/logsift/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	engine  *ingestion.Engine
	repo    storage.ResultRepository
	handler http.Handler
	uploads string
}

func newTestEnv(t *testing.T, start bool) *testEnv {
	t.Helper()
	repo, backend, err := badger.NewMemoryResultRepository()
	require.NoError(t, err)

	engine, err := ingestion.NewEngine(mock.NewMockClassifier(),
		ingestion.WithResultSink(repo),
		ingestion.WithIdleInterval(5*time.Millisecond),
		ingestion.WithCleanupInterval(time.Hour),
	)
	require.NoError(t, err)
	if start {
		require.NoError(t, engine.Start(context.Background()))
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = engine.Shutdown(ctx)
		_ = repo.Close()
		_ = backend.Close()
	})

	uploads := t.TempDir()
	srv := NewServer(engine, WithResults(repo), WithUploadDir(uploads), WithMaxUploadBytes(1<<20))
	return &testEnv{engine: engine, repo: repo, handler: srv.Router(), uploads: uploads}
}

func (env *testEnv) do(t *testing.T, method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (env *testEnv) waitJob(t *testing.T, id string) jobResponse {
	t.Helper()
	var job jobResponse
	require.Eventually(t, func() bool {
		rec := env.do(t, http.MethodGet, "/v1/jobs/"+id, nil, "")
		if rec.Code != http.StatusOK {
			return false
		}
		job = decode[jobResponse](t, rec)
		return job.Status.IsTerminal()
	}, 5*time.Second, 5*time.Millisecond)
	return job
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(t, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestSubmitAndResults(t *testing.T) {
	env := newTestEnv(t, true)

	body := `{"text":"ERROR disk full\nINFO retrying\n","priority":"high","metadata":{"host":"web-1"}}`
	rec := env.do(t, http.MethodPost, "/v1/jobs", []byte(body), "application/json")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	id := decode[map[string]string](t, rec)["job_id"]
	require.NotEmpty(t, id)

	job := env.waitJob(t, id)
	assert.Equal(t, core.StatusCompleted, job.Status)
	assert.Equal(t, core.SourceDirectAPI, job.Source)
	assert.Equal(t, "high", job.Priority)
	assert.Equal(t, "web-1", job.Metadata["host"])
	assert.Len(t, job.ProcessedIDs, 2)
	assert.NotNil(t, job.StartedAt)
	assert.NotNil(t, job.CompletedAt)

	rec = env.do(t, http.MethodGet, "/v1/jobs/"+id+"/results", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	results := decode[[]resultResponse](t, rec)
	require.Len(t, results, 2)
	assert.Equal(t, "ERROR disk full", results[0].Text)
	assert.Equal(t, []string{"error"}, results[0].Tags)

	rec = env.do(t, http.MethodGet, "/v1/results?tag=info", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	tagged := decode[[]resultResponse](t, rec)
	require.Len(t, tagged, 1)
	assert.Equal(t, "INFO retrying", tagged[0].Text)

	rec = env.do(t, http.MethodDelete, "/v1/jobs/"+id+"/results", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 2, decode[map[string]any](t, rec)["deleted"])

	rec = env.do(t, http.MethodGet, "/v1/jobs/"+id+"/results", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]resultResponse](t, rec))

	rec = env.do(t, http.MethodDelete, "/v1/jobs/"+id+"/results", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decode[map[string]any](t, rec)["deleted"])
}

func TestSubmitErrors(t *testing.T) {
	env := newTestEnv(t, false)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"empty text", `{"text":""}`, http.StatusBadRequest},
		{"bad priority", `{"text":"x","priority":"urgent"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/v1/jobs", []byte(tt.body), "application/json")
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.Contains(t, decode[map[string]string](t, rec), "error")
		})
	}
	assert.Empty(t, env.engine.ListJobs(), "rejected submissions must not create jobs")
}

func TestUpload(t *testing.T) {
	env := newTestEnv(t, true)

	for _, batch := range []bool{false, true} {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", "app.log")
		require.NoError(t, err)
		_, err = fw.Write([]byte("WARN slow query\nERROR timeout\n"))
		require.NoError(t, err)
		require.NoError(t, mw.WriteField("priority", "low"))
		require.NoError(t, mw.Close())

		path := "/v1/jobs/upload"
		if batch {
			path += "?batch=true"
		}
		rec := env.do(t, http.MethodPost, path, buf.Bytes(), mw.FormDataContentType())
		require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

		job := env.waitJob(t, decode[map[string]string](t, rec)["job_id"])
		assert.Equal(t, core.StatusCompleted, job.Status)
		assert.Equal(t, "app.log", job.Metadata["filename"])
		assert.Equal(t, "low", job.Priority)
		assert.Equal(t, int64(2), job.LinesProcessed)
		if batch {
			assert.Equal(t, core.SourceBatchFile, job.Source)
		} else {
			assert.Equal(t, core.SourceFileUpload, job.Source)
		}
	}

	entries, err := os.ReadDir(env.uploads)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "spooled files live until the sweeper evicts their jobs")
}

func TestUploadMissingFile(t *testing.T) {
	env := newTestEnv(t, false)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("priority", "low"))
	require.NoError(t, mw.Close())

	rec := env.do(t, http.MethodPost, "/v1/jobs/upload", buf.Bytes(), mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhook(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodPost, "/v1/webhooks/github?priority=critical", []byte("FATAL deploy failed\n"), "text/plain")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	job := env.waitJob(t, decode[map[string]string](t, rec)["job_id"])
	assert.Equal(t, core.SourceWebhook, job.Source)
	assert.Equal(t, "critical", job.Priority)
	assert.Equal(t, "github", job.Metadata["webhook"])
	assert.Equal(t, "text/plain", job.Metadata["content_type"])
	assert.Equal(t, core.StatusCompleted, job.Status)

	rec = env.do(t, http.MethodPost, "/v1/webhooks/github", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "empty body is an empty payload")
}

func TestWebhookTooLarge(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(t, http.MethodPost, "/v1/webhooks/big", bytes.Repeat([]byte("x"), 2<<20), "")
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestJobNotFound(t *testing.T) {
	env := newTestEnv(t, false)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/v1/jobs/nope", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, "/v1/jobs/nope", nil, "").Code)
}

func TestCancel(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodPost, "/v1/jobs", []byte(`{"text":"INFO queued"}`), "application/json")
	require.Equal(t, http.StatusAccepted, rec.Code)
	id := decode[map[string]string](t, rec)["job_id"]

	rec = env.do(t, http.MethodDelete, "/v1/jobs/"+id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, core.StatusCancelled, decode[jobResponse](t, rec).Status)

	rec = env.do(t, http.MethodDelete, "/v1/jobs/"+id, nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code, "a cancelled job cannot be cancelled again")
}

func TestListJobsAndStats(t *testing.T) {
	env := newTestEnv(t, false)

	for _, p := range []string{"low", "critical", "low"} {
		rec := env.do(t, http.MethodPost, "/v1/jobs", []byte(`{"text":"INFO x","priority":"`+p+`"}`), "application/json")
		require.Equal(t, http.StatusAccepted, rec.Code)
	}

	jobs := decode[[]jobResponse](t, env.do(t, http.MethodGet, "/v1/jobs", nil, ""))
	require.Len(t, jobs, 3)
	assert.Equal(t, "low", jobs[0].Priority, "jobs are listed in submission order")
	assert.Equal(t, "critical", jobs[1].Priority)

	queued := decode[[]jobResponse](t, env.do(t, http.MethodGet, "/v1/jobs?status=queued", nil, ""))
	assert.Len(t, queued, 3)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/v1/jobs?status=bogus", nil, "").Code)

	stats := decode[statsResponse](t, env.do(t, http.MethodGet, "/v1/stats", nil, ""))
	assert.Equal(t, 3, stats.TotalJobs)
	assert.Equal(t, 3, stats.QueuedJobs)
	assert.Equal(t, 2, stats.QueueDepths["low"])
	assert.Equal(t, 1, stats.QueueDepths["critical"])
}

func TestStreamLifecycle(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodPost, "/v1/streams/syslog", []byte(`{"priority":"high","metadata":{"host":"db-1"}}`), "application/json")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	opened := decode[streamResponse](t, rec)
	require.NotEmpty(t, opened.JobID)

	rec = env.do(t, http.MethodPost, "/v1/streams/syslog", nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code, "stream IDs are unique while open")

	rec = env.do(t, http.MethodPost, "/v1/streams/syslog/lines", []byte("ERROR one\r\nWARN two\n"), "text/plain")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.EqualValues(t, 2, decode[map[string]any](t, rec)["accepted"])

	rec = env.do(t, http.MethodPost, "/v1/streams/syslog/close", nil, "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, decode[streamResponse](t, rec).Closed)

	job := env.waitJob(t, opened.JobID)
	assert.Equal(t, core.StatusCompleted, job.Status)
	assert.Equal(t, core.SourceStream, job.Source)
	assert.Equal(t, "syslog", job.StreamID)
	assert.Len(t, job.ProcessedIDs, 2)

	rec = env.do(t, http.MethodPost, "/v1/streams/syslog/lines", []byte("INFO late\n"), "text/plain")
	assert.Equal(t, http.StatusConflict, rec.Code, "closed streams reject lines")

	results := decode[[]resultResponse](t, env.do(t, http.MethodGet, "/v1/jobs/"+opened.JobID+"/results", nil, ""))
	require.Len(t, results, 2)
	assert.Equal(t, "ERROR one", results[0].Text)
}

func TestStreamNotFound(t *testing.T) {
	env := newTestEnv(t, false)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/v1/streams/none", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, "/v1/streams/none/lines", []byte("x\n"), "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, "/v1/streams/none/close", nil, "").Code)
}

func TestResultsWithoutStore(t *testing.T) {
	engine, err := ingestion.NewEngine(mock.NewMockClassifier())
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Shutdown(context.Background()) })

	handler := NewServer(engine).Router()
	for _, req := range []struct{ method, path string }{
		{http.MethodGet, "/v1/jobs/x/results"},
		{http.MethodDelete, "/v1/jobs/x/results"},
		{http.MethodGet, "/v1/results?tag=error"},
	} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(req.method, req.path, nil))
		assert.Equal(t, http.StatusNotImplemented, rec.Code, req.method+" "+req.path)
	}
}

func TestEngineClosed(t *testing.T) {
	env := newTestEnv(t, false)
	require.NoError(t, env.engine.Shutdown(context.Background()))

	rec := env.do(t, http.MethodPost, "/v1/jobs", []byte(`{"text":"INFO x"}`), "application/json")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "engine closed"))
}
