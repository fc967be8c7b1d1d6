package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/poiesic/logsift/core"
	"github.com/poiesic/logsift/ingestion"
	"github.com/poiesic/logsift/storage"
	"github.com/poiesic/logsift/stream"
)

type progressEntry struct {
	Time    time.Time `json:"time"`
	Percent float64   `json:"percent"`
	Message string    `json:"message"`
}

type jobResponse struct {
	ID              string            `json:"id"`
	Source          core.Source       `json:"source"`
	Priority        string            `json:"priority"`
	Status          core.Status       `json:"status"`
	StreamID        string            `json:"stream_id,omitempty"`
	Metadata        map[string]string `json:"metadata"`
	ProgressPercent float64           `json:"progress_percent"`
	ProgressLog     []progressEntry   `json:"progress_log"`
	BytesProcessed  int64             `json:"bytes_processed"`
	LinesProcessed  int64             `json:"lines_processed"`
	CreatedAt       time.Time         `json:"created_at"`
	StartedAt       *time.Time        `json:"started_at,omitempty"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
	ProcessedIDs    []core.ID         `json:"processed_ids"`
	FailedIDs       []core.ID         `json:"failed_ids"`
	ErrorMessages   []string          `json:"error_messages"`
	Error           string            `json:"error,omitempty"`
}

func newJobResponse(job core.Job) jobResponse {
	resp := jobResponse{
		ID:              job.ID,
		Source:          job.Source,
		Priority:        job.Priority.String(),
		Status:          job.Status,
		StreamID:        job.StreamID,
		Metadata:        job.Metadata,
		ProgressPercent: job.ProgressPercent,
		ProgressLog:     make([]progressEntry, len(job.ProgressLog)),
		BytesProcessed:  job.BytesProcessed,
		LinesProcessed:  job.LinesProcessed,
		CreatedAt:       job.CreatedAt,
		StartedAt:       optionalTime(job.StartedAt),
		CompletedAt:     optionalTime(job.CompletedAt),
		ProcessedIDs:    nonNil(job.ProcessedIDs),
		FailedIDs:       nonNil(job.FailedIDs),
		ErrorMessages:   nonNil(job.ErrorMessages),
		Error:           job.Error,
	}
	for i, entry := range job.ProgressLog {
		resp.ProgressLog[i] = progressEntry(entry)
	}
	return resp
}

type resultResponse struct {
	ID           core.ID           `json:"id"`
	JobID        string            `json:"job_id"`
	Index        int               `json:"index"`
	Source       core.Source       `json:"source"`
	Text         string            `json:"text"`
	Summary      string            `json:"summary"`
	Tags         []string          `json:"tags"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	ClassifiedAt time.Time         `json:"classified_at"`
}

func newResultResponses(results []*core.UnitResult) []resultResponse {
	resp := make([]resultResponse, 0, len(results))
	for _, r := range results {
		resp = append(resp, resultResponse{
			ID:           r.Id,
			JobID:        r.JobID,
			Index:        r.Index,
			Source:       r.Source,
			Text:         r.Text,
			Summary:      r.Summary,
			Tags:         nonNil(r.Tags),
			Metadata:     r.Metadata,
			ClassifiedAt: r.ClassifiedAt,
		})
	}
	return resp
}

type streamResponse struct {
	ID           string `json:"id"`
	JobID        string `json:"job_id,omitempty"`
	PendingLines int    `json:"pending_lines"`
	PendingBytes int    `json:"pending_bytes"`
	TotalLines   int64  `json:"total_lines"`
	TotalBytes   int64  `json:"total_bytes"`
	Flushes      int64  `json:"flushes"`
	Closed       bool   `json:"closed"`
}

func newStreamResponse(jobID string, stats stream.Stats) streamResponse {
	return streamResponse{
		ID:           stats.ID,
		JobID:        jobID,
		PendingLines: stats.PendingLines,
		PendingBytes: stats.PendingBytes,
		TotalLines:   stats.TotalLines,
		TotalBytes:   stats.TotalBytes,
		Flushes:      stats.Flushes,
		Closed:       stats.Closed,
	}
}

type metricsResponse struct {
	SampledAt      time.Time `json:"sampled_at"`
	MemoryMB       float64   `json:"memory_mb"`
	LinesPerSecond float64   `json:"lines_per_second"`
}

type statsResponse struct {
	TotalJobs      int              `json:"total_jobs"`
	QueuedJobs     int              `json:"queued_jobs"`
	ActiveJobs     int              `json:"active_jobs"`
	CompletedJobs  int              `json:"completed_jobs"`
	FailedJobs     int              `json:"failed_jobs"`
	CancelledJobs  int              `json:"cancelled_jobs"`
	ActiveWorkers  int              `json:"active_workers"`
	MaxConcurrent  int              `json:"max_concurrent"`
	QueueDepths    map[string]int   `json:"queue_depths"`
	OpenStreams    int              `json:"open_streams"`
	BytesProcessed int64            `json:"bytes_processed"`
	LinesProcessed int64            `json:"lines_processed"`
	Metrics        *metricsResponse `json:"metrics,omitempty"`
}

func newStatsResponse(stats ingestion.SystemStats) statsResponse {
	resp := statsResponse{
		TotalJobs:      stats.TotalJobs,
		QueuedJobs:     stats.QueuedJobs,
		ActiveJobs:     stats.ActiveJobs,
		CompletedJobs:  stats.CompletedJobs,
		FailedJobs:     stats.FailedJobs,
		CancelledJobs:  stats.CancelledJobs,
		ActiveWorkers:  stats.ActiveWorkers,
		MaxConcurrent:  stats.MaxConcurrent,
		QueueDepths:    make(map[string]int, len(stats.QueueDepths)),
		OpenStreams:    stats.OpenStreams,
		BytesProcessed: stats.BytesProcessed,
		LinesProcessed: stats.LinesProcessed,
	}
	for p, depth := range stats.QueueDepths {
		resp.QueueDepths[p.String()] = depth
	}
	if m := stats.Metrics; m != nil {
		resp.Metrics = &metricsResponse{
			SampledAt:      m.SampledAt,
			MemoryMB:       m.MemoryMB,
			LinesPerSecond: m.LinesPerSecond,
		}
	}
	return resp
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{"error": err.Error()})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidSubmission):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrJobNotFound),
		errors.Is(err, ingestion.ErrStreamNotFound),
		errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ingestion.ErrStreamExists),
		errors.Is(err, stream.ErrBufferClosed):
		return http.StatusConflict
	case errors.Is(err, ingestion.ErrEngineClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
