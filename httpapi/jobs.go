package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/poiesic/logsift/core"
)

type submitRequest struct {
	Text     string            `json:"text"`
	Priority string            `json:"priority"`
	Metadata map[string]string `json:"metadata"`
}

// parsePriority returns PriorityNormal for an empty name.
func parsePriority(name string) (core.Priority, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.PriorityNormal, nil
	}
	p, err := core.ParsePriority(strings.ToLower(name))
	if err != nil {
		return 0, fmt.Errorf("%w: %w: %s", core.ErrInvalidSubmission, err, name)
	}
	return p, nil
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err))
		return
	}
	priority, err := parsePriority(req.Priority)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}

	id, err := s.engine.Submit(core.SourceDirectAPI, priority, core.Payload{Text: req.Text}, req.Metadata)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"job_id": id})
}

// handleUpload spools a multipart "file" field to disk and submits it as an
// engine-owned file. With ?batch=true the file is read incrementally as a batch-file job.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("parse multipart: %w", err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("missing 'file' field: %w", err))
		return
	}
	defer file.Close()

	priority, err := parsePriority(r.FormValue("priority"))
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	source := core.SourceFileUpload
	if batch, _ := strconv.ParseBool(r.URL.Query().Get("batch")); batch {
		source = core.SourceBatchFile
	}

	path, err := s.spool(file)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("%w: spooling upload: %w", core.ErrIO, err))
		return
	}

	metadata := map[string]string{"filename": header.Filename}
	id, err := s.engine.Submit(source, priority, core.Payload{FilePath: path, Temporary: true}, metadata)
	if err != nil {
		_ = os.Remove(path)
		writeErr(w, statusFor(err), err)
		return
	}
	s.logger.Debug("upload accepted", "job", id, "filename", header.Filename, "bytes", header.Size)
	writeJSON(w, http.StatusAccepted, map[string]any{"job_id": id})
}

func (s *Server) spool(src io.Reader) (string, error) {
	dst, err := os.CreateTemp(s.uploadDir, "logsift-upload-*.log")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(dst.Name())
		return "", err
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dst.Name())
		return "", err
	}
	return dst.Name(), nil
}

// handleWebhook submits the raw request body. The webhook name and content
// type are kept as job metadata.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErr(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeErr(w, http.StatusBadRequest, fmt.Errorf("reading body: %w", err))
		return
	}
	priority, err := parsePriority(r.URL.Query().Get("priority"))
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}

	metadata := map[string]string{"webhook": chi.URLParam(r, "name")}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		metadata["content_type"] = ct
	}
	id, err := s.engine.Submit(core.SourceWebhook, priority, core.Payload{Raw: body}, metadata)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"job_id": id})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	var status core.Status
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status = core.Status(raw)
		switch status {
		case core.StatusQueued, core.StatusProcessing, core.StatusCompleted, core.StatusFailed, core.StatusCancelled:
		default:
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid status: %s", raw))
			return
		}
	}

	jobs := s.engine.ListJobs()
	resp := make([]jobResponse, 0, len(jobs))
	for _, job := range jobs {
		if status != "" && job.Status != status {
			continue
		}
		resp = append(resp, newJobResponse(job))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.engine.GetJobStatus(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, newJobResponse(job))
}

// handleCancelJob cancels a queued job. Jobs that already left the queue answer 409.
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.engine.GetJobStatus(id); err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	if !s.engine.Cancel(id) {
		job, _ := s.engine.GetJobStatus(id)
		writeErr(w, http.StatusConflict, fmt.Errorf("job %s is %s and cannot be cancelled", id, job.Status))
		return
	}
	job, _ := s.engine.GetJobStatus(id)
	writeJSON(w, http.StatusOK, newJobResponse(job))
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, newStatsResponse(s.engine.GetSystemStats()))
}

var errNoResultStore = errors.New("result store not configured")

func (s *Server) handleJobResults(w http.ResponseWriter, r *http.Request) {
	if s.results == nil {
		writeErr(w, http.StatusNotImplemented, errNoResultStore)
		return
	}
	results, err := s.results.GetResultsByJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, newResultResponses(results))
}

// handleDeleteJobResults removes a job's stored results. The job itself may
// already have been evicted from the engine.
func (s *Server) handleDeleteJobResults(w http.ResponseWriter, r *http.Request) {
	if s.results == nil {
		writeErr(w, http.StatusNotImplemented, errNoResultStore)
		return
	}
	id := chi.URLParam(r, "id")
	n, err := s.results.DeleteResultsByJob(r.Context(), id)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	s.logger.Debug("results deleted", "job", id, "count", n)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": n})
}

func (s *Server) handleTagResults(w http.ResponseWriter, r *http.Request) {
	if s.results == nil {
		writeErr(w, http.StatusNotImplemented, errNoResultStore)
		return
	}
	tag := strings.TrimSpace(r.URL.Query().Get("tag"))
	if tag == "" {
		writeErr(w, http.StatusBadRequest, errors.New("missing tag parameter"))
		return
	}
	results, err := s.results.GetResultsByTag(r.Context(), tag)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, newResultResponses(results))
}
