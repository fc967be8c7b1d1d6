package httpapi

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type openStreamRequest struct {
	Priority string            `json:"priority"`
	Metadata map[string]string `json:"metadata"`
}

// handleOpenStream opens a stream. The JSON body is optional.
func (s *Server) handleOpenStream(w http.ResponseWriter, r *http.Request) {
	var req openStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err))
		return
	}
	priority, err := parsePriority(req.Priority)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}

	streamID := chi.URLParam(r, "id")
	jobID, err := s.engine.OpenStream(streamID, priority, req.Metadata)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	stats, _ := s.engine.StreamStats(streamID)
	writeJSON(w, http.StatusCreated, newStreamResponse(jobID, stats))
}

func (s *Server) handleStreamStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.StreamStats(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, newStreamResponse("", stats))
}

// handleAppendStream adds each line of the request body to the stream.
func (s *Server) handleAppendStream(w http.ResponseWriter, r *http.Request) {
	streamID := chi.URLParam(r, "id")

	var lines []string
	scanner := bufio.NewScanner(http.MaxBytesReader(w, r.Body, s.maxUploadBytes))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		lines = append(lines, strings.TrimSuffix(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("reading body: %w", err))
		return
	}

	needsFlush, err := s.engine.AppendStream(streamID, lines...)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"accepted":    len(lines),
		"needs_flush": needsFlush,
	})
}

func (s *Server) handleCloseStream(w http.ResponseWriter, r *http.Request) {
	streamID := chi.URLParam(r, "id")
	if err := s.engine.CloseStream(streamID); err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	stats, _ := s.engine.StreamStats(streamID)
	writeJSON(w, http.StatusAccepted, newStreamResponse("", stats))
}
