package httpapi

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/poiesic/logsift/ingestion"
	"github.com/poiesic/logsift/storage"
)

const defaultMaxUploadBytes = 64 << 20

// Server serves the HTTP intake API for an Engine.
type Server struct {
	engine         *ingestion.Engine
	results        storage.ResultRepository
	logger         *slog.Logger
	uploadDir      string
	maxUploadBytes int64
}

// Option configures a Server.
type Option func(*Server)

// WithResults enables the result routes backed by repo.
func WithResults(repo storage.ResultRepository) Option {
	return func(s *Server) {
		s.results = repo
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithUploadDir sets the directory uploaded files are spooled to.
// Default is os.TempDir().
func WithUploadDir(dir string) Option {
	return func(s *Server) {
		if dir != "" {
			s.uploadDir = dir
		}
	}
}

// WithMaxUploadBytes limits request bodies of the upload and webhook routes.
// Default is 64 MiB.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// NewServer creates a server for engine.
func NewServer(engine *ingestion.Engine, opts ...Option) *Server {
	s := &Server{
		engine:         engine,
		logger:         slog.Default(),
		uploadDir:      os.TempDir(),
		maxUploadBytes: defaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "httpapi")
	return s
}

// Router returns the HTTP handler for all routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/jobs", s.handleSubmit)
		r.Post("/jobs/upload", s.handleUpload)
		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/{id}", s.handleGetJob)
		r.Delete("/jobs/{id}", s.handleCancelJob)
		r.Get("/jobs/{id}/results", s.handleJobResults)
		r.Delete("/jobs/{id}/results", s.handleDeleteJobResults)
		r.Get("/results", s.handleTagResults)
		r.Post("/webhooks/{name}", s.handleWebhook)
		r.Get("/stats", s.handleStats)

		r.Route("/streams/{id}", func(r chi.Router) {
			r.Post("/", s.handleOpenStream)
			r.Get("/", s.handleStreamStats)
			r.Post("/lines", s.handleAppendStream)
			r.Post("/close", s.handleCloseStream)
		})
	})

	return r
}

// requestLogger logs one line per request through slog.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"requestID", middleware.GetReqID(r.Context()))
	})
}
