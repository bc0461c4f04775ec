package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/videochop/videochop/internal/jobs"
	"github.com/videochop/videochop/internal/tasks"
)

type Server struct {
	manager  *jobs.Manager
	pool     *jobs.Pool
	executor *tasks.Executor
	baseURL  string

	sweepCron string

	mux    *http.ServeMux
	server *http.Server
}

type Option func(*Server)

// WithSweepSchedule exposes the periodic sweep schedule on /health.
func WithSweepSchedule(cronExpr string) Option {
	return func(s *Server) {
		s.sweepCron = cronExpr
	}
}

func NewServer(manager *jobs.Manager, pool *jobs.Pool, executor *tasks.Executor, baseURL string, opts ...Option) *Server {
	s := &Server{
		manager:  manager,
		pool:     pool,
		executor: executor,
		baseURL:  baseURL,
		mux:      http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/process_video", s.handleProcessVideo)
	s.mux.HandleFunc("/download_video", s.handleDownloadVideo)
	s.mux.HandleFunc("/extract_audio", s.handleExtractAudio)
	s.mux.HandleFunc("/job/", s.handleJobStatus)
	s.mux.HandleFunc("/download/", s.handleDownload)
	s.mux.HandleFunc("/health", s.handleHealth)
}
