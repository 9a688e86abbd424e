package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/storm-data-pros/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Classifier runs a single job synchronously.
type Classifier interface {
	Classify(ctx context.Context, job domain.GridJob) (domain.ClassifiedGrid, error)
	DefaultMethod() string
}

// ResultStore keeps classified grids for later lookup by job ID.
type ResultStore interface {
	Put(ctx context.Context, grid domain.ClassifiedGrid) error
	Get(ctx context.Context, id string) (domain.ClassifiedGrid, error)
}

// Server exposes health, readiness, metrics and the classification API.
type Server struct {
	httpServer *http.Server
	classifier Classifier
	store      ResultStore
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics,
// POST /v1/classify and GET /v1/results/{id}.
func NewServer(addr string, ready sharedobs.ReadinessChecker, classifier Classifier, store ResultStore, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		classifier: classifier,
		store:      store,
		logger:     logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /v1/classify", s.handleClassify)
	mux.HandleFunc("GET /v1/results/{id}", s.handleResult)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
