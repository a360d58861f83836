package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"SongForge/internal/auth"
	"SongForge/internal/observability/metrics"
	"SongForge/internal/storage/mysql"
	"SongForge/internal/studio"
	"SongForge/internal/task"
	"SongForge/pkg/logger"
	"SongForge/pkg/plugin"
)

// HistoryReader returns recent registry snapshots, newest first.
type HistoryReader interface {
	Latest(ctx context.Context, limit int) ([]mysql.Snapshot, error)
}

// Server exposes the registry, the studio and the job service over HTTP.
type Server struct {
	addr     string
	registry *plugin.Registry
	studio   *studio.Studio
	jobs     *task.Service
	auth     *auth.Service
	metrics  *metrics.Metrics
	history  HistoryReader
	limiter  *rateLimiter

	shutdownTimeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithJobs enables the /jobs endpoints.
func WithJobs(svc *task.Service) Option {
	return func(s *Server) { s.jobs = svc }
}

// WithAuth guards /api/v1 with bearer tokens.
func WithAuth(svc *auth.Service) Option {
	return func(s *Server) { s.auth = svc }
}

// WithMetrics records request metrics and serves /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithHistory enables GET /plugins/history.
func WithHistory(h HistoryReader) Option {
	return func(s *Server) { s.history = h }
}

// WithRateLimit applies a per-client token bucket. Non-positive rps disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps > 0 {
			s.limiter = newRateLimiter(rps, burst)
		}
	}
}

// WithShutdownTimeout bounds graceful shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// NewServer builds a Server listening on addr.
func NewServer(addr string, st *studio.Studio, opts ...Option) *Server {
	s := &Server{addr: addr, studio: st, registry: st.Registry(), shutdownTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	root := mux.NewRouter()
	root.Use(metricsMiddleware(s.metrics))
	root.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if s.metrics != nil {
		root.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	v1 := root.PathPrefix("/api/v1").Subrouter()
	if s.auth != nil && s.auth.Enabled() {
		v1.Use(s.auth.Middleware(auth.MiddlewareConfig{RequiredPermissions: auth.DefaultPermissions()}))
	}
	if s.limiter != nil {
		v1.Use(s.limiter.middleware)
	}

	admin := func(h http.HandlerFunc) http.Handler {
		return auth.RequirePermission(auth.PermissionAdmin, h)
	}
	v1.HandleFunc("/plugins", s.handleListPlugins).Methods(http.MethodGet)
	v1.HandleFunc("/plugins/summary", s.handleSummary).Methods(http.MethodGet)
	v1.HandleFunc("/plugins/history", s.handleHistory).Methods(http.MethodGet)
	v1.Handle("/plugins/{id:.+}/activate", admin(s.handleActivate)).Methods(http.MethodPost)
	v1.Handle("/plugins/{id:.+}/deactivate", admin(s.handleDeactivate)).Methods(http.MethodPost)
	v1.Handle("/plugins/{id:.+}/initialize", admin(s.handleInitialize)).Methods(http.MethodPost)
	v1.Handle("/plugins/{id:.+}", admin(s.handleUnregister)).Methods(http.MethodDelete)
	v1.HandleFunc("/plugins/{id:.+}", s.handleGetPlugin).Methods(http.MethodGet)

	v1.HandleFunc("/presets", s.handlePresets).Methods(http.MethodGet)

	v1.HandleFunc("/songs", s.handleGenerate).Methods(http.MethodPost)
	v1.HandleFunc("/songs/analyze", s.handleAnalyze).Methods(http.MethodPost)
	v1.HandleFunc("/songs/evaluate", s.handleEvaluate).Methods(http.MethodPost)
	v1.HandleFunc("/songs/edit-image", s.handleEditImage).Methods(http.MethodPost)
	v1.HandleFunc("/songs/apply-suggestion", s.handleApplySuggestion).Methods(http.MethodPost)

	v1.HandleFunc("/jobs", s.handleSubmitJob).Methods(http.MethodPost)
	v1.HandleFunc("/jobs", s.handleListJobs).Methods(http.MethodGet)
	v1.HandleFunc("/jobs/stats", s.handleJobStats).Methods(http.MethodGet)
	v1.HandleFunc("/jobs/{id}", s.handleGetJob).Methods(http.MethodGet)
	return root
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	log := logger.Named("api")

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		log.Info("http server listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown incomplete", "error", err)
		}
		return ctx.Err()
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	summary := s.registry.Summary()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"plugins": summary.Total,
		"active":  summary.Active,
	})
}
