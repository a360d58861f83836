package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	xerrors "SongForge/internal/errors"
	"SongForge/pkg/plugin"
)

const namespace = "songforge"

// Metrics owns the Prometheus collectors of one process. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	pluginCalls    *prometheus.CounterVec
	pluginDuration *prometheus.HistogramVec
	registryTotal  *prometheus.GaugeVec
	registryActive *prometheus.GaugeVec
	jobs           *prometheus.CounterVec
}

// New registers every collector on a fresh registry, plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "Total number of HTTP requests processed.",
		}, []string{"handler", "method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"handler", "method"}),
		pluginCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "plugin", Name: "calls_total",
			Help: "Capability calls by plugin, capability and error code.",
		}, []string{"plugin", "capability", "code"}),
		pluginDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "plugin", Name: "call_duration_seconds",
			Help:    "Capability call duration in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}, []string{"plugin", "capability"}),
		registryTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "registry", Name: "entries",
			Help: "Registered plugin entries per capability type.",
		}, []string{"type"}),
		registryActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "registry", Name: "active",
			Help: "1 when a capability type has an active plugin.",
		}, []string{"type", "plugin"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "jobs", Name: "transitions_total",
			Help: "Generation job status transitions.",
		}, []string{"status"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration,
		m.pluginCalls, m.pluginDuration,
		m.registryTotal, m.registryActive,
		m.jobs,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records one served request.
func (m *Metrics) ObserveHTTPRequest(handler, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(handler, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(handler, method).Observe(duration.Seconds())
}

// ObservePluginCall records one capability call; code is "OK" on success.
func (m *Metrics) ObservePluginCall(pluginID string, capability plugin.CapabilityType, err error, duration time.Duration) {
	if m == nil {
		return
	}
	code := "OK"
	if err != nil {
		code = string(xerrors.CodeOf(err))
	}
	m.pluginCalls.WithLabelValues(pluginID, string(capability), code).Inc()
	m.pluginDuration.WithLabelValues(pluginID, string(capability)).Observe(duration.Seconds())
}

// SetRegistrySummary mirrors a registry summary into the gauges.
func (m *Metrics) SetRegistrySummary(s plugin.Summary) {
	if m == nil {
		return
	}
	m.registryActive.Reset()
	for _, t := range plugin.CapabilityTypes() {
		m.registryTotal.WithLabelValues(string(t)).Set(float64(s.ByType[t]))
		if id := s.Active[t]; id != "" {
			m.registryActive.WithLabelValues(string(t), id).Set(1)
		}
	}
}

// ObserveJob counts a job status transition.
func (m *Metrics) ObserveJob(status string) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(status).Inc()
}

// Handler exposes the metrics in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// StartServer serves /metrics on addr until ctx is cancelled.
func (m *Metrics) StartServer(ctx context.Context, addr string) error {
	if addr == "" {
		return errors.New("metrics address is empty")
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return err
	}
}
