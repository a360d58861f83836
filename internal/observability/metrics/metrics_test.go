package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xerrors "SongForge/internal/errors"
	"SongForge/pkg/plugin"
)

func TestPluginAndHTTPMetrics(t *testing.T) {
	m := New()
	m.ObservePluginCall("gemini-default", plugin.TypeLyrics, nil, 2*time.Second)
	m.ObservePluginCall("gemini-default", plugin.TypeLyrics, xerrors.New(xerrors.CodeBackendFailure, "down"), time.Second)
	m.ObservePluginCall("gemini-default", plugin.TypeLyrics, errors.New("plain"), time.Second)
	m.ObserveHTTPRequest("/api/v1/songs", http.MethodPost, 201, 3*time.Second)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.pluginCalls.WithLabelValues("gemini-default", "lyrics", "OK")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.pluginCalls.WithLabelValues("gemini-default", "lyrics", "BACKEND_FAILURE")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.pluginCalls.WithLabelValues("gemini-default", "lyrics", "UNKNOWN")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.httpRequests.WithLabelValues("/api/v1/songs", "POST", "201")))
}

func TestRegistrySummaryGauges(t *testing.T) {
	m := New()
	m.SetRegistrySummary(plugin.Summary{
		Total:  2,
		ByType: map[plugin.CapabilityType]int{plugin.TypeLyrics: 2},
		Active: map[plugin.CapabilityType]string{plugin.TypeLyrics: "alt-default"},
	})
	assert.Equal(t, float64(2), testutil.ToFloat64(m.registryTotal.WithLabelValues("lyrics")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.registryTotal.WithLabelValues("midi")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.registryActive.WithLabelValues("lyrics", "alt-default")))

	m.SetRegistrySummary(plugin.Summary{ByType: map[plugin.CapabilityType]int{}, Active: map[plugin.CapabilityType]string{}})
	assert.Equal(t, 0, testutil.CollectAndCount(m.registryActive))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveJob("succeeded")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `songforge_jobs_transitions_total{status="succeeded"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveJob("failed")
	m.ObserveHTTPRequest("/", "GET", 200, time.Millisecond)
	m.ObservePluginCall("x", plugin.TypeMidi, nil, time.Millisecond)
	m.SetRegistrySummary(plugin.Summary{})
	assert.Nil(t, m.Registry())
}
