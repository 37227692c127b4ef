package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.ScanCompleted("ok")
	m.ScanCompleted("ok")
	m.ScanCompleted("empty")
	m.LeadDiscovered("HOT")
	m.Transitioned("CONTACTED")
	m.OutreachFailed("outreach")
	m.ObserveGenerationWait(0.2)

	require.InDelta(t, 2, testutil.ToFloat64(m.Scans.WithLabelValues("ok")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.Scans.WithLabelValues("empty")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.LeadsDiscovered.WithLabelValues("HOT")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.Transitions.WithLabelValues("CONTACTED")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.OutreachFailures.WithLabelValues("outreach")), 0)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.ScanCompleted("ok")
		m.LeadDiscovered("HOT")
		m.Transitioned("CONTACTED")
		m.OutreachFailed("reply")
		m.ObserveGenerationWait(1)
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics_HandlerExposesRegistry(t *testing.T) {
	m := New()
	m.ScanCompleted("error")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	res, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = res.Body.Close() }()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `leadgen_scans_total{outcome="error"} 1`)
}

func TestNew_IndependentRegistries(t *testing.T) {
	require.NotPanics(t, func() {
		_ = New()
		_ = New()
	})
}
