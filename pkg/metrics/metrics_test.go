package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorders(t *testing.T) {
	m := New("linkbio")
	m.RecordClick("ok", time.Millisecond)
	m.RecordClick("ok", 0)
	m.RecordClick("error", time.Millisecond)
	m.RecordRedirect("302")
	m.RecordGeoLookup("miss", time.Microsecond)
	m.SetQueueDepth(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ClicksRecorded.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ClicksRecorded.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Redirects.WithLabelValues("302")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ClickQueueDepth))
}

func TestIndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New("linkbio")
		New("linkbio")
	})
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordClick("ok", time.Second)
		m.RecordRedirect("404")
		m.RecordRateLimitHit()
		m.RecordGeoLookup("hit", time.Second)
		m.SetQueueDepth(1)
	})
}

func TestHandler(t *testing.T) {
	m := New("linkbio")
	m.RecordRedirect("302")

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `linkbio_redirects_total{status="302"} 1`)
}
