package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	m := New("typechain")

	m.ObserveSubmission("join_contest", "confirmed")
	m.ObserveSubmission("join_contest", "confirmed")
	m.ObserveSubmission("join_contest", "timed_out")
	m.ObserveFetch("player", "present")
	m.SetCacheEntries(3)
	m.IncInFlight()
	m.IncInFlight()
	m.DecInFlight()
	m.ObserveConfirmation("join_contest", "confirmed", 1500*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Submissions.WithLabelValues("join_contest", "confirmed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues("join_contest", "timed_out")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Fetches.WithLabelValues("player", "present")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CacheEntries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InFlight))
}

func TestMetricsHandler(t *testing.T) {
	m := New("typechain")
	m.ObserveFetch("contest", "absent")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `typechain_account_fetches_total{kind="contest",result="absent"} 1`)
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveSubmission("a", "b")
		m.ObserveConfirmation("a", "b", time.Second)
		m.ObserveFetch("a", "b")
		m.SetCacheEntries(1)
		m.IncInFlight()
		m.DecInFlight()
	})
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}
