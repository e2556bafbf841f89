package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveEvent("CLEAR_COMPLETED", true)
	m.ActorStarted()
	m.ActorStopped()
	m.SetItems(1, 2)
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveEvent("INPUT_COMMIT", true)
	m.ObserveEvent("INPUT_COMMIT", false)
	m.ObserveEvent("INPUT_COMMIT", false)
	m.ActorStarted()
	m.ActorStarted()
	m.ActorStopped()
	m.SetItems(3, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("INPUT_COMMIT", "accepted")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Events.WithLabelValues("INPUT_COMMIT", "ignored")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ActorsSpawned))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActorsLive))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Items.WithLabelValues("active")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Items.WithLabelValues("completed")))
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ActorStarted()

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}
