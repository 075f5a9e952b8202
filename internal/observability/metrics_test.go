package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollector_RegistersAgainstProvidedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)
	require.NotNil(t, c)

	// Registering a second collector on the same registry collides.
	_, err = NewCollector(reg)
	assert.Error(t, err)
}

func TestCollector_RecordAction(t *testing.T) {
	c, err := NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)

	c.RecordAction("player", "block-ip")
	c.RecordAction("player", "block-ip")
	c.RecordAction("ai", "exploit")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.ActionsTotal.WithLabelValues("player", "block-ip")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ActionsTotal.WithLabelValues("ai", "exploit")))
}

func TestCollector_SimulationGauge(t *testing.T) {
	c, err := NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)

	c.SimulationStarted()
	c.SimulationStarted()
	assert.Equal(t, 2.0, testutil.ToFloat64(c.ActiveSimulations))

	c.SimulationEnded()
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ActiveSimulations))
}

func TestCollector_RecordSettlement(t *testing.T) {
	c, err := NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)

	c.RecordSettlement("settled")
	c.RecordSettlement("skipped")
	c.RecordSettlement("failed")
	c.RecordSettlement("failed")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.SettlementsTotal.WithLabelValues("settled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.SettlementsTotal.WithLabelValues("skipped")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.SettlementsTotal.WithLabelValues("failed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.SettlementFailures), "failed outcomes also count as failures")
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	c.RecordHTTPRequest("/api/game/start-game", "POST", "200", 0.01)
	c.RecordAction("player", "block-ip")
	c.SimulationStarted()
	c.SimulationEnded()
	c.RecordSettlement("settled")
}

func TestCollector_HandlerServesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.RecordHTTPRequest("/api/game/game-state", "GET", "200", 0.002)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sim_http_requests_total")
}
