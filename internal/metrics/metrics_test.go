package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	require.NotNil(t, reg)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	// Should have go runtime metrics at minimum
	assert.NotEmpty(t, mfs)
}

func TestRegistry_RecordRequest_StatusCodes(t *testing.T) {
	tests := []struct {
		status   int
		expected string
	}{
		{100, "1xx"},
		{200, "2xx"},
		{201, "2xx"},
		{301, "3xx"},
		{404, "4xx"},
		{503, "5xx"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			reg := NewRegistry()
			reg.RecordRequest("GET", "/api/runs", tt.status, 0.01)

			got := testutil.ToFloat64(reg.httpRequestsTotal.WithLabelValues("GET", "/api/runs", tt.expected))
			assert.Equal(t, 1.0, got, "status %d", tt.status)
		})
	}
}

func TestRegistry_InFlight(t *testing.T) {
	reg := NewRegistry()

	reg.InFlightInc()
	reg.InFlightInc()
	reg.InFlightDec()

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.httpRequestsInFlight))
}

func TestRegistry_RecordRun(t *testing.T) {
	reg := NewRegistry()

	reg.RecordRun("success", 0.2)
	reg.RecordRun("success", 0.3)
	reg.RecordRun("error", 0.1)

	assert.Equal(t, 2.0, testutil.ToFloat64(reg.runsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.runsTotal.WithLabelValues("error")))

	expected := `
# HELP swingsim_runs_total Total number of backtest runs
# TYPE swingsim_runs_total counter
swingsim_runs_total{status="error"} 1
swingsim_runs_total{status="success"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "swingsim_runs_total"))
}

func TestRegistry_SignalsAndTrades(t *testing.T) {
	reg := NewRegistry()

	reg.RecordSignals("buy", 3)
	reg.RecordSignals("sell", 2)
	reg.RecordSignals("sell", 0)
	reg.RecordTrades("win", 1)
	reg.RecordTrades("loss", 1)

	assert.Equal(t, 3.0, testutil.ToFloat64(reg.signalsTotal.WithLabelValues("buy")))
	assert.Equal(t, 2.0, testutil.ToFloat64(reg.signalsTotal.WithLabelValues("sell")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.tradesTotal.WithLabelValues("win")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.tradesTotal.WithLabelValues("loss")))
}

func TestRegistry_ProviderRequests(t *testing.T) {
	reg := NewRegistry()

	reg.RecordProviderRequest("kraken", "success")
	reg.RecordProviderRequest("kraken", "error")
	reg.RecordProviderRequest("kraken", "success")

	assert.Equal(t, 2.0, testutil.ToFloat64(reg.providerRequests.WithLabelValues("kraken", "success")))
}

func TestRegistry_Gauges(t *testing.T) {
	reg := NewRegistry()

	reg.SetJobsActive(4)
	reg.SetWatchlistSize(2)

	assert.Equal(t, 4.0, testutil.ToFloat64(reg.jobsActive))
	assert.Equal(t, 2.0, testutil.ToFloat64(reg.watchlistPairs))
}

func TestRegistry_AuthFailures(t *testing.T) {
	reg := NewRegistry()

	reg.RecordAuthFailure("missing")
	reg.RecordAuthFailure("invalid")
	reg.RecordAuthFailure("invalid")

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.authFailures.WithLabelValues("missing")))
	assert.Equal(t, 2.0, testutil.ToFloat64(reg.authFailures.WithLabelValues("invalid")))
}

// Ensure the registry implements prometheus.Gatherer interface
func TestRegistry_ImplementsGatherer(t *testing.T) {
	reg := NewRegistry()
	var _ prometheus.Gatherer = reg
}
