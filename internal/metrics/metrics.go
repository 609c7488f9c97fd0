package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Backtest metrics
	runsTotal        *prometheus.CounterVec
	runDuration      prometheus.Histogram
	signalsTotal     *prometheus.CounterVec
	tradesTotal      *prometheus.CounterVec
	providerRequests *prometheus.CounterVec
	jobsActive       prometheus.Gauge
	watchlistPairs   prometheus.Gauge
	authFailures     *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	r.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swingsim_runs_total",
			Help: "Total number of backtest runs",
		},
		[]string{"status"},
	)
	r.runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "swingsim_run_duration_seconds",
			Help:    "Backtest run duration in seconds, provider fetch included",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)
	r.signalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swingsim_signals_total",
			Help: "Total number of buy and sell signals emitted",
		},
		[]string{"action"},
	)
	r.tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swingsim_trades_total",
			Help: "Total number of closed trades by outcome",
		},
		[]string{"outcome"},
	)
	r.providerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swingsim_provider_requests_total",
			Help: "Total number of price provider requests",
		},
		[]string{"provider", "status"},
	)
	r.jobsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "swingsim_jobs_active",
			Help: "Number of backtest jobs pending or running",
		},
	)
	r.watchlistPairs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "swingsim_watchlist_pairs",
			Help: "Number of pairs in the scheduled watchlist",
		},
	)
	r.authFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swingsim_api_auth_failures_total",
			Help: "Total number of API requests rejected by key authentication",
		},
		[]string{"reason"},
	)

	reg.MustRegister(r.runsTotal)
	reg.MustRegister(r.runDuration)
	reg.MustRegister(r.signalsTotal)
	reg.MustRegister(r.tradesTotal)
	reg.MustRegister(r.providerRequests)
	reg.MustRegister(r.jobsActive)
	reg.MustRegister(r.watchlistPairs)
	reg.MustRegister(r.authFailures)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordRun records a finished backtest run. status is "success" or "error".
func (r *Registry) RecordRun(status string, duration float64) {
	r.runsTotal.WithLabelValues(status).Inc()
	r.runDuration.Observe(duration)
}

// RecordSignals adds n signals of the given action ("buy" or "sell").
func (r *Registry) RecordSignals(action string, n int) {
	if n > 0 {
		r.signalsTotal.WithLabelValues(action).Add(float64(n))
	}
}

// RecordTrades adds n closed trades of the given outcome ("win", "loss", "flat").
func (r *Registry) RecordTrades(outcome string, n int) {
	if n > 0 {
		r.tradesTotal.WithLabelValues(outcome).Add(float64(n))
	}
}

// RecordProviderRequest records one price provider call.
func (r *Registry) RecordProviderRequest(provider, status string) {
	r.providerRequests.WithLabelValues(provider, status).Inc()
}

// SetJobsActive sets the number of pending or running jobs.
func (r *Registry) SetJobsActive(count int) {
	r.jobsActive.Set(float64(count))
}

// RecordAuthFailure counts one rejected API request; reason is "missing" or "invalid".
func (r *Registry) RecordAuthFailure(reason string) {
	r.authFailures.WithLabelValues(reason).Inc()
}

// SetWatchlistSize sets the watchlist size.
func (r *Registry) SetWatchlistSize(size int) {
	r.watchlistPairs.Set(float64(size))
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
