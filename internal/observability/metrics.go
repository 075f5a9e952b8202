// Package observability bundles the Prometheus metrics for the simulation
// service. All record helpers are nil-safe so callers can run without a
// collector in tests.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector registers and exposes the service metrics.
type Collector struct {
	gatherer prometheus.Gatherer

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	ActionsTotal       *prometheus.CounterVec
	ActiveSimulations  prometheus.Gauge
	SettlementsTotal   *prometheus.CounterVec
	SettlementFailures prometheus.Counter
}

// NewCollector registers the service metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_http_requests_total",
		Help: "Total handled HTTP requests, labeled by route, method, and status code.",
	}, []string{"route", "method", "code"})
	if err := reg.Register(httpRequests); err != nil {
		return nil, err
	}

	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sim_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"route", "method"})
	if err := reg.Register(httpDuration); err != nil {
		return nil, err
	}

	actionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_actions_total",
		Help: "Total resolved simulation actions, labeled by actor and action type.",
	}, []string{"actor", "type"})
	if err := reg.Register(actionsTotal); err != nil {
		return nil, err
	}

	activeSimulations := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_active_simulations",
		Help: "Current number of running simulation sessions.",
	})
	if err := reg.Register(activeSimulations); err != nil {
		return nil, err
	}

	settlementsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_xp_settlements_total",
		Help: "Total XP ledger settlements, labeled by outcome.",
	}, []string{"outcome"})
	if err := reg.Register(settlementsTotal); err != nil {
		return nil, err
	}

	settlementFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_xp_settlement_failures_total",
		Help: "Settlements that failed and were downgraded to xp_awarded=0.",
	})
	if err := reg.Register(settlementFailures); err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:           gatherer,
		HTTPRequests:       httpRequests,
		HTTPDuration:       httpDuration,
		ActionsTotal:       actionsTotal,
		ActiveSimulations:  activeSimulations,
		SettlementsTotal:   settlementsTotal,
		SettlementFailures: settlementFailures,
	}, nil
}

// Handler returns the scrape handler for this collector's registry.
func (c *Collector) Handler() http.Handler {
	if c == nil || c.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records one handled request.
func (c *Collector) RecordHTTPRequest(route, method, code string, seconds float64) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(route, method, code).Inc()
	c.HTTPDuration.WithLabelValues(route, method).Observe(seconds)
}

// RecordAction records one resolved action.
func (c *Collector) RecordAction(actor, actionType string) {
	if c == nil {
		return
	}
	c.ActionsTotal.WithLabelValues(actor, actionType).Inc()
}

// SimulationStarted increments the running-sessions gauge.
func (c *Collector) SimulationStarted() {
	if c == nil {
		return
	}
	c.ActiveSimulations.Inc()
}

// SimulationEnded decrements the running-sessions gauge.
func (c *Collector) SimulationEnded() {
	if c == nil {
		return
	}
	c.ActiveSimulations.Dec()
}

// RecordSettlement records a settlement outcome ("settled", "skipped",
// "failed").
func (c *Collector) RecordSettlement(outcome string) {
	if c == nil {
		return
	}
	c.SettlementsTotal.WithLabelValues(outcome).Inc()
	if outcome == "failed" {
		c.SettlementFailures.Inc()
	}
}
