// Package metrics exposes the ledger's Prometheus instruments.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every instrument of a cost basis ledger, registered on its
// own prometheus.Registry so that several ledgers can coexist in one process.
//
// A nil *Registry is valid and records nothing.
type Registry struct {
	reg *prometheus.Registry

	SyncRuns         *prometheus.CounterVec
	SyncDuration     *prometheus.HistogramVec
	RecordsProcessed *prometheus.CounterVec
	Gains            *prometheus.CounterVec
	PriceLookups     *prometheus.CounterVec
}

// New creates and registers the ledger metrics.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		SyncRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "costbasis_sync_runs_total",
				Help: "Total number of account sync runs by broker and outcome",
			},
			[]string{"broker", "result"},
		),

		SyncDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "costbasis_sync_duration_seconds",
				Help:    "Duration of one account sync batch in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"broker"},
		),

		RecordsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "costbasis_records_total",
				Help: "Raw records seen by sync, by outcome (ingested, duplicate, dropped, rejected)",
			},
			[]string{"outcome"},
		),

		Gains: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "costbasis_gains_recorded_total",
				Help: "Total number of realized gains recorded by asset",
			},
			[]string{"asset"},
		),

		PriceLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "costbasis_price_lookups_total",
				Help: "Price oracle lookups by result (ok, error)",
			},
			[]string{"result"},
		),
	}
	r.reg.MustRegister(r.SyncRuns, r.SyncDuration, r.RecordsProcessed, r.Gains, r.PriceLookups)
	return r
}

// ObserveSync records the outcome of one sync batch.
func (r *Registry) ObserveSync(broker string, took time.Duration, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.SyncRuns.WithLabelValues(broker, result).Inc()
	r.SyncDuration.WithLabelValues(broker).Observe(took.Seconds())
}

// CountRecords adds n records with the given outcome.
func (r *Registry) CountRecords(outcome string, n int) {
	if r == nil || n == 0 {
		return
	}
	r.RecordsProcessed.WithLabelValues(outcome).Add(float64(n))
}

// CountGain records one realized gain.
func (r *Registry) CountGain(asset string) {
	if r == nil {
		return
	}
	r.Gains.WithLabelValues(asset).Inc()
}

// CountPrice records one oracle lookup.
func (r *Registry) CountPrice(err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.PriceLookups.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
