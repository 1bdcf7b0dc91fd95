// Package metrics exposes Prometheus instrumentation for the dispatch engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder collects dispatch metrics. A nil *Recorder is valid and records nothing.
type Recorder struct {
	attempts   *prometheus.CounterVec
	dispatches *prometheus.CounterVec
	cacheHits  prometheus.Counter
	gateWait   prometheus.Histogram
	inFlight   prometheus.Gauge
	gatherer   prometheus.Gatherer
}

// New registers the codecritic metrics with reg.
// Passing a fresh prometheus.NewRegistry() keeps tests isolated.
func New(reg *prometheus.Registry) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		attempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codecritic_model_attempts_total",
				Help: "Model call attempts by model and outcome kind",
			},
			[]string{"model", "outcome"},
		),
		dispatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codecritic_dispatches_total",
				Help: "Completed dispatches by result (primary, fallback, failed, cached, canceled)",
			},
			[]string{"result"},
		),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "codecritic_cache_hits_total",
			Help: "Dispatches answered from the response cache",
		}),
		gateWait: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "codecritic_gate_wait_seconds",
			Help:    "Time spent waiting for the dispatch gate",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "codecritic_dispatch_in_flight",
			Help: "Dispatches currently holding the gate (0 or 1)",
		}),
		gatherer: reg,
	}
}

// Attempt records one model call outcome
func (r *Recorder) Attempt(model, outcome string) {
	if r == nil {
		return
	}
	r.attempts.WithLabelValues(model, outcome).Inc()
}

// Dispatch records the end of a dispatch
func (r *Recorder) Dispatch(result string) {
	if r == nil {
		return
	}
	r.dispatches.WithLabelValues(result).Inc()
}

// CacheHit records a dispatch served from cache
func (r *Recorder) CacheHit() {
	if r == nil {
		return
	}
	r.cacheHits.Inc()
}

// GateWait records how long a dispatch queued for the gate
func (r *Recorder) GateWait(d time.Duration) {
	if r == nil {
		return
	}
	r.gateWait.Observe(d.Seconds())
}

// Enter marks the gate as held
func (r *Recorder) Enter() {
	if r == nil {
		return
	}
	r.inFlight.Inc()
}

// Leave marks the gate as released
func (r *Recorder) Leave() {
	if r == nil {
		return
	}
	r.inFlight.Dec()
}

// Handler serves the recorder's registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
