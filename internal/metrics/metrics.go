// Package metrics exposes Prometheus instrumentation for feed resolution.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder collects resolver metrics in its own registry.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	resolutions   *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	liveFailures  *prometheus.CounterVec
	cacheWrites   *prometheus.CounterVec
	cacheCorrupt  prometheus.Counter
	firesServed   prometheus.Gauge
	stubblePct    prometheus.Gauge
	lastResolved  prometheus.Gauge
	httpRequests  *prometheus.CounterVec
	refreshErrors prometheus.Counter
}

// NewRecorder creates a recorder with Go and process collectors registered
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(registry)

	return &Recorder{
		registry: registry,

		resolutions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "firewatch_feed_resolutions_total",
			Help: "Feeds resolved, by serving tier",
		}, []string{"tier"}),

		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "firewatch_feed_resolution_duration_seconds",
			Help:    "Time to resolve a feed, by serving tier",
			Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"tier"}),

		liveFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "firewatch_live_failures_total",
			Help: "Live tier failures, by reason",
		}, []string{"reason"}),

		cacheWrites: f.NewCounterVec(prometheus.CounterOpts{
			Name: "firewatch_cache_writes_total",
			Help: "Cache envelope writes, by result",
		}, []string{"result"}),

		cacheCorrupt: f.NewCounter(prometheus.CounterOpts{
			Name: "firewatch_cache_corrupt_total",
			Help: "Cache envelopes discarded as malformed",
		}),

		firesServed: f.NewGauge(prometheus.GaugeOpts{
			Name: "firewatch_feed_fires",
			Help: "Fires in the most recent feed",
		}),

		stubblePct: f.NewGauge(prometheus.GaugeOpts{
			Name: "firewatch_stubble_percentage",
			Help: "Stubble burning share in the most recent feed",
		}),

		lastResolved: f.NewGauge(prometheus.GaugeOpts{
			Name: "firewatch_last_resolution_timestamp_seconds",
			Help: "Unix time of the most recent resolution",
		}),

		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "firewatch_http_requests_total",
			Help: "API requests, by route and status code",
		}, []string{"route", "code"}),

		refreshErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "firewatch_refresh_errors_total",
			Help: "Scheduled refreshes that did not reach the live tier",
		}),
	}
}

// ObserveResolution records one completed feed
func (r *Recorder) ObserveResolution(tier string, elapsed time.Duration, fires, stubblePct int, at time.Time) {
	if r == nil {
		return
	}
	r.resolutions.WithLabelValues(tier).Inc()
	r.duration.WithLabelValues(tier).Observe(elapsed.Seconds())
	r.firesServed.Set(float64(fires))
	r.stubblePct.Set(float64(stubblePct))
	r.lastResolved.Set(float64(at.Unix()))
}

// LiveFailure counts a live tier failure
func (r *Recorder) LiveFailure(reason string) {
	if r == nil {
		return
	}
	r.liveFailures.WithLabelValues(reason).Inc()
}

// CacheWrite counts an envelope write
func (r *Recorder) CacheWrite(err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.cacheWrites.WithLabelValues(result).Inc()
}

// CacheCorrupt counts a discarded envelope
func (r *Recorder) CacheCorrupt() {
	if r == nil {
		return
	}
	r.cacheCorrupt.Inc()
}

// HTTPRequest counts an API request
func (r *Recorder) HTTPRequest(route, code string) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(route, code).Inc()
}

// RefreshError counts a scheduled refresh that fell back past the live tier
func (r *Recorder) RefreshError() {
	if r == nil {
		return
	}
	r.refreshErrors.Inc()
}

// Registry returns the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
