// Package metrics holds the Prometheus collectors for the ledger, the
// statistics cache, the advisor and the HTTP API.
//
// Every method is safe on a nil *Metrics, so services can run without
// instrumentation.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ecolife"

// Cache lookup results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Metrics is the set of collectors registered for one process.
type Metrics struct {
	ActivitiesRecorded   *prometheus.CounterVec
	RecomputeDuration    prometheus.Histogram
	CacheLookups         *prometheus.CounterVec
	InsightsGenerated    *prometheus.CounterVec
	AchievementsUnlocked *prometheus.CounterVec
	RefreshRuns          *prometheus.CounterVec
	RequestCounter       *prometheus.CounterVec
	RequestDuration      *prometheus.HistogramVec
	RequestsInFlight     prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New registers the collectors with reg. Use prometheus.NewRegistry() in
// tests; registering twice with the same registry panics.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ActivitiesRecorded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "activities_recorded_total",
				Help:      "Activities recorded, by emission category",
			},
			[]string{"category"},
		),
		RecomputeDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "stats",
				Name:      "recompute_duration_seconds",
				Help:      "Time spent recomputing a user's statistics",
				Buckets:   prometheus.DefBuckets,
			},
		),
		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stats",
				Name:      "cache_lookups_total",
				Help:      "Statistics cache lookups, by result",
			},
			[]string{"result"},
		),
		InsightsGenerated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "advisor",
				Name:      "insights_generated_total",
				Help:      "Insights created or refreshed, by priority",
			},
			[]string{"priority"},
		),
		AchievementsUnlocked: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "advisor",
				Name:      "achievements_unlocked_total",
				Help:      "Achievements unlocked, by badge",
			},
			[]string{"badge"},
		),
		RefreshRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "refresh_runs_total",
				Help:      "Refresh runs over all users, by outcome",
			},
			[]string{"status"},
		),
		RequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Number of HTTP requests currently being served",
			},
		),
		gatherer: reg,
	}
}

// ActivityRecorded counts one recorded activity.
func (m *Metrics) ActivityRecorded(category string) {
	if m == nil {
		return
	}
	m.ActivitiesRecorded.WithLabelValues(category).Inc()
}

// ObserveRecompute records a recompute duration.
func (m *Metrics) ObserveRecompute(d time.Duration) {
	if m == nil {
		return
	}
	m.RecomputeDuration.Observe(d.Seconds())
}

// CacheLookup counts a cache lookup with result CacheHit, CacheMiss or CacheError.
func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// InsightGenerated counts a created or refreshed insight.
func (m *Metrics) InsightGenerated(priority string) {
	if m == nil {
		return
	}
	m.InsightsGenerated.WithLabelValues(priority).Inc()
}

// AchievementUnlocked counts an unlock.
func (m *Metrics) AchievementUnlocked(badge string) {
	if m == nil {
		return
	}
	m.AchievementsUnlocked.WithLabelValues(badge).Inc()
}

// RefreshDone counts one refresh run.
func (m *Metrics) RefreshDone(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.RefreshRuns.WithLabelValues(status).Inc()
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestCounter.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RequestStarted and RequestFinished track in-flight HTTP requests.
func (m *Metrics) RequestStarted() {
	if m == nil {
		return
	}
	m.RequestsInFlight.Inc()
}

func (m *Metrics) RequestFinished() {
	if m == nil {
		return
	}
	m.RequestsInFlight.Dec()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
