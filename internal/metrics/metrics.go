// Package metrics exposes Prometheus instruments for the check pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "jobspot"

// Metrics holds the collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	scrapes        *prometheus.CounterVec
	scrapeDuration *prometheus.HistogramVec
	cycles         *prometheus.CounterVec
	openListings   prometheus.Gauge
	newListings    prometheus.Counter
	notifications  *prometheus.CounterVec
	lastSuccess    prometheus.Gauge
}

// New creates the collectors and registers them together with the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		scrapes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_scrapes_total",
			Help:      "Source invocations by source and outcome.",
		}, []string{"source", "outcome"}),
		scrapeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_scrape_duration_seconds",
			Help:      "Time spent scraping a single source.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "check_cycles_total",
			Help:      "Check cycles by outcome.",
		}, []string{"outcome"}),
		openListings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_listings",
			Help:      "Listings open across all sources in the last cycle.",
		}),
		newListings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "new_listings_total",
			Help:      "Listings observed for the first time.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries by outcome.",
		}, []string{"outcome"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_successful_check_timestamp_seconds",
			Help:      "Unix time of the last completed check cycle.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.scrapes, m.scrapeDuration, m.cycles, m.openListings,
		m.newListings, m.notifications, m.lastSuccess,
	)
	return m
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveScrape records one source invocation.
func (m *Metrics) ObserveScrape(source string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.scrapes.WithLabelValues(source, outcome(err)).Inc()
	m.scrapeDuration.WithLabelValues(source).Observe(d.Seconds())
}

// ObserveCycle records a finished check cycle with its open and new counts.
func (m *Metrics) ObserveCycle(open, fresh int, err error) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		return
	}
	m.openListings.Set(float64(open))
	m.newListings.Add(float64(fresh))
	m.lastSuccess.SetToCurrentTime()
}

// ObserveNoSignal records a cycle in which no source returned a listing.
// The open gauge and the success timestamp keep their previous values.
func (m *Metrics) ObserveNoSignal() {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues("no_signal").Inc()
}

// ObserveNotification records one delivery attempt.
func (m *Metrics) ObserveNotification(err error) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(outcome(err)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
