// Package metrics exposes Prometheus counters for the HTTP API and for sale list reconciliation.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"profitradar/internal/reconcile"
)

// Metrics holds the collectors and the registry they are exposed from
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	reconciliations *prometheus.CounterVec
	fieldChanges    prometheus.Counter
	appendedLots    prometheus.Counter
	weakMatches     prometheus.Counter
	scrapeRuns      *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request durations.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "endpoint", "status"},
		),
		reconciliations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profitradar_reconciliations_total",
				Help: "Incremental sale list attaches by outcome (written, unchanged, fallback, missing).",
			},
			[]string{"outcome"},
		),
		fieldChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "profitradar_reconcile_changes_total",
			Help: "Field writes and appended entries applied by reconciliation.",
		}),
		appendedLots: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "profitradar_reconcile_appended_lots_total",
			Help: "Lots seen for the first time.",
		}),
		weakMatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "profitradar_reconcile_title_keyed_entries_total",
			Help: "Incoming entries that could only be keyed by title.",
		}),
		scrapeRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profitradar_scrape_runs_total",
				Help: "Scheduled and on-demand scrape tasks by task and status.",
			},
			[]string{"task", "status"},
		),
	}

	m.registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.reconciliations,
		m.fieldChanges,
		m.appendedLots,
		m.weakMatches,
		m.scrapeRuns,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RecordRequest records one HTTP request
func (m *Metrics) RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	status := classifyStatus(statusCode)
	m.httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
}

// RecordScrape counts one scrape task run
func (m *Metrics) RecordScrape(task string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.scrapeRuns.WithLabelValues(task, status).Inc()
}

// Reconciled implements reconcile.Observer
func (m *Metrics) Reconciled(ctx context.Context, res *reconcile.Result) {
	m.reconciliations.WithLabelValues(outcome(res)).Inc()
	m.fieldChanges.Add(float64(res.Changes))
	m.appendedLots.Add(float64(res.Appended))
	m.weakMatches.Add(float64(res.WeakMatches))
}

// Middleware records every request against its route template
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.RecordRequest(c.Request.Method, endpoint, c.Writer.Status(), time.Since(start))
	}
}

// Handler exports the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func outcome(res *reconcile.Result) string {
	switch {
	case res.FellBack:
		return "fallback"
	case res.Written:
		return "written"
	case res.Missing:
		return "missing"
	default:
		return "unchanged"
	}
}

func classifyStatus(statusCode int) string {
	if statusCode < 100 || statusCode >= 600 {
		return "unknown"
	}
	return strconv.Itoa(statusCode/100) + "xx"
}
