package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Cycle outcome label values for PollCycles.
const (
	OutcomeOK         = "ok"
	OutcomeSkipped    = "skipped"
	OutcomeFetchError = "fetch_error"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// monitoring pipeline.
type Metrics struct {
	PollCycles    *prometheus.CounterVec // labels: outcome={ok,skipped,fetch_error}
	CycleDuration prometheus.Histogram
	FetchDuration prometheus.Histogram
	SnapshotSize  prometheus.Histogram
	PollerRunning prometheus.Gauge

	NovelEvents      prometheus.Counter
	AlertsFired      prometheus.Counter
	AlertActive      prometheus.Gauge
	WatermarkSeconds prometheus.Gauge

	ArchiveErrors prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.PollCycles,
		m.CycleDuration,
		m.FetchDuration,
		m.SnapshotSize,
		m.PollerRunning,
		m.NovelEvents,
		m.AlertsFired,
		m.AlertActive,
		m.WatermarkSeconds,
		m.ArchiveErrors,
	)
	return m
}

// NewMetricsForTesting creates Metrics with no registration to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PollCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_watch",
			Name:      "poll_cycles_total",
			Help:      "Poll cycles by outcome.",
		}, []string{"outcome"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quake_watch",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a complete fetch-diff-match-project cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quake_watch",
			Name:      "fetch_duration_seconds",
			Help:      "Feed fetch duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		SnapshotSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quake_watch",
			Name:      "snapshot_size",
			Help:      "Number of events per fetched snapshot.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		}),
		PollerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quake_watch",
			Name:      "poller_running",
			Help:      "1 when the poller is active, 0 when shut down.",
		}),
		NovelEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_watch",
			Name:      "novel_events_total",
			Help:      "Events that crossed the watermark.",
		}),
		AlertsFired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_watch",
			Name:      "alerts_fired_total",
			Help:      "Novel events that matched the notification scope.",
		}),
		AlertActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quake_watch",
			Name:      "alert_active",
			Help:      "1 while an alert banner is displayed.",
		}),
		WatermarkSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quake_watch",
			Name:      "watermark_timestamp_seconds",
			Help:      "Unix timestamp of the novelty watermark.",
		}),
		ArchiveErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_watch",
			Name:      "archive_errors_total",
			Help:      "Snapshot archive write failures (non-fatal).",
		}),
	}
}
