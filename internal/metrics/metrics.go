// Package metrics exports Prometheus metrics for the pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonesrussell/newsthreader/internal/domain"
)

// Metrics holds all pipeline Prometheus metrics.
type Metrics struct {
	// Gate metrics
	OutcomesTotal    *prometheus.CounterVec
	SeedsTotal       *prometheus.CounterVec
	CandidateLatency prometheus.Histogram

	// Reliability metrics
	DomainsBlocked prometheus.Gauge
	DomainsTracked prometheus.Gauge

	// Threading metrics
	ThreadsCreated  prometheus.Counter
	ThreadsJoined   prometheus.Counter
	ThreadsMerged   prometheus.Counter
	ThreadsArchived prometheus.Counter
	ActiveThreads   prometheus.Gauge

	// Run metrics
	RunDuration prometheus.Histogram
	RunsTotal   *prometheus.CounterVec
}

// New registers and returns the pipeline metrics.
func New() *Metrics {
	m := &Metrics{}
	initGateMetrics(m)
	initReliabilityMetrics(m)
	initThreadingMetrics(m)
	initRunMetrics(m)
	return m
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

func initGateMetrics(m *Metrics) {
	m.OutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsthreader_outcomes_total",
		Help: "Crawl outcomes by terminal status and failure reason",
	}, []string{"status", "reason"})

	m.SeedsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsthreader_seeds_total",
		Help: "Seed stories processed by final status",
	}, []string{"status"})

	m.CandidateLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "newsthreader_candidate_duration_seconds",
		Help:    "Time to run one candidate through the gate",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})
}

func initReliabilityMetrics(m *Metrics) {
	m.DomainsBlocked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "newsthreader_domains_blocked",
		Help: "Domains currently blocked by the reliability tracker",
	})

	m.DomainsTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "newsthreader_domains_tracked",
		Help: "Domains with any reliability history",
	})
}

func initThreadingMetrics(m *Metrics) {
	m.ThreadsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsthreader_threads_created_total",
		Help: "Story threads created",
	})

	m.ThreadsJoined = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsthreader_threads_joined_total",
		Help: "Articles that joined an existing thread",
	})

	m.ThreadsMerged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsthreader_threads_merged_total",
		Help: "Thread pairs merged",
	})

	m.ThreadsArchived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsthreader_threads_archived_total",
		Help: "Threads archived for inactivity",
	})

	m.ActiveThreads = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "newsthreader_active_threads",
		Help: "Currently active story threads",
	})
}

func initRunMetrics(m *Metrics) {
	m.RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "newsthreader_run_duration_seconds",
		Help:    "Wall time of one full pipeline run",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	})

	m.RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsthreader_runs_total",
		Help: "Pipeline runs by result",
	}, []string{"result"})
}

// RecordOutcome counts a terminal crawl outcome.
func (m *Metrics) RecordOutcome(o *domain.CrawlOutcome) {
	m.OutcomesTotal.WithLabelValues(string(o.Status), string(o.Reason)).Inc()
}

// RecordSeed counts a seed reaching its final status for the run.
func (m *Metrics) RecordSeed(status domain.SeedStoryStatus) {
	m.SeedsTotal.WithLabelValues(string(status)).Inc()
}

// RecordCandidateDuration records the gate latency for one candidate.
func (m *Metrics) RecordCandidateDuration(d time.Duration) {
	m.CandidateLatency.Observe(d.Seconds())
}

// SetDomainCounts updates the reliability gauges after a recompute.
func (m *Metrics) SetDomainCounts(tracked, blocked int) {
	m.DomainsTracked.Set(float64(tracked))
	m.DomainsBlocked.Set(float64(blocked))
}

// RecordThreading folds one threading pass into the counters.
func (m *Metrics) RecordThreading(created, joined, merged, archived int) {
	m.ThreadsCreated.Add(float64(created))
	m.ThreadsJoined.Add(float64(joined))
	m.ThreadsMerged.Add(float64(merged))
	m.ThreadsArchived.Add(float64(archived))
}

// SetActiveThreads updates the active thread gauge.
func (m *Metrics) SetActiveThreads(count int) {
	m.ActiveThreads.Set(float64(count))
}

// RecordRun records a completed pipeline run.
func (m *Metrics) RecordRun(d time.Duration, err error) {
	m.RunDuration.Observe(d.Seconds())
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.RunsTotal.WithLabelValues(result).Inc()
}
