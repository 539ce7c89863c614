// Package metrics exposes Prometheus instrumentation for the odds
// pipeline: ingest volume, card fan-out, job outcomes, settlement and
// the read API.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "edgecard"

var (
	registry     *prometheus.Registry
	registryOnce sync.Once
)

var (
	jobRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Job executions by job name and terminal status",
		},
		[]string{"job_name", "status"},
	)

	jobSkipsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_skips_total",
			Help:      "Job dispatches skipped by reason",
		},
		[]string{"job_name", "reason"},
	)

	gamesUpsertedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_upserted_total",
			Help:      "Games written by the odds ingest pipeline",
		},
	)

	snapshotsInsertedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "odds_snapshots_inserted_total",
			Help:      "Odds snapshots written by the ingest pipeline",
		},
	)

	contractViolationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contract_violations_total",
			Help:      "Ingest batches rejected by the normalization floor",
		},
		[]string{"sport"},
	)

	cardsWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cards_written_total",
			Help:      "Card payloads written by the driver fan-out",
		},
		[]string{"sport", "card_type"},
	)

	cardsSettledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cards_settled_total",
			Help:      "Card results settled by grading outcome",
		},
		[]string{"result"},
	)

	cardsVoidedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cards_voided_total",
			Help:      "Pending cards voided by the settlement sweep",
		},
	)

	providerQuotaRemaining = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "provider_quota_remaining",
			Help:      "Request quota remaining at the odds provider",
		},
	)

	wsConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_connections_active",
			Help:      "Open analysis stream websocket connections",
		},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Read API request latency by route",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"route"},
	)
)

// InitRegistry builds the process-wide registry exactly once
func InitRegistry() *prometheus.Registry {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			jobRunsTotal,
			jobSkipsTotal,
			gamesUpsertedTotal,
			snapshotsInsertedTotal,
			contractViolationsTotal,
			cardsWrittenTotal,
			cardsSettledTotal,
			cardsVoidedTotal,
			providerQuotaRemaining,
			wsConnectionsActive,
			requestDuration,
		)
	})
	return registry
}

// Handler serves the registered metrics over HTTP
func Handler() http.Handler {
	return promhttp.HandlerFor(InitRegistry(), promhttp.HandlerOpts{})
}

// RecordJobRun counts a finished job execution
func RecordJobRun(jobName, status string) {
	jobRunsTotal.WithLabelValues(jobName, status).Inc()
}

// RecordJobSkip counts a dispatch that did not start a run
func RecordJobSkip(jobName, reason string) {
	jobSkipsTotal.WithLabelValues(jobName, reason).Inc()
}

// RecordIngest counts one ingest run's writes
func RecordIngest(games, snapshots int) {
	gamesUpsertedTotal.Add(float64(games))
	snapshotsInsertedTotal.Add(float64(snapshots))
}

// RecordContractViolation counts a sport batch held back by the floor
func RecordContractViolation(sport string) {
	contractViolationsTotal.WithLabelValues(sport).Inc()
}

// RecordCardWritten counts a persisted card payload
func RecordCardWritten(sport, cardType string) {
	cardsWrittenTotal.WithLabelValues(sport, cardType).Inc()
}

// RecordCardSettled counts a graded card result
func RecordCardSettled(result string) {
	cardsSettledTotal.WithLabelValues(result).Inc()
}

// RecordCardsVoided counts cards voided by the stale sweep
func RecordCardsVoided(n int) {
	cardsVoidedTotal.Add(float64(n))
}

// SetProviderQuota publishes the provider's remaining request quota
func SetProviderQuota(remaining float64) {
	providerQuotaRemaining.Set(remaining)
}

// WSConnectionOpened tracks a new analysis stream client
func WSConnectionOpened() {
	wsConnectionsActive.Inc()
}

// WSConnectionClosed tracks a departed analysis stream client
func WSConnectionClosed() {
	wsConnectionsActive.Dec()
}

// ObserveRequestDuration records one read API request's latency
func ObserveRequestDuration(route string, seconds float64) {
	requestDuration.WithLabelValues(route).Observe(seconds)
}
