// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GenerationsTotal counts study aid generations by kind and outcome.
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cramdesk_generations_total",
			Help: "Total number of study aid generation requests",
		},
		[]string{"kind", "status"},
	)

	// LedgerDecisionsTotal counts quota ledger outcomes by operation and
	// denial reason ("granted" when allowed).
	LedgerDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cramdesk_ledger_decisions_total",
			Help: "Total number of quota ledger decisions",
		},
		[]string{"operation", "outcome"},
	)

	// PagesChargedTotal accumulates pages deducted across all accounts.
	PagesChargedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cramdesk_pages_charged_total",
			Help: "Total pages deducted from account balances",
		},
	)

	// DocumentsIngestedTotal counts worker document ingestions by outcome.
	DocumentsIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cramdesk_documents_ingested_total",
			Help: "Total number of documents processed by the ingestion worker",
		},
		[]string{"status"},
	)

	// GenerationDuration observes LLM generation latency per kind.
	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cramdesk_generation_duration_seconds",
			Help:    "Duration of study aid generation calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)

// ObserveDecision records a ledger decision counter for the given operation.
func ObserveDecision(operation string, allowed bool, reason string) {
	outcome := "granted"
	if !allowed {
		outcome = reason
	}
	LedgerDecisionsTotal.WithLabelValues(operation, outcome).Inc()
}
