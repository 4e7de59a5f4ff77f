// Package metrics defines the Prometheus collectors exported on /metrics.
// Collectors register with the default registry on package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bank_mesh"

// HTTPRequestsTotal counts handled requests.
// Labels: method, route (gin full path), status.
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests handled.",
	},
	[]string{"method", "route", "status"},
)

// HTTPRequestDuration measures request latency.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)

// LedgerOperationsTotal counts ledger operations by outcome.
// Labels:
//   - operation: "top_up", "transfer", "credit", "correction"
//   - result: "ok" or a short error reason such as "insufficient_funds"
var LedgerOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_operations_total",
		Help:      "Total number of ledger operations, by operation and result.",
	},
	[]string{"operation", "result"},
)

// LedgerRetriesTotal counts contended ledger transactions that were retried.
var LedgerRetriesTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_retries_total",
		Help:      "Total number of ledger transaction attempts retried after contention.",
	},
)

// ReplicaResolutionsTotal counts replica refreshes.
// Labels:
//   - collection: clients, accounts, credit-cards, payments
//   - result: "fetched", "fresh" (skipped inside the staleness window), "stale" (fallback), "error"
var ReplicaResolutionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "replica_resolutions_total",
		Help:      "Total number of replica resolutions, by collection and result.",
	},
	[]string{"collection", "result"},
)

// ReplicaUpsertedTotal counts rows written by replication.
var ReplicaUpsertedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "replica_upserted_total",
		Help:      "Total number of replica rows inserted or updated.",
	},
	[]string{"collection"},
)

// UpstreamRequestDuration measures calls to other services.
// Labels: target ("identity" or an origin name), outcome ("ok", "error").
var UpstreamRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upstream_request_duration_seconds",
		Help:      "Duration of outbound service-to-service calls.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"target", "outcome"},
)

// SyncRunsTotal counts full resynchronization runs by result ("ok", "partial").
var SyncRunsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_runs_total",
		Help:      "Total number of full resynchronization runs.",
	},
	[]string{"result"},
)
