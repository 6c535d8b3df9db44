package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daybook_mutations_total",
			Help: "Event mutations by operation and outcome",
		},
		[]string{"operation", "status"},
	)

	conflictChecks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "daybook_conflict_checks_total",
			Help: "Conflict checks performed",
		},
	)

	conflictsDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "daybook_conflicts_detected_total",
			Help: "Conflicting instances reported across all checks",
		},
	)

	instancesExpanded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "daybook_instances_expanded_total",
			Help: "Recurring instances materialized for queries and checks",
		},
	)
)

// RecordMutation counts one create/update/delete/move attempt.
// status is "ok", "conflict", "not_found", "invalid" or "persist_error".
func RecordMutation(operation, status string) {
	mutations.WithLabelValues(operation, status).Inc()
}

// RecordConflictCheck counts one check and the conflicts it found.
func RecordConflictCheck(found int) {
	conflictChecks.Inc()
	conflictsDetected.Add(float64(found))
}

// RecordExpansion counts instances materialized by a query.
func RecordExpansion(count int) {
	instancesExpanded.Add(float64(count))
}
