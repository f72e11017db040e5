// Package observability holds the metrics and tracing plumbing shared by the
// join, approval, and reconciliation paths. It registers against the default
// Prometheus registry, which a host process can expose over promhttp.Handler
// (cmd/jitgroups does not serve metrics), and starts spans against whatever
// global otel TracerProvider the host process configured; it does not
// configure an exporter itself.
package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	// JoinAttemptsTotal counts join executions by outcome: "granted",
	// "proposed" (entered the peer-approval flow), or "denied".
	JoinAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jitgroups",
		Name:      "join_attempts_total",
		Help:      "Count of join attempts against JIT groups, by outcome.",
	}, []string{"outcome"})

	// ApprovalOutcomesTotal counts approval executions by outcome: "granted"
	// or "denied".
	ApprovalOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jitgroups",
		Name:      "approval_outcomes_total",
		Help:      "Count of approval decisions on proposed joins, by outcome.",
	}, []string{"outcome"})

	// ActiveMemberships is a gauge for the number of non-expired memberships.
	// It is registered here, but no code in this module sets it.
	ActiveMemberships = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "jitgroups",
		Name:      "active_memberships",
		Help:      "Number of memberships granted and not yet expired, as of the last reconciliation.",
	})

	// ReconciliationGroupsTotal counts groups visited by the reconciliation
	// driver, by resulting status: "compliant", "orphaned", or "broken".
	ReconciliationGroupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jitgroups",
		Name:      "reconciliation_groups_total",
		Help:      "Count of groups visited during reconciliation, by resulting status.",
	}, []string{"status"})

	// ReconciliationDuration observes wall-clock time spent in one
	// reconciliation run over an environment.
	ReconciliationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "jitgroups",
		Name:      "reconciliation_duration_seconds",
		Help:      "Time spent reconciling one environment's IAM bindings against its policy tree.",
		Buckets:   prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		JoinAttemptsTotal,
		ApprovalOutcomesTotal,
		ActiveMemberships,
		ReconciliationGroupsTotal,
		ReconciliationDuration,
	)
}
