// Package reconcile implements the reconciliation driver (spec.md §4.8): it
// enumerates a Provisioner's idea of which cloud groups exist for an
// environment, classifies each against the current policy tree, and folds in
// whatever incompatibilities a legacy policy document reports untouched.
package reconcile

import (
	"context"
	"time"

	"go.miloapis.com/jitgroups/internal/observability"
	"go.miloapis.com/jitgroups/internal/policy"
	"go.miloapis.com/jitgroups/internal/provisioner"
)

// Status classifies one provisioned cloud group against the current policy.
type Status string

const (
	// Compliant means the group still has a matching policy entry and its
	// IAM bindings reconciled without error.
	Compliant Status = "compliant"
	// Orphaned means no group in the current policy tree maps to this cloud
	// group: it was provisioned under a policy that no longer defines it.
	Orphaned Status = "orphaned"
	// Broken means a matching policy entry exists but reconciling its IAM
	// bindings failed.
	Broken Status = "broken"
)

// GroupReport is the outcome for one provisioned cloud group.
type GroupReport struct {
	Group   policy.JitGroupId
	CloudID string
	Status  Status
	Err     error
}

// Report is the full outcome of one reconciliation pass over an environment.
type Report struct {
	Groups            []GroupReport
	Incompatibilities []policy.LegacyIncompatibility
}

// PolicyTree is the minimal surface Run needs from a loaded environment
// policy: enough to resolve a JitGroupId back to its GroupPolicy, regardless
// of whether the caller holds a plain *policy.EnvironmentPolicy or a
// *policy.LegacyEnvironmentPolicy (both satisfy this via the embedded base).
type PolicyTree interface {
	Name() string
	System(name string) *policy.SystemPolicy
}

// Run enumerates every cloud group the Provisioner reports as provisioned
// for env, classifies it, and attaches incompatibilities untouched. A single
// group's reconcile failure is recorded as Broken and does not abort the
// walk — the whole pass is best-effort (spec.md §4.8).
func Run(ctx context.Context, env PolicyTree, incompatibilities []policy.LegacyIncompatibility, prov *provisioner.Provisioner) (report *Report, err error) {
	ctx, span := observability.StartSpan(ctx, "reconcile.Run")
	defer func() { observability.EndWithError(span, err) }()

	start := time.Now()
	defer func() { observability.ReconciliationDuration.Observe(time.Since(start).Seconds()) }()

	provisioned, err := prov.ProvisionedGroups(ctx, env.Name())
	if err != nil {
		return nil, err
	}

	report = &Report{Incompatibilities: incompatibilities}
	for _, id := range provisioned {
		cloudID := prov.Mapping.CloudIdentityGroupId(id)

		var group *policy.GroupPolicy
		if sys := env.System(id.System); sys != nil {
			group = sys.Group(id.Name)
		}

		if group == nil {
			report.Groups = append(report.Groups, GroupReport{Group: id, CloudID: cloudID, Status: Orphaned})
			observability.ReconciliationGroupsTotal.WithLabelValues(string(Orphaned)).Inc()
			continue
		}

		if err := prov.Reconcile(ctx, group); err != nil {
			report.Groups = append(report.Groups, GroupReport{Group: id, CloudID: cloudID, Status: Broken, Err: err})
			observability.ReconciliationGroupsTotal.WithLabelValues(string(Broken)).Inc()
			continue
		}
		report.Groups = append(report.Groups, GroupReport{Group: id, CloudID: cloudID, Status: Compliant})
		observability.ReconciliationGroupsTotal.WithLabelValues(string(Compliant)).Inc()
	}
	return report, nil
}
