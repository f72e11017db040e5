// Package catalog implements the subject-filtered view of the policy tree
// (spec.md §4.5): Catalog lists environments and materializes per-request
// contexts that gate every level (environment, system, group) on the
// subject's VIEW permission before exposing it.
package catalog

import (
	"context"

	"go.miloapis.com/jitgroups/internal/acl"
	"go.miloapis.com/jitgroups/internal/policy"
)

// EnvironmentHeader is the unfiltered summary Catalog.Environments lists —
// name and description only, with no VIEW check, since listing headers is
// not itself an access to the policy (spec.md §4.5).
type EnvironmentHeader struct {
	Name        string
	Description string
}

// PolicyDocument is the common surface a Source's LoadEnvironment may
// return: either a plain environment policy, or a legacy variant. Both
// *policy.EnvironmentPolicy and *policy.LegacyEnvironmentPolicy satisfy it
// structurally (the latter via its embedded base).
type PolicyDocument interface {
	Name() string
	Description() string
	EffectiveACL() acl.ACL
	Systems() []*policy.SystemPolicy
	System(name string) *policy.SystemPolicy
}

// Source is the abstract policy-document provider (spec.md NON-GOALS: the
// wire format and parsing of policy documents are out of scope; this
// capability interface is the boundary).
type Source interface {
	ListEnvironments(ctx context.Context) ([]EnvironmentHeader, error)
	LoadEnvironment(ctx context.Context, name string) (PolicyDocument, error)
}
