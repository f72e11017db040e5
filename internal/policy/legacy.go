package policy

// LegacyIncompatibility describes one pre-existing role binding surfaced by a
// legacy policy source as a pseudo-group that the current policy tree does
// not model. It is carried verbatim into the reconciliation report
// (spec.md §4.8, GLOSSARY "Legacy policy").
type LegacyIncompatibility struct {
	ResourceID  string
	Role        string
	Description string
}

// LegacyEnvironmentPolicy wraps a regular EnvironmentPolicy with the
// incompatibilities discovered by an alternate (legacy) policy source. Its
// Incompatibilities are appended untouched to EnvironmentContext.Reconcile's
// report; they are never resolved into the policy tree.
type LegacyEnvironmentPolicy struct {
	*EnvironmentPolicy
	incompatibilities []LegacyIncompatibility
}

// NewLegacyEnvironmentPolicy wraps policy with a fixed set of
// incompatibilities reported by the legacy source.
func NewLegacyEnvironmentPolicy(base *EnvironmentPolicy, incompatibilities []LegacyIncompatibility) *LegacyEnvironmentPolicy {
	return &LegacyEnvironmentPolicy{EnvironmentPolicy: base, incompatibilities: incompatibilities}
}

// Incompatibilities returns the legacy role bindings that have no
// corresponding group in the current policy tree.
func (l *LegacyEnvironmentPolicy) Incompatibilities() []LegacyIncompatibility {
	return l.incompatibilities
}
