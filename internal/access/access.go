// Package access implements the combined ACL check + constraint evaluation
// pipeline (spec.md §4.4): Analysis gathers a group's effective ACL and the
// constraints of one or more classes, binds user-supplied inputs, and
// produces a Result partitioned into satisfied/unsatisfied/failed.
package access

import (
	"fmt"

	"go.miloapis.com/jitgroups/internal/acl"
	"go.miloapis.com/jitgroups/internal/constraint"
	"go.miloapis.com/jitgroups/internal/ferrors"
	"go.miloapis.com/jitgroups/internal/policy"
	"go.miloapis.com/jitgroups/internal/principal"
)

// Options selects how strictly Result.IsAccessAllowed / VerifyAccessAllowed
// treat constraints.
type Options int

const (
	// Default requires the ACL to allow access and every applied constraint
	// to be satisfied.
	Default Options = iota
	// IgnoreConstraints requires only that the ACL allows access.
	IgnoreConstraints
)

// CheckEntry pairs a constraint with the single-shot Check created for this
// Analysis, so callers (e.g. the join state machine) can extract
// constraint-specific results such as an expiry Duration.
type CheckEntry struct {
	Constraint constraint.Constraint
	Check      constraint.Check
}

// Analysis builds up the constraints to evaluate for one ACL requirement
// against one group, then executes them in declaration order.
type Analysis struct {
	subject  *principal.Subject
	required acl.Permission
	group    *policy.GroupPolicy
	entries  []CheckEntry
}

// New builds an Analysis for the given subject, required permission mask,
// and group policy. Callers add constraint classes with ApplyConstraints
// before calling Execute.
func New(subject *principal.Subject, required acl.Permission, group *policy.GroupPolicy) *Analysis {
	return &Analysis{subject: subject, required: required, group: group}
}

// ApplyConstraints adds every effective constraint of the given class to
// this analysis, in declaration order (root to leaf).
func (a *Analysis) ApplyConstraints(class constraint.Class) *Analysis {
	for _, c := range a.group.EffectiveConstraints(class) {
		a.entries = append(a.entries, CheckEntry{Constraint: c, Check: c.CreateCheck()})
	}
	return a
}

// Input returns the union of typed input variables every applied constraint
// declares, so callers can present them to the user before evaluation.
func (a *Analysis) Input() []constraint.VariableSpec {
	seen := make(map[string]bool)
	var out []constraint.VariableSpec
	for _, e := range a.entries {
		for _, v := range e.Check.Variables() {
			if seen[v.Name] {
				continue
			}
			seen[v.Name] = true
			out = append(out, v)
		}
	}
	return out
}

// SetInput binds a named input to every applied constraint's check that
// declares a variable with that name.
func (a *Analysis) SetInput(name, value string) error {
	applied := false
	for _, e := range a.entries {
		for _, v := range e.Check.Variables() {
			if v.Name != name {
				continue
			}
			if err := e.Check.Set(name, value); err != nil {
				return err
			}
			applied = true
		}
	}
	if !applied {
		return fmt.Errorf("access: %q is not a declared input for this analysis", name)
	}
	return nil
}

// Entries returns the constraint/check pairs this analysis applied, in
// declaration order. Used by the join state machine to recover, e.g., the
// concrete Duration an Expiry constraint's check resolved to.
func (a *Analysis) Entries() []CheckEntry { return a.entries }

// Execute runs the ACL check and every applied constraint's evaluation,
// deterministically in declaration order, and returns the full partitioned
// Result. Every constraint is evaluated even after the first
// failure/unsatisfied result, so Result lists all of them.
func (a *Analysis) Execute() *Result {
	evalCtx := constraint.EvalContext{
		SubjectEmail: a.subject.User().Email,
		GroupEnv:     a.group.ID().Environment,
		GroupSystem:  a.group.ID().System,
		GroupName:    a.group.ID().Name,
	}

	result := &Result{
		AllowedByACL: a.group.EffectiveACL().IsAccessAllowed(a.subject, a.required),
	}
	for _, e := range a.entries {
		ok, err := e.Check.Evaluate(evalCtx)
		switch {
		case err != nil:
			// A raised evaluation also counts as "not satisfied": it is
			// listed in both buckets (spec.md §8 scenario S6).
			result.FailedConstraints = append(result.FailedConstraints, e.Constraint)
			result.UnsatisfiedConstraints = append(result.UnsatisfiedConstraints, e.Constraint)
		case !ok:
			result.UnsatisfiedConstraints = append(result.UnsatisfiedConstraints, e.Constraint)
		default:
			result.SatisfiedConstraints = append(result.SatisfiedConstraints, e.Constraint)
		}
	}
	return result
}

// Result is the outcome of one Analysis.Execute call, partitioned into the
// four buckets described in spec.md §4.4.
type Result struct {
	AllowedByACL           bool
	SatisfiedConstraints   []constraint.Constraint
	UnsatisfiedConstraints []constraint.Constraint
	FailedConstraints      []constraint.Constraint
}

// IsAccessAllowed reports whether access is allowed under opts. Default
// requires the ACL to allow and both FailedConstraints and
// UnsatisfiedConstraints to be empty; IgnoreConstraints requires only that
// the ACL allows.
func (r *Result) IsAccessAllowed(opts Options) bool {
	if !r.AllowedByACL {
		return false
	}
	if opts == IgnoreConstraints {
		return true
	}
	return len(r.FailedConstraints) == 0 && len(r.UnsatisfiedConstraints) == 0
}

// VerifyAccessAllowed fails with the first applicable of AccessDenied,
// ConstraintFailed, ConstraintUnsatisfied — in that precedence order — even
// though Result still enumerates every constraint in each bucket.
func (r *Result) VerifyAccessAllowed(opts Options) error {
	if !r.AllowedByACL {
		return ferrors.AccessDenied("access denied by group ACL")
	}
	if opts == IgnoreConstraints {
		return nil
	}
	if len(r.FailedConstraints) > 0 {
		return ferrors.ConstraintFailed("one or more constraints failed to evaluate", constraintNames(r.FailedConstraints))
	}
	if len(r.UnsatisfiedConstraints) > 0 {
		return ferrors.ConstraintUnsatisfied("one or more constraints were not satisfied", constraintNames(r.UnsatisfiedConstraints))
	}
	return nil
}

func constraintNames(cs []constraint.Constraint) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name()
	}
	return out
}
