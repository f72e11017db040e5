// Package constraint implements the typed-input predicate and expiry
// constraints described in spec.md §3/§4.2. Predicate constraints compile a
// boolean CEL expression once (mirroring internal/quota/engine.celEngine's
// program cache) and bind it against a fresh Check for every evaluation.
package constraint

import (
	"time"
)

// Class groups constraints by when they're enforced: at join time, or at
// approval time (and at join time too, when the subject self-approves).
type Class string

const (
	ClassJoin    Class = "JOIN"
	ClassApprove Class = "APPROVE"
)

// VariableKind identifies the type of a predicate's input variable.
type VariableKind string

const (
	KindBool   VariableKind = "bool"
	KindString VariableKind = "string"
	KindLong   VariableKind = "long"
)

// VariableSpec declares one named, typed input a predicate constraint
// expects. String and Long variables may carry inclusive bounds, which are
// enforced only when HasBounds is true; otherwise the variable is unbounded.
type VariableSpec struct {
	Name       string
	Kind       VariableKind
	HasBounds  bool
	MinLong    int64
	MaxLong    int64
	MinStrLen  int
	MaxStrLen  int
}

// Constraint is the common capability every constraint variant (Predicate,
// Expiry) exposes: creating a single-shot, stateful Check.
type Constraint interface {
	Name() string
	Classes() []Class
	CreateCheck() Check
}

// Check is a single-shot, mutable evaluation of a Constraint: bind inputs,
// then Evaluate once.
type Check interface {
	// Set binds the named input variable to the given raw string value,
	// parsing and validating it against the variable's declared bounds.
	// Setting an out-of-range value fails with InvalidInput.
	Set(name, rawValue string) error

	// Variables lists the input variables this check expects, so callers can
	// present them to users before evaluation.
	Variables() []VariableSpec

	// Evaluate runs the predicate. A raised evaluation error is reported as
	// ConstraintFailed and is distinct from a clean false result.
	Evaluate(ctx EvalContext) (bool, error)
}

// EvalContext carries the contextual facts a predicate may reference
// alongside its input variables: the acting subject and the group being
// evaluated against.
type EvalContext struct {
	SubjectEmail string
	GroupEnv     string
	GroupSystem  string
	GroupName    string
	Now          time.Time
}

// InvalidInputError is returned by Check.Set when a value is out of the
// variable's declared bounds or fails to parse for its declared kind.
type InvalidInputError struct {
	Variable string
	Reason   string
}

func (e *InvalidInputError) Error() string {
	return "constraint: invalid input for " + e.Variable + ": " + e.Reason
}
