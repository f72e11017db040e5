package constraint

import (
	"fmt"
	"time"
)

// Expiry is either a fixed duration or a range whose value is supplied by the
// joining user via the named input (conventionally "expiry", see
// spec.md GLOSSARY). It is enforced as a JOIN-class constraint.
type Expiry struct {
	name     string
	fixed    time.Duration
	hasRange bool
	min, max time.Duration
}

// NewFixedExpiry builds an expiry constraint with a single, non-negotiable
// duration.
func NewFixedExpiry(name string, duration time.Duration) *Expiry {
	return &Expiry{name: name, fixed: duration}
}

// NewRangeExpiry builds an expiry constraint whose duration is supplied by
// the user (bounded to [min,max]) via the "expiry" input variable.
func NewRangeExpiry(name string, min, max time.Duration) *Expiry {
	return &Expiry{name: name, hasRange: true, min: min, max: max}
}

func (e *Expiry) Name() string     { return e.name }
func (e *Expiry) Classes() []Class { return []Class{ClassJoin} }

// MaxDuration returns the longest duration this constraint can ever produce,
// used to validate a returned Principal's expiry (spec.md §8 invariant 8).
func (e *Expiry) MaxDuration() time.Duration {
	if e.hasRange {
		return e.max
	}
	return e.fixed
}

func (e *Expiry) CreateCheck() Check {
	return &expiryCheck{constraint: e}
}

type expiryCheck struct {
	constraint *Expiry
	rawInput   string
	hasInput   bool
}

func (c *expiryCheck) Variables() []VariableSpec {
	if !c.constraint.hasRange {
		return nil
	}
	return []VariableSpec{{Name: "expiry", Kind: KindString}}
}

func (c *expiryCheck) Set(name, rawValue string) error {
	if name != "expiry" {
		return &InvalidInputError{Variable: name, Reason: "unknown variable"}
	}
	if _, err := time.ParseDuration(rawValue); err != nil {
		return &InvalidInputError{Variable: name, Reason: "not a valid duration"}
	}
	c.rawInput = rawValue
	c.hasInput = true
	return nil
}

// Evaluate always reports the constraint as satisfied: expiry constraints
// gate the *duration*, not a pass/fail predicate. Callers extract the
// duration via Duration.
func (c *expiryCheck) Evaluate(EvalContext) (bool, error) { return true, nil }

// Duration extracts the Duration this check resolves to: the fixed value, or
// the bounded user-supplied value for a range constraint.
func (c *expiryCheck) Duration() (time.Duration, error) {
	if !c.constraint.hasRange {
		return c.constraint.fixed, nil
	}
	if !c.hasInput {
		return 0, fmt.Errorf("constraint %s: expiry input was not supplied", c.constraint.name)
	}
	d, err := time.ParseDuration(c.rawInput)
	if err != nil {
		return 0, fmt.Errorf("constraint %s: %w", c.constraint.name, err)
	}
	if d < c.constraint.min || d > c.constraint.max {
		return 0, &InvalidInputError{
			Variable: "expiry",
			Reason:   fmt.Sprintf("duration %s out of range [%s,%s]", d, c.constraint.min, c.constraint.max),
		}
	}
	return d, nil
}

// ExpiryCheck is the capability the join package uses to extract a
// concrete Duration out of a Check known to originate from an Expiry
// constraint.
type ExpiryCheck interface {
	Check
	Duration() (time.Duration, error)
}

var _ ExpiryCheck = (*expiryCheck)(nil)
