package constraint

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/google/cel-go/cel"
)

// Predicate is a named boolean CEL expression evaluated against a set of
// typed input variables plus contextual facts (subject, group). Constraints
// are stateless; each CreateCheck call returns an independent, single-shot
// Check.
type Predicate struct {
	name      string
	classes   []Class
	variables []VariableSpec
	expr      string

	once    sync.Once
	env     *cel.Env
	envErr  error
	program cel.Program
	progErr error
}

// NewPredicate builds a predicate constraint. The CEL environment declares
// `subject`, `group_environment`, `group_system`, `group_name` as contextual
// facts plus one variable per VariableSpec, following the
// "trigger"-as-dyn-variable pattern used by the quota CEL engine.
func NewPredicate(name string, classes []Class, variables []VariableSpec, expr string) *Predicate {
	return &Predicate{name: name, classes: classes, variables: variables, expr: expr}
}

func (p *Predicate) Name() string      { return p.name }
func (p *Predicate) Classes() []Class  { return p.classes }

func (p *Predicate) compile() (cel.Program, error) {
	p.once.Do(func() {
		opts := []cel.EnvOption{
			cel.Variable("subject", cel.StringType),
			cel.Variable("group_environment", cel.StringType),
			cel.Variable("group_system", cel.StringType),
			cel.Variable("group_name", cel.StringType),
		}
		for _, v := range p.variables {
			opts = append(opts, cel.Variable(v.Name, celType(v.Kind)))
		}
		env, err := cel.NewEnv(opts...)
		if err != nil {
			p.envErr = fmt.Errorf("constraint %s: building CEL environment: %w", p.name, err)
			return
		}
		p.env = env

		ast, issues := env.Parse(p.expr)
		if issues != nil && issues.Err() != nil {
			p.progErr = fmt.Errorf("constraint %s: parse error: %w", p.name, issues.Err())
			return
		}
		checked, issues := env.Check(ast)
		if issues != nil && issues.Err() != nil {
			p.progErr = fmt.Errorf("constraint %s: type-check error: %w", p.name, issues.Err())
			return
		}
		if !checked.OutputType().IsEquivalentType(cel.BoolType) {
			p.progErr = fmt.Errorf("constraint %s: expression must evaluate to bool, got %s", p.name, checked.OutputType())
			return
		}
		program, err := env.Program(checked, cel.EvalOptions(cel.OptOptimize))
		if err != nil {
			p.progErr = fmt.Errorf("constraint %s: program creation failed: %w", p.name, err)
			return
		}
		p.program = program
	})
	if p.envErr != nil {
		return nil, p.envErr
	}
	return p.program, p.progErr
}

func celType(k VariableKind) *cel.Type {
	switch k {
	case KindBool:
		return cel.BoolType
	case KindLong:
		return cel.IntType
	default:
		return cel.StringType
	}
}

// CreateCheck returns a fresh, single-shot Check bound to this predicate's
// declared variables. Unset variables hold their declared default (bool =
// false, string = "", long = 0).
func (p *Predicate) CreateCheck() Check {
	values := make(map[string]any, len(p.variables))
	for _, v := range p.variables {
		switch v.Kind {
		case KindBool:
			values[v.Name] = false
		case KindLong:
			values[v.Name] = int64(0)
		default:
			values[v.Name] = ""
		}
	}
	return &predicateCheck{predicate: p, values: values}
}

type predicateCheck struct {
	predicate *Predicate
	values    map[string]any
}

func (c *predicateCheck) Variables() []VariableSpec { return c.predicate.variables }

func (c *predicateCheck) Set(name, rawValue string) error {
	var spec *VariableSpec
	for i := range c.predicate.variables {
		if c.predicate.variables[i].Name == name {
			spec = &c.predicate.variables[i]
			break
		}
	}
	if spec == nil {
		return &InvalidInputError{Variable: name, Reason: "unknown variable"}
	}

	switch spec.Kind {
	case KindBool:
		b, err := strconv.ParseBool(rawValue)
		if err != nil {
			return &InvalidInputError{Variable: name, Reason: "not a boolean"}
		}
		c.values[name] = b
	case KindLong:
		n, err := strconv.ParseInt(rawValue, 10, 64)
		if err != nil {
			return &InvalidInputError{Variable: name, Reason: "not an integer"}
		}
		if spec.HasBounds && (n < spec.MinLong || n > spec.MaxLong) {
			return &InvalidInputError{Variable: name, Reason: fmt.Sprintf("out of range [%d,%d]", spec.MinLong, spec.MaxLong)}
		}
		c.values[name] = n
	default:
		if spec.HasBounds && (len(rawValue) < spec.MinStrLen || len(rawValue) > spec.MaxStrLen) {
			return &InvalidInputError{Variable: name, Reason: fmt.Sprintf("length out of range [%d,%d]", spec.MinStrLen, spec.MaxStrLen)}
		}
		c.values[name] = rawValue
	}
	return nil
}

func (c *predicateCheck) Evaluate(ctx EvalContext) (bool, error) {
	program, err := c.predicate.compile()
	if err != nil {
		return false, err
	}

	vars := make(map[string]any, len(c.values)+4)
	for k, v := range c.values {
		vars[k] = v
	}
	vars["subject"] = ctx.SubjectEmail
	vars["group_environment"] = ctx.GroupEnv
	vars["group_system"] = ctx.GroupSystem
	vars["group_name"] = ctx.GroupName

	result, _, err := program.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("constraint %s: evaluation failed: %w", c.predicate.name, err)
	}
	b, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("constraint %s: expression did not return a boolean value", c.predicate.name)
	}
	return b, nil
}
