package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"go.miloapis.com/jitgroups/internal/acl"
	"go.miloapis.com/jitgroups/internal/catalog"
	"go.miloapis.com/jitgroups/internal/constraint"
	"go.miloapis.com/jitgroups/internal/policy"
	"go.miloapis.com/jitgroups/internal/principal"
)

// The JSON shapes below are the on-disk representation this store persists
// one environment's policy tree as, in the `data` JSONB column. Wire format
// is intentionally private to this package — catalog.Source exposes only the
// parsed policy.EnvironmentPolicy, per spec.md's Non-goal that no document
// format is prescribed.

type aclEntryDoc struct {
	Kind      acl.EntryKind   `json:"kind"`
	Principal principalDoc    `json:"principal"`
	Mask      acl.Permission  `json:"mask"`
}

type principalDoc struct {
	Kind  principal.Kind `json:"kind"`
	Email string         `json:"email"`
}

func (p principalDoc) toPrincipal() (principal.Principal, error) {
	return principal.New(p.Kind, p.Email)
}

type variableDoc struct {
	Name      string                  `json:"name"`
	Kind      constraint.VariableKind `json:"kind"`
	HasBounds bool                    `json:"hasBounds,omitempty"`
	MinLong   int64                   `json:"minLong,omitempty"`
	MaxLong   int64                   `json:"maxLong,omitempty"`
	MinStrLen int                     `json:"minStrLen,omitempty"`
	MaxStrLen int                     `json:"maxStrLen,omitempty"`
}

type constraintDoc struct {
	Name   string             `json:"name"`
	Type   string             `json:"type"` // "predicate" | "fixedExpiry" | "rangeExpiry"
	Classes []constraint.Class `json:"classes,omitempty"`

	// predicate
	Variables  []variableDoc `json:"variables,omitempty"`
	Expression string        `json:"expression,omitempty"`

	// fixedExpiry
	Duration string `json:"duration,omitempty"`

	// rangeExpiry
	MinDuration string `json:"minDuration,omitempty"`
	MaxDuration string `json:"maxDuration,omitempty"`
}

func (d constraintDoc) toConstraint() (constraint.Constraint, error) {
	switch d.Type {
	case "predicate":
		return constraint.NewPredicate(d.Name, d.Classes, toVariableSpecs(d.Variables), d.Expression), nil
	case "fixedExpiry":
		dur, err := time.ParseDuration(d.Duration)
		if err != nil {
			return nil, fmt.Errorf("constraint %s: duration: %w", d.Name, err)
		}
		return constraint.NewFixedExpiry(d.Name, dur), nil
	case "rangeExpiry":
		min, err := time.ParseDuration(d.MinDuration)
		if err != nil {
			return nil, fmt.Errorf("constraint %s: minDuration: %w", d.Name, err)
		}
		max, err := time.ParseDuration(d.MaxDuration)
		if err != nil {
			return nil, fmt.Errorf("constraint %s: maxDuration: %w", d.Name, err)
		}
		return constraint.NewRangeExpiry(d.Name, min, max), nil
	default:
		return nil, fmt.Errorf("constraint %s: unknown type %q", d.Name, d.Type)
	}
}

func toVariableSpecs(docs []variableDoc) []constraint.VariableSpec {
	out := make([]constraint.VariableSpec, 0, len(docs))
	for _, v := range docs {
		out = append(out, constraint.VariableSpec{
			Name:      v.Name,
			Kind:      v.Kind,
			HasBounds: v.HasBounds,
			MinLong:   v.MinLong,
			MaxLong:   v.MaxLong,
			MinStrLen: v.MinStrLen,
			MaxStrLen: v.MaxStrLen,
		})
	}
	return out
}

type privilegeDoc struct {
	Type        string `json:"type"` // only "iamRoleBinding" is recognized
	ResourceID  string `json:"resourceId,omitempty"`
	Role        string `json:"role,omitempty"`
	Description string `json:"description,omitempty"`
	Condition   string `json:"condition,omitempty"`
}

type groupDoc struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	GkeEnabled  bool            `json:"gkeEnabled,omitempty"`
	ACL         []aclEntryDoc   `json:"acl,omitempty"`
	Constraints []constraintDoc `json:"constraints,omitempty"`
	Privileges  []privilegeDoc  `json:"privileges,omitempty"`
}

type systemDoc struct {
	Name        string          `json:"name"`
	ACL         []aclEntryDoc   `json:"acl,omitempty"`
	Constraints []constraintDoc `json:"constraints,omitempty"`
	Groups      []groupDoc      `json:"groups,omitempty"`
}

type incompatibilityDoc struct {
	ResourceID  string `json:"resourceId"`
	Role        string `json:"role"`
	Description string `json:"description"`
}

// environmentDoc is the root JSON document stored per environment row.
type environmentDoc struct {
	Name              string                `json:"name"`
	Description       string                `json:"description"`
	ACL               []aclEntryDoc         `json:"acl,omitempty"`
	Constraints       []constraintDoc       `json:"constraints,omitempty"`
	Systems           []systemDoc           `json:"systems,omitempty"`
	Incompatibilities []incompatibilityDoc  `json:"incompatibilities,omitempty"`
}

func toACL(docs []aclEntryDoc) (acl.ACL, error) {
	out := make(acl.ACL, 0, len(docs))
	for _, d := range docs {
		p, err := d.Principal.toPrincipal()
		if err != nil {
			return nil, err
		}
		out = append(out, acl.Entry{Kind: d.Kind, Principal: p, Mask: d.Mask})
	}
	return out, nil
}

func toConstraints(docs []constraintDoc) ([]constraint.Constraint, error) {
	out := make([]constraint.Constraint, 0, len(docs))
	for _, d := range docs {
		c, err := d.toConstraint()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// decodeEnvironment parses raw (a JSONB column's bytes) into a policy tree.
// Unknown privilege types are skipped, matching the core's "unknown variants
// are allowed ... but ignored" rule (policy.Privilege doc comment).
func decodeEnvironment(raw []byte) (catalog.PolicyDocument, error) {
	var doc environmentDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding environment policy document: %w", err)
	}

	env := policy.NewEnvironmentPolicy(doc.Name, doc.Description)

	envACL, err := toACL(doc.ACL)
	if err != nil {
		return nil, fmt.Errorf("environment %s: %w", doc.Name, err)
	}
	env.SetACL(envACL)

	envConstraints, err := toConstraints(doc.Constraints)
	if err != nil {
		return nil, fmt.Errorf("environment %s: %w", doc.Name, err)
	}
	for _, c := range envConstraints {
		env.AddConstraint(c)
	}

	for _, sd := range doc.Systems {
		sys, err := env.AddSystem(sd.Name)
		if err != nil {
			return nil, err
		}
		sysACL, err := toACL(sd.ACL)
		if err != nil {
			return nil, fmt.Errorf("system %s: %w", sd.Name, err)
		}
		sys.SetACL(sysACL)

		sysConstraints, err := toConstraints(sd.Constraints)
		if err != nil {
			return nil, fmt.Errorf("system %s: %w", sd.Name, err)
		}
		for _, c := range sysConstraints {
			sys.AddConstraint(c)
		}

		for _, gd := range sd.Groups {
			grp, err := sys.AddGroup(gd.Name, gd.Description)
			if err != nil {
				return nil, err
			}
			grpACL, err := toACL(gd.ACL)
			if err != nil {
				return nil, fmt.Errorf("group %s: %w", gd.Name, err)
			}
			grp.SetACL(grpACL)
			grp.SetGkeEnabled(gd.GkeEnabled)

			grpConstraints, err := toConstraints(gd.Constraints)
			if err != nil {
				return nil, fmt.Errorf("group %s: %w", gd.Name, err)
			}
			for _, c := range grpConstraints {
				grp.AddConstraint(c)
			}

			for _, pd := range gd.Privileges {
				if pd.Type != "iamRoleBinding" {
					continue
				}
				grp.AddPrivilege(policy.IamRoleBinding{
					ResourceID:  pd.ResourceID,
					Role:        pd.Role,
					Description: pd.Description,
					Condition:   pd.Condition,
				})
			}
		}
	}

	if len(doc.Incompatibilities) == 0 {
		return env, nil
	}

	incompat := make([]policy.LegacyIncompatibility, 0, len(doc.Incompatibilities))
	for _, i := range doc.Incompatibilities {
		incompat = append(incompat, policy.LegacyIncompatibility{
			ResourceID:  i.ResourceID,
			Role:        i.Role,
			Description: i.Description,
		})
	}
	return policy.NewLegacyEnvironmentPolicy(env, incompat), nil
}
