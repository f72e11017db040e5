package policy

import (
	"fmt"

	"go.miloapis.com/jitgroups/internal/acl"
	"go.miloapis.com/jitgroups/internal/constraint"
)

type nodeKind int

const (
	nodeEnvironment nodeKind = iota
	nodeSystem
	nodeGroup
)

type node struct {
	kind        nodeKind
	name        string
	description string
	acl         acl.ACL
	constraints []constraint.Constraint
	parent      int // index into EnvironmentPolicy.nodes, -1 for the root
	children    []int

	// environment-only
	metadata map[string]string
	// group-only
	privileges []Privilege
	gkeEnabled bool
}

// EnvironmentPolicy is the arena holding one environment's full policy tree:
// the environment node at index 0, its systems, and their groups.
type EnvironmentPolicy struct {
	nodes []node
}

// NewEnvironmentPolicy creates a new policy tree rooted at an environment
// node.
func NewEnvironmentPolicy(name, description string) *EnvironmentPolicy {
	p := &EnvironmentPolicy{}
	p.nodes = append(p.nodes, node{kind: nodeEnvironment, name: name, description: description, parent: -1})
	return p
}

// Name is the environment's own name.
func (p *EnvironmentPolicy) Name() string { return p.nodes[0].name }

// Description is the environment's own description.
func (p *EnvironmentPolicy) Description() string { return p.nodes[0].description }

// SetMetadata attaches arbitrary metadata to the environment node.
func (p *EnvironmentPolicy) SetMetadata(md map[string]string) { p.nodes[0].metadata = md }

func (p *EnvironmentPolicy) Metadata() map[string]string { return p.nodes[0].metadata }

// SetACL replaces the environment's own ACL (not including inherited
// entries, since the environment is the root).
func (p *EnvironmentPolicy) SetACL(a acl.ACL) { p.nodes[0].acl = a }

// AddConstraint attaches a constraint of its own declared classes to the
// environment node; it is inherited by every system and group beneath it.
func (p *EnvironmentPolicy) AddConstraint(c constraint.Constraint) {
	p.nodes[0].constraints = append(p.nodes[0].constraints, c)
}

// AddSystem adds a new, uniquely-named system to the environment and returns
// a handle for configuring it.
func (p *EnvironmentPolicy) AddSystem(name string) (*SystemPolicy, error) {
	for _, childIdx := range p.nodes[0].children {
		if p.nodes[childIdx].name == name {
			return nil, fmt.Errorf("policy: system %q already exists in environment %q", name, p.Name())
		}
	}
	idx := len(p.nodes)
	p.nodes = append(p.nodes, node{kind: nodeSystem, name: name, parent: 0})
	p.nodes[0].children = append(p.nodes[0].children, idx)
	return &SystemPolicy{arena: p, index: idx}, nil
}

// Systems returns a handle for every system in the tree, in declaration
// order.
func (p *EnvironmentPolicy) Systems() []*SystemPolicy {
	out := make([]*SystemPolicy, 0, len(p.nodes[0].children))
	for _, idx := range p.nodes[0].children {
		out = append(out, &SystemPolicy{arena: p, index: idx})
	}
	return out
}

// System looks up a system by name; returns nil if absent.
func (p *EnvironmentPolicy) System(name string) *SystemPolicy {
	for _, idx := range p.nodes[0].children {
		if p.nodes[idx].name == name {
			return &SystemPolicy{arena: p, index: idx}
		}
	}
	return nil
}

// EffectiveACL returns the environment's own ACL (the environment has no
// ancestors to inherit from).
func (p *EnvironmentPolicy) EffectiveACL() acl.ACL { return p.nodes[0].acl }

// EffectiveConstraints returns the environment's own constraints of the
// given class.
func (p *EnvironmentPolicy) EffectiveConstraints(class constraint.Class) []constraint.Constraint {
	return filterClass(p.nodes[0].constraints, class)
}

// SystemPolicy is a handle into an EnvironmentPolicy arena addressing one
// system node.
type SystemPolicy struct {
	arena *EnvironmentPolicy
	index int
}

func (s *SystemPolicy) Name() string { return s.arena.nodes[s.index].name }

func (s *SystemPolicy) SetACL(a acl.ACL) { s.arena.nodes[s.index].acl = a }

func (s *SystemPolicy) AddConstraint(c constraint.Constraint) {
	s.arena.nodes[s.index].constraints = append(s.arena.nodes[s.index].constraints, c)
}

// AddGroup adds a new, uniquely-named group to the system.
func (s *SystemPolicy) AddGroup(name, description string) (*GroupPolicy, error) {
	n := &s.arena.nodes[s.index]
	for _, childIdx := range n.children {
		if s.arena.nodes[childIdx].name == name {
			return nil, fmt.Errorf("policy: group %q already exists in system %q", name, s.Name())
		}
	}
	idx := len(s.arena.nodes)
	s.arena.nodes = append(s.arena.nodes, node{kind: nodeGroup, name: name, description: description, parent: s.index})
	s.arena.nodes[s.index].children = append(s.arena.nodes[s.index].children, idx)
	return &GroupPolicy{arena: s.arena, index: idx}, nil
}

func (s *SystemPolicy) Groups() []*GroupPolicy {
	children := s.arena.nodes[s.index].children
	out := make([]*GroupPolicy, 0, len(children))
	for _, idx := range children {
		out = append(out, &GroupPolicy{arena: s.arena, index: idx})
	}
	return out
}

func (s *SystemPolicy) Group(name string) *GroupPolicy {
	for _, idx := range s.arena.nodes[s.index].children {
		if s.arena.nodes[idx].name == name {
			return &GroupPolicy{arena: s.arena, index: idx}
		}
	}
	return nil
}

// EffectiveACL concatenates the environment's ACL followed by this system's
// own ACL (root-to-leaf ordering, so an ancestor deny wins over any
// descendant allow).
func (s *SystemPolicy) EffectiveACL() acl.ACL {
	return acl.Concat(s.arena.EffectiveACL(), s.arena.nodes[s.index].acl)
}

func (s *SystemPolicy) EffectiveConstraints(class constraint.Class) []constraint.Constraint {
	return append(s.arena.EffectiveConstraints(class), filterClass(s.arena.nodes[s.index].constraints, class)...)
}

// GroupPolicy is a handle into an EnvironmentPolicy arena addressing one
// group node — the leaf of the policy tree and the unit users join.
type GroupPolicy struct {
	arena *EnvironmentPolicy
	index int
}

func (g *GroupPolicy) Name() string        { return g.arena.nodes[g.index].name }
func (g *GroupPolicy) Description() string { return g.arena.nodes[g.index].description }

func (g *GroupPolicy) SetACL(a acl.ACL) { g.arena.nodes[g.index].acl = a }

func (g *GroupPolicy) AddConstraint(c constraint.Constraint) {
	g.arena.nodes[g.index].constraints = append(g.arena.nodes[g.index].constraints, c)
}

func (g *GroupPolicy) AddPrivilege(p Privilege) {
	g.arena.nodes[g.index].privileges = append(g.arena.nodes[g.index].privileges, p)
}

func (g *GroupPolicy) Privileges() []Privilege {
	return g.arena.nodes[g.index].privileges
}

// SetGkeEnabled toggles the policy's access-profile flag: when true, a
// newly created backing group is provisioned with the GkeCompatible access
// profile instead of Restricted (spec.md §4.7.1, §9 open question).
func (g *GroupPolicy) SetGkeEnabled(enabled bool) { g.arena.nodes[g.index].gkeEnabled = enabled }

func (g *GroupPolicy) GkeEnabled() bool { return g.arena.nodes[g.index].gkeEnabled }

// System returns a handle to this group's parent system.
func (g *GroupPolicy) System() *SystemPolicy {
	return &SystemPolicy{arena: g.arena, index: g.arena.nodes[g.index].parent}
}

// ID returns this group's stable (environment, system, name) triple.
func (g *GroupPolicy) ID() JitGroupId {
	sys := g.System()
	return JitGroupId{Environment: g.arena.Name(), System: sys.Name(), Name: g.Name()}
}

// EffectiveACL concatenates environment -> system -> group ACLs, root to
// leaf.
func (g *GroupPolicy) EffectiveACL() acl.ACL {
	return acl.Concat(g.System().EffectiveACL(), g.arena.nodes[g.index].acl)
}

// EffectiveConstraints returns the union, in declaration order root to leaf,
// of every constraint of the given class inherited from the environment and
// system plus the group's own.
func (g *GroupPolicy) EffectiveConstraints(class constraint.Class) []constraint.Constraint {
	return append(g.System().EffectiveConstraints(class), filterClass(g.arena.nodes[g.index].constraints, class)...)
}

func filterClass(cs []constraint.Constraint, class constraint.Class) []constraint.Constraint {
	var out []constraint.Constraint
	for _, c := range cs {
		for _, cls := range c.Classes() {
			if cls == class {
				out = append(out, c)
				break
			}
		}
	}
	return out
}
