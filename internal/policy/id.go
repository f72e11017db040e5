// Package policy implements the hierarchical Environment/System/Group policy
// tree with inherited ACLs and constraints (spec.md §3-4.3). To avoid
// parent/child reference cycles (spec.md §9 "cyclic parent pointers"), the
// tree is stored as a flat arena of nodes addressed by index, with each
// child holding its parent's index rather than a back-reference.
package policy

import "fmt"

// JitGroupId is the stable triple identifying a JIT group: environment,
// system, and group name. It is externally represented as
// "environment.system.name".
type JitGroupId struct {
	Environment string
	System      string
	Name        string
}

func (id JitGroupId) String() string {
	return fmt.Sprintf("%s.%s.%s", id.Environment, id.System, id.Name)
}

func (id JitGroupId) Equal(other JitGroupId) bool {
	return id == other
}
