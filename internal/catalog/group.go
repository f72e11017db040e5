package catalog

import (
	"go.miloapis.com/jitgroups/internal/join"
	"go.miloapis.com/jitgroups/internal/policy"
)

// GroupContext is a VIEW-gated, per-subject view of one group: the entry
// point for starting a join or consuming an approval proposal.
type GroupContext struct {
	catalog *Catalog
	group   *policy.GroupPolicy
}

func (g *GroupContext) ID() policy.JitGroupId        { return g.group.ID() }
func (g *GroupContext) Description() string          { return g.group.Description() }
func (g *GroupContext) Privileges() []policy.Privilege { return g.group.Privileges() }

// Join starts a join attempt for the context's subject against this group.
func (g *GroupContext) Join() *join.JoinOperation {
	return join.NewJoin(g.catalog.subject, g.group, g.catalog.provisioner)
}

// Approve reconstructs the approval operation the context's subject would
// perform to consume proposal against this group.
func (g *GroupContext) Approve(proposal *join.Proposal) (*join.ApprovalOperation, error) {
	return join.NewApproval(g.catalog.subject, g.group, g.catalog.provisioner, proposal)
}
