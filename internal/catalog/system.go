package catalog

import (
	"go.miloapis.com/jitgroups/internal/acl"
	"go.miloapis.com/jitgroups/internal/policy"
)

// SystemContext is a VIEW-gated, per-subject view of one system within an
// environment.
type SystemContext struct {
	catalog *Catalog
	system  *policy.SystemPolicy
}

func (s *SystemContext) Name() string { return s.system.Name() }

// Groups lists every group the subject has VIEW on.
func (s *SystemContext) Groups() []*GroupContext {
	all := s.system.Groups()
	out := make([]*GroupContext, 0, len(all))
	for _, g := range all {
		if g.EffectiveACL().IsAccessAllowed(s.catalog.subject, acl.View) {
			out = append(out, &GroupContext{catalog: s.catalog, group: g})
		}
	}
	return out
}

// Group looks up a single group, returning nil if unknown or the subject
// lacks VIEW on it.
func (s *SystemContext) Group(name string) *GroupContext {
	g := s.system.Group(name)
	if g == nil || !g.EffectiveACL().IsAccessAllowed(s.catalog.subject, acl.View) {
		return nil
	}
	return &GroupContext{catalog: s.catalog, group: g}
}
