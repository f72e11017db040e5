package catalog

import (
	"context"

	"go.miloapis.com/jitgroups/internal/acl"
	"go.miloapis.com/jitgroups/internal/policy"
	"go.miloapis.com/jitgroups/internal/principal"
	"go.miloapis.com/jitgroups/internal/provisioner"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Catalog is a per-request, per-subject view over a shared PolicyCache: it
// lists environments and materializes VIEW-gated contexts (spec.md §4.5).
// Catalog values are cheap and are never shared across requests.
type Catalog struct {
	cache       *PolicyCache
	source      Source
	provisioner *provisioner.Provisioner
	subject     *principal.Subject
}

// New builds a Catalog for one request's subject. source is used directly
// for Environments (an unfiltered listing, not cached); cache backs every
// environment(name) lookup.
func New(cache *PolicyCache, source Source, prov *provisioner.Provisioner, subject *principal.Subject) *Catalog {
	return &Catalog{cache: cache, source: source, provisioner: prov, subject: subject}
}

// Environments lists every environment header, unfiltered (spec.md §4.5: "no
// VIEW check — the summaries carry only name+description").
func (c *Catalog) Environments(ctx context.Context) ([]EnvironmentHeader, error) {
	return c.source.ListEnvironments(ctx)
}

// Environment loads and VIEW-filters the named environment. It returns
// (nil, nil) — not an error — if the environment is unknown or the subject
// lacks VIEW on its ACL.
func (c *Catalog) Environment(name string) (*EnvironmentContext, error) {
	doc, err := c.cache.load(name)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, err
	}
	if !doc.EffectiveACL().IsAccessAllowed(c.subject, acl.View) {
		return nil, nil
	}
	return &EnvironmentContext{catalog: c, doc: doc}, nil
}

// Group is a convenience that chains environment -> system -> group, gating
// VIEW at every level, returning (nil, nil) as soon as any level is unknown
// or denied.
func (c *Catalog) Group(id policy.JitGroupId) (*GroupContext, error) {
	env, err := c.Environment(id.Environment)
	if err != nil || env == nil {
		return nil, err
	}
	sys := env.System(id.System)
	if sys == nil {
		return nil, nil
	}
	return sys.Group(id.Name), nil
}
