package catalog

import (
	"context"

	"go.miloapis.com/jitgroups/internal/acl"
	"go.miloapis.com/jitgroups/internal/ferrors"
	"go.miloapis.com/jitgroups/internal/policy"
	"go.miloapis.com/jitgroups/internal/reconcile"
)

// EnvironmentContext is a VIEW-gated, per-subject view of one environment's
// policy.
type EnvironmentContext struct {
	catalog *Catalog
	doc     PolicyDocument
}

func (e *EnvironmentContext) Name() string        { return e.doc.Name() }
func (e *EnvironmentContext) Description() string { return e.doc.Description() }

// Systems lists every system the subject has VIEW on.
func (e *EnvironmentContext) Systems() []*SystemContext {
	all := e.doc.Systems()
	out := make([]*SystemContext, 0, len(all))
	for _, s := range all {
		if s.EffectiveACL().IsAccessAllowed(e.catalog.subject, acl.View) {
			out = append(out, &SystemContext{catalog: e.catalog, system: s})
		}
	}
	return out
}

// System looks up a single system, returning nil if unknown or the subject
// lacks VIEW on it.
func (e *EnvironmentContext) System(name string) *SystemContext {
	s := e.doc.System(name)
	if s == nil || !s.EffectiveACL().IsAccessAllowed(e.catalog.subject, acl.View) {
		return nil
	}
	return &SystemContext{catalog: e.catalog, system: s}
}

// CanExport reports whether the subject holds EXPORT on the environment ACL.
func (e *EnvironmentContext) CanExport() bool {
	return e.doc.EffectiveACL().IsAccessAllowed(e.catalog.subject, acl.Export)
}

// Export returns the underlying policy document, failing with AccessDenied
// if the subject lacks EXPORT.
func (e *EnvironmentContext) Export() (PolicyDocument, error) {
	if !e.CanExport() {
		return nil, ferrors.AccessDenied("subject lacks EXPORT on environment " + e.doc.Name())
	}
	return e.doc, nil
}

// CanReconcile reports whether the subject holds RECONCILE on the
// environment ACL.
func (e *EnvironmentContext) CanReconcile() bool {
	return e.doc.EffectiveACL().IsAccessAllowed(e.catalog.subject, acl.Reconcile)
}

// Reconcile runs the reconciliation driver over this environment, returning
// (nil, nil) if the subject lacks RECONCILE (spec.md §4.8: "Returns empty if
// denied").
func (e *EnvironmentContext) Reconcile(ctx context.Context) (*reconcile.Report, error) {
	if !e.CanReconcile() {
		return nil, nil
	}
	return reconcile.Run(ctx, e.doc, e.incompatibilities(), e.catalog.provisioner)
}

func (e *EnvironmentContext) incompatibilities() []policy.LegacyIncompatibility {
	if legacy, ok := e.doc.(interface {
		Incompatibilities() []policy.LegacyIncompatibility
	}); ok {
		return legacy.Incompatibilities()
	}
	return nil
}
