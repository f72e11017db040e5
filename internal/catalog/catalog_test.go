package catalog

import (
	"context"
	"testing"
	"time"

	"go.miloapis.com/jitgroups/internal/acl"
	"go.miloapis.com/jitgroups/internal/constraint"
	"go.miloapis.com/jitgroups/internal/ferrors"
	"go.miloapis.com/jitgroups/internal/policy"
	"go.miloapis.com/jitgroups/internal/principal"
)

func buildEnv(t *testing.T, viewer, exporter, reconciler principal.Principal) *policy.EnvironmentPolicy {
	t.Helper()
	env := policy.NewEnvironmentPolicy("prod", "production environment")
	env.SetACL(acl.ACL{
		{Kind: acl.Allow, Principal: viewer, Mask: acl.View},
		{Kind: acl.Allow, Principal: exporter, Mask: acl.View | acl.Export},
		{Kind: acl.Allow, Principal: reconciler, Mask: acl.View | acl.Reconcile},
	})
	sys, err := env.AddSystem("core")
	if err != nil {
		t.Fatal(err)
	}
	sys.SetACL(acl.ACL{{Kind: acl.Allow, Principal: viewer, Mask: acl.View}})
	grp, err := sys.AddGroup("admins", "admin group")
	if err != nil {
		t.Fatal(err)
	}
	grp.SetACL(acl.ACL{{Kind: acl.Allow, Principal: viewer, Mask: acl.View | acl.Join | acl.ApproveSelf}})
	grp.AddConstraint(constraint.NewFixedExpiry("exp", time.Hour))
	return env
}

func TestEnvironment_DeniedSubjectGetsNilNotError(t *testing.T) {
	viewer := principal.User("viewer@x.test")
	exporter := principal.User("exporter@x.test")
	reconciler := principal.User("reconciler@x.test")
	env := buildEnv(t, viewer, exporter, reconciler)

	source := newFakeSource()
	source.headers = []EnvironmentHeader{{Name: "prod", Description: env.Description()}}
	source.docs["prod"] = env

	stranger := principal.NewSubject(principal.User("stranger@x.test"))
	c := New(NewPolicyCache(source, 0), source, newTestProvisioner(), stranger)

	ec, err := c.Environment("prod")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ec != nil {
		t.Fatal("expected nil context for a subject without VIEW")
	}
}

func TestEnvironment_UnknownNameGetsNilNotError(t *testing.T) {
	source := newFakeSource()
	c := New(NewPolicyCache(source, 0), source, newTestProvisioner(), principal.NewSubject(principal.User("x@test")))

	ec, err := c.Environment("does-not-exist")
	if err != nil || ec != nil {
		t.Fatalf("expected (nil, nil) for unknown environment, got (%v, %v)", ec, err)
	}
}

func TestEnvironment_ExportGatedByPermission(t *testing.T) {
	viewer := principal.User("viewer@x.test")
	exporter := principal.User("exporter@x.test")
	reconciler := principal.User("reconciler@x.test")
	env := buildEnv(t, viewer, exporter, reconciler)
	source := newFakeSource()
	source.docs["prod"] = env

	viewerCatalog := New(NewPolicyCache(source, 0), source, newTestProvisioner(), principal.NewSubject(viewer))
	ec, err := viewerCatalog.Environment("prod")
	if err != nil || ec == nil {
		t.Fatalf("expected viewer to see the environment, got (%v, %v)", ec, err)
	}
	if ec.CanExport() {
		t.Fatal("viewer should not be able to export")
	}
	if _, err := ec.Export(); err == nil {
		t.Fatal("expected AccessDenied")
	} else if reason, _ := ferrors.ReasonOf(err); reason != ferrors.ReasonAccessDenied {
		t.Fatalf("expected AccessDenied, got %v", err)
	}

	exporterCatalog := New(NewPolicyCache(source, 0), source, newTestProvisioner(), principal.NewSubject(exporter))
	ec2, err := exporterCatalog.Environment("prod")
	if err != nil || ec2 == nil {
		t.Fatalf("expected exporter to see the environment, got (%v, %v)", ec2, err)
	}
	if !ec2.CanExport() {
		t.Fatal("exporter should be able to export")
	}
	if _, err := ec2.Export(); err != nil {
		t.Fatalf("unexpected export error: %v", err)
	}
}

func TestEnvironment_ReconcileDeniedReturnsNil(t *testing.T) {
	viewer := principal.User("viewer@x.test")
	exporter := principal.User("exporter@x.test")
	reconciler := principal.User("reconciler@x.test")
	env := buildEnv(t, viewer, exporter, reconciler)
	source := newFakeSource()
	source.docs["prod"] = env

	c := New(NewPolicyCache(source, 0), source, newTestProvisioner(), principal.NewSubject(viewer))
	ec, err := c.Environment("prod")
	if err != nil || ec == nil {
		t.Fatalf("setup: %v %v", ec, err)
	}
	report, err := ec.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report != nil {
		t.Fatal("expected nil report when subject lacks RECONCILE")
	}
}

func TestEnvironment_ReconcileRunsWhenPermitted(t *testing.T) {
	viewer := principal.User("viewer@x.test")
	exporter := principal.User("exporter@x.test")
	reconciler := principal.User("reconciler@x.test")
	env := buildEnv(t, viewer, exporter, reconciler)
	source := newFakeSource()
	source.docs["prod"] = env

	c := New(NewPolicyCache(source, 0), source, newTestProvisioner(), principal.NewSubject(reconciler))
	ec, err := c.Environment("prod")
	if err != nil || ec == nil {
		t.Fatalf("setup: %v %v", ec, err)
	}
	report, err := ec.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report == nil {
		t.Fatal("expected a non-nil report")
	}
}

func TestGroupContext_JoinChainedThroughCatalog(t *testing.T) {
	viewer := principal.User("viewer@x.test")
	exporter := principal.User("exporter@x.test")
	reconciler := principal.User("reconciler@x.test")
	env := buildEnv(t, viewer, exporter, reconciler)
	source := newFakeSource()
	source.docs["prod"] = env

	c := New(NewPolicyCache(source, 0), source, newTestProvisioner(), principal.NewSubject(viewer))
	gc, err := c.Group(policy.JitGroupId{Environment: "prod", System: "core", Name: "admins"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gc == nil {
		t.Fatal("expected a group context")
	}

	op := gc.Join()
	if op.RequiresApproval() {
		t.Fatal("expected self-approve fast path")
	}
	m, err := op.Execute(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Group != gc.ID() {
		t.Fatalf("unexpected membership group: %+v", m.Group)
	}
}

func TestCatalog_GroupUnknownSystemReturnsNil(t *testing.T) {
	viewer := principal.User("viewer@x.test")
	exporter := principal.User("exporter@x.test")
	reconciler := principal.User("reconciler@x.test")
	env := buildEnv(t, viewer, exporter, reconciler)
	source := newFakeSource()
	source.docs["prod"] = env

	c := New(NewPolicyCache(source, 0), source, newTestProvisioner(), principal.NewSubject(viewer))
	gc, err := c.Group(policy.JitGroupId{Environment: "prod", System: "missing", Name: "admins"})
	if err != nil || gc != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", gc, err)
	}
}
