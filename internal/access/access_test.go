package access

import (
	"testing"

	"go.miloapis.com/jitgroups/internal/acl"
	"go.miloapis.com/jitgroups/internal/constraint"
	"go.miloapis.com/jitgroups/internal/ferrors"
	"go.miloapis.com/jitgroups/internal/policy"
	"go.miloapis.com/jitgroups/internal/principal"
	"google.golang.org/grpc/codes"
)

func buildGroup(t *testing.T, a acl.ACL, constraints ...constraint.Constraint) *policy.GroupPolicy {
	t.Helper()
	env := policy.NewEnvironmentPolicy("env1", "")
	sys, err := env.AddSystem("sys1")
	if err != nil {
		t.Fatal(err)
	}
	grp, err := sys.AddGroup("group1", "")
	if err != nil {
		t.Fatal(err)
	}
	grp.SetACL(a)
	for _, c := range constraints {
		grp.AddConstraint(c)
	}
	return grp
}

func TestExecute_AllowedNoConstraints(t *testing.T) {
	user := principal.User("u@x.test")
	grp := buildGroup(t, acl.ACL{{Kind: acl.Allow, Principal: user, Mask: acl.Join}})

	a := New(principal.NewSubject(user), acl.Join, grp)
	result := a.Execute()
	if !result.IsAccessAllowed(Default) {
		t.Fatal("expected access allowed")
	}
	if err := result.VerifyAccessAllowed(Default); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExecute_DeniedByACL(t *testing.T) {
	user := principal.User("u@x.test")
	grp := buildGroup(t, acl.ACL{})

	a := New(principal.NewSubject(user), acl.Join, grp)
	result := a.Execute()
	if result.IsAccessAllowed(Default) {
		t.Fatal("expected access denied")
	}
	err := result.VerifyAccessAllowed(Default)
	if ferrors.Code(err) != codes.PermissionDenied {
		t.Fatalf("expected AccessDenied, got %v", err)
	}
}

// S6 — Constraint failure scenario from spec.md §8.
func TestExecute_ConstraintRaisesIsDistinctFromFalse(t *testing.T) {
	user := principal.User("u@x.test")
	broken := constraint.NewPredicate("broken", []constraint.Class{constraint.ClassJoin}, nil, "not_a_real_identifier")
	grp := buildGroup(t, acl.ACL{{Kind: acl.Allow, Principal: user, Mask: acl.Join}}, broken)

	a := New(principal.NewSubject(user), acl.Join, grp).ApplyConstraints(constraint.ClassJoin)
	result := a.Execute()

	if !result.IsAccessAllowed(IgnoreConstraints) {
		t.Fatal("expected IGNORE_CONSTRAINTS to report allowed")
	}
	if result.IsAccessAllowed(Default) {
		t.Fatal("expected DEFAULT to report denied due to failed constraint")
	}
	if len(result.FailedConstraints) != 1 || result.FailedConstraints[0].Name() != "broken" {
		t.Fatalf("expected broken constraint to be listed as failed, got %v", result.FailedConstraints)
	}
	if len(result.UnsatisfiedConstraints) != 1 || result.UnsatisfiedConstraints[0].Name() != "broken" {
		t.Fatalf("expected the same constraint listed as unsatisfied (S6), got %v", result.UnsatisfiedConstraints)
	}
	err := result.VerifyAccessAllowed(Default)
	if reason, _ := ferrors.ReasonOf(err); reason != ferrors.ReasonConstraintFailed {
		t.Fatalf("expected ConstraintFailed, got %v (%v)", err, reason)
	}
}

func TestExecute_ConstraintFalse(t *testing.T) {
	user := principal.User("u@x.test")
	never := constraint.NewPredicate("never", []constraint.Class{constraint.ClassJoin}, nil, "false")
	grp := buildGroup(t, acl.ACL{{Kind: acl.Allow, Principal: user, Mask: acl.Join}}, never)

	a := New(principal.NewSubject(user), acl.Join, grp).ApplyConstraints(constraint.ClassJoin)
	result := a.Execute()

	if len(result.UnsatisfiedConstraints) != 1 {
		t.Fatalf("expected 1 unsatisfied constraint, got %d", len(result.UnsatisfiedConstraints))
	}
	err := result.VerifyAccessAllowed(Default)
	if reason, _ := ferrors.ReasonOf(err); reason != ferrors.ReasonConstraintUnsatisfied {
		t.Fatalf("expected ConstraintUnsatisfied, got %v (%v)", err, reason)
	}
}

func TestSetInput_UnknownVariableErrors(t *testing.T) {
	user := principal.User("u@x.test")
	grp := buildGroup(t, acl.ACL{{Kind: acl.Allow, Principal: user, Mask: acl.Join}})
	a := New(principal.NewSubject(user), acl.Join, grp).ApplyConstraints(constraint.ClassJoin)
	if err := a.SetInput("does-not-exist", "1"); err == nil {
		t.Fatal("expected error for unknown input")
	}
}

