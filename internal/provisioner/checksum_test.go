package provisioner

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"go.miloapis.com/jitgroups/internal/policy"
)

func TestDesiredBindings_DedupesIdenticalBindings(t *testing.T) {
	grp := testGroup(t,
		policy.IamRoleBinding{ResourceID: "projects/x", Role: "roles/viewer"},
		policy.IamRoleBinding{ResourceID: "projects/x", Role: "roles/viewer"}, // duplicate, dropped
		policy.IamRoleBinding{ResourceID: "projects/x", Role: "roles/editor", Condition: "request.time < timestamp('2030-01-01T00:00:00Z')"},
	)

	got := DesiredBindings(grp)
	want := []DesiredBinding{
		{ResourceID: "projects/x", Role: "roles/viewer"},
		{ResourceID: "projects/x", Role: "roles/editor", Condition: "request.time < timestamp('2030-01-01T00:00:00Z')"},
	}

	if diff := cmp.Diff(want, got, cmpopts.SortSlices(func(a, b DesiredBinding) bool {
		return a.Role < b.Role
	})); diff != "" {
		t.Fatalf("unexpected desired bindings (-want +got):\n%s", diff)
	}
}

func TestChecksum_OrderIndependent(t *testing.T) {
	a := []DesiredBinding{
		{ResourceID: "projects/x", Role: "roles/viewer"},
		{ResourceID: "projects/x", Role: "roles/editor"},
	}
	b := []DesiredBinding{
		{ResourceID: "projects/x", Role: "roles/editor"},
		{ResourceID: "projects/x", Role: "roles/viewer"},
	}
	if Checksum(a) != Checksum(b) {
		t.Fatal("expected checksum to be independent of input ordering")
	}
}

func TestChecksum_DiffersOnConditionChange(t *testing.T) {
	a := []DesiredBinding{{ResourceID: "projects/x", Role: "roles/viewer"}}
	b := []DesiredBinding{{ResourceID: "projects/x", Role: "roles/viewer", Condition: "request.time < timestamp('2030-01-01T00:00:00Z')"}}
	if Checksum(a) == Checksum(b) {
		t.Fatal("expected distinct conditions to produce distinct checksums")
	}
}
