package join

import (
	"context"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"go.miloapis.com/jitgroups/internal/provisioner"
)

// fakeIdentity is a minimal in-memory CloudIdentity sufficient to exercise
// the join state machine's provisioning calls without a real client.
type fakeIdentity struct {
	mu      sync.Mutex
	groups  map[string]*fakeGroup
	nextKey int
}

type fakeGroup struct {
	key         provisioner.GroupKey
	description string
	members     map[string]time.Time
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{groups: make(map[string]*fakeGroup)}
}

func (f *fakeIdentity) GetGroup(ctx context.Context, email string) (*provisioner.GroupInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[email]
	if !ok {
		return nil, status.Error(codes.NotFound, "not found")
	}
	return &provisioner.GroupInfo{Key: g.key, Email: email, Description: g.description}, nil
}

func (f *fakeIdentity) LookupGroup(ctx context.Context, email string) (provisioner.GroupKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[email]
	if !ok {
		return "", status.Error(codes.NotFound, "not found")
	}
	return g.key, nil
}

func (f *fakeIdentity) CreateGroup(ctx context.Context, email string, groupType provisioner.GroupType, description, ownerEmail string, profile provisioner.AccessProfile) (provisioner.GroupKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.groups[email]; ok {
		return "", status.Error(codes.AlreadyExists, "already exists")
	}
	f.nextKey++
	key := provisioner.GroupKey(email)
	f.groups[email] = &fakeGroup{key: key, description: description, members: map[string]time.Time{}}
	return key, nil
}

func (f *fakeIdentity) PatchGroup(ctx context.Context, key provisioner.GroupKey, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.groups {
		if g.key == key {
			g.description = description
			return nil
		}
	}
	return status.Error(codes.NotFound, "not found")
}

func (f *fakeIdentity) AddMembership(ctx context.Context, key provisioner.GroupKey, userEmail string, expiry time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.groups {
		if g.key == key {
			g.members[userEmail] = expiry
			return nil
		}
	}
	return status.Error(codes.NotFound, "not found")
}

func (f *fakeIdentity) AddPermanentMembership(ctx context.Context, hostKey provisioner.GroupKey, memberEmail string) error {
	return f.AddMembership(ctx, hostKey, memberEmail, time.Time{})
}

func (f *fakeIdentity) DeleteMembership(ctx context.Context, key provisioner.GroupKey, memberEmail string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.groups {
		if g.key == key {
			delete(g.members, memberEmail)
			return nil
		}
	}
	return status.Error(codes.NotFound, "not found")
}

func (f *fakeIdentity) SearchGroupsByPrefix(ctx context.Context, prefix string, expandMembers bool) ([]provisioner.GroupInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []provisioner.GroupInfo
	for email, g := range f.groups {
		if len(email) >= len(prefix) && email[:len(prefix)] == prefix {
			out = append(out, provisioner.GroupInfo{Key: g.key, Email: email, Description: g.description})
		}
	}
	return out, nil
}

// fakeResources is a no-op ResourceManager: the join state machine never
// calls ProvisionAccess directly (that is the reconciliation driver's job),
// but the capability must still be supplied to build a Provisioner.
type fakeResources struct{}

func (fakeResources) ModifyIamPolicy(ctx context.Context, resourceID string, transform provisioner.IamPolicyTransform, attribution string) error {
	return nil
}

func newTestProvisioner() *provisioner.Provisioner {
	return &provisioner.Provisioner{
		Identity:   newFakeIdentity(),
		Resources:  fakeResources{},
		Mapping:    provisioner.GroupMapping{Domain: "example.com"},
		OwnerEmail: "owner@example.com",
	}
}
