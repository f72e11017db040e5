package provisioner

import (
	"context"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeGroup struct {
	key         GroupKey
	description string
	members     map[string]time.Time
}

type fakeCloudIdentity struct {
	mu          sync.Mutex
	groups      map[string]*fakeGroup // keyed by email
	nextKey     int
	denyCreate  bool
	denyMembers bool
}

func newFakeCloudIdentity() *fakeCloudIdentity {
	return &fakeCloudIdentity{groups: make(map[string]*fakeGroup)}
}

func (f *fakeCloudIdentity) GetGroup(ctx context.Context, email string) (*GroupInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[email]
	if !ok {
		return nil, status.Error(codes.NotFound, "not found")
	}
	return &GroupInfo{Key: g.key, Email: email, Description: g.description}, nil
}

func (f *fakeCloudIdentity) LookupGroup(ctx context.Context, email string) (GroupKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[email]
	if !ok {
		return "", status.Error(codes.NotFound, "not found")
	}
	return g.key, nil
}

func (f *fakeCloudIdentity) CreateGroup(ctx context.Context, email string, groupType GroupType, description, ownerEmail string, profile AccessProfile) (GroupKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.denyCreate {
		return "", status.Error(codes.PermissionDenied, "denied")
	}
	if _, ok := f.groups[email]; ok {
		return "", status.Error(codes.AlreadyExists, "already exists")
	}
	f.nextKey++
	key := GroupKey(email)
	f.groups[email] = &fakeGroup{key: key, description: description, members: map[string]time.Time{}}
	return key, nil
}

func (f *fakeCloudIdentity) PatchGroup(ctx context.Context, key GroupKey, description string) error {
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

func (f *fakeCloudIdentity) AddMembership(ctx context.Context, key GroupKey, userEmail string, expiry time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.denyMembers {
		return status.Error(codes.PermissionDenied, "denied")
	}
	for _, g := range f.groups {
		if g.key == key {
			g.members[userEmail] = expiry
			return nil
		}
	}
	return status.Error(codes.NotFound, "not found")
}

func (f *fakeCloudIdentity) AddPermanentMembership(ctx context.Context, hostKey GroupKey, memberEmail string) error {
	return f.AddMembership(ctx, hostKey, memberEmail, time.Time{})
}

func (f *fakeCloudIdentity) DeleteMembership(ctx context.Context, key GroupKey, memberEmail string) error {
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

func (f *fakeCloudIdentity) SearchGroupsByPrefix(ctx context.Context, prefix string, expandMembers bool) ([]GroupInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []GroupInfo
	for email, g := range f.groups {
		if len(email) >= len(prefix) && email[:len(prefix)] == prefix {
			out = append(out, GroupInfo{Key: g.key, Email: email, Description: g.description})
		}
	}
	return out, nil
}

type resourcePolicy struct {
	mu       sync.Mutex
	policies map[string]*IamPolicy
	denyAll  bool
	denyIDs  map[string]bool
}

func newResourcePolicy() *resourcePolicy {
	return &resourcePolicy{policies: make(map[string]*IamPolicy)}
}

func (r *resourcePolicy) ModifyIamPolicy(ctx context.Context, resourceID string, transform IamPolicyTransform, attribution string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.denyAll || r.denyIDs[resourceID] {
		return status.Error(codes.PermissionDenied, "denied")
	}
	current, ok := r.policies[resourceID]
	if !ok {
		current = &IamPolicy{}
	}
	next, err := transform(current)
	if err != nil {
		return err
	}
	r.policies[resourceID] = next
	return nil
}
