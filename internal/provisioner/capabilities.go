// Package provisioner implements the idempotent group lifecycle, membership
// management, and IAM binding reconciliation that back a JIT group
// (spec.md §4.7). It depends only on the CloudIdentity and ResourceManager
// capability interfaces below — concrete clients are named external
// collaborators out of scope for this module (spec.md §1).
package provisioner

import (
	"context"
	"time"
)

// GroupKey is the opaque resource identifier a cloud-identity provider
// returns for a group, distinct from its email address.
type GroupKey string

// GroupType selects the kind of cloud-identity group to create.
type GroupType string

const SecurityGroup GroupType = "security"

// AccessProfile controls the cloud-identity access profile assigned to a
// newly created group (spec.md §9 design note on GkeCompatible vs
// Restricted).
type AccessProfile string

const (
	AccessProfileRestricted    AccessProfile = "restricted"
	AccessProfileGkeCompatible AccessProfile = "gke-compatible"
)

// GroupInfo is what a cloud-identity provider reports back about a group.
type GroupInfo struct {
	Key         GroupKey
	Email       string
	Description string
}

// CloudIdentity is the capability interface over the cloud identity group
// provider (spec.md §6). A ResourceNotFound-shaped error (see
// internal/ferrors) signals absence, not failure.
type CloudIdentity interface {
	GetGroup(ctx context.Context, email string) (*GroupInfo, error)
	LookupGroup(ctx context.Context, email string) (GroupKey, error)
	CreateGroup(ctx context.Context, email string, groupType GroupType, description, ownerEmail string, profile AccessProfile) (GroupKey, error)
	PatchGroup(ctx context.Context, key GroupKey, description string) error
	AddMembership(ctx context.Context, key GroupKey, userEmail string, expiry time.Time) error
	AddPermanentMembership(ctx context.Context, hostKey GroupKey, memberEmail string) error
	DeleteMembership(ctx context.Context, key GroupKey, memberEmail string) error
	SearchGroupsByPrefix(ctx context.Context, prefix string, expandMembers bool) ([]GroupInfo, error)
}

// IamPolicy is the read-modify-write unit a ResourceManager transform
// operates over.
type IamPolicy struct {
	Bindings []IamBinding
}

// IamBinding is one (role, condition) -> members binding within a resource's
// IAM policy.
type IamBinding struct {
	Role      string
	Condition string
	Members   []string
}

// IamPolicyTransform maps a resource's current IAM policy to its desired
// next state.
type IamPolicyTransform func(current *IamPolicy) (*IamPolicy, error)

// ResourceManager is the capability interface over the cloud resource
// manager (spec.md §6). Implementations must apply transform with
// read-modify-write semantics and retry on optimistic-concurrency conflicts
// at the transport layer; the core issues exactly one logical transform per
// resource per call.
type ResourceManager interface {
	ModifyIamPolicy(ctx context.Context, resourceID string, transform IamPolicyTransform, attribution string) error
}
