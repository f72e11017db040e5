package provisioner

import (
	"context"
	"log/slog"
	"time"

	"go.miloapis.com/jitgroups/internal/ferrors"
	"go.miloapis.com/jitgroups/internal/policy"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Membership is the issued, time-bounded record a successful join or
// approval produces (spec.md §3 "Principal membership (issued)").
type Membership struct {
	Group  policy.JitGroupId
	Expiry time.Time
}

// Provisioner drives the cloud group lifecycle, membership issuance, and IAM
// binding reconciliation described in spec.md §4.7. It is the sole owner of
// the group's description field (spec.md §6 "Persisted state layout").
type Provisioner struct {
	Identity  CloudIdentity
	Resources ResourceManager
	Mapping   GroupMapping
	Executor  Executor
	OwnerEmail string
	Logger    *slog.Logger
}

func (p *Provisioner) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

func (p *Provisioner) executor() Executor {
	if p.Executor != nil {
		return p.Executor
	}
	return GoroutineExecutor{}
}

// IsProvisioned reports whether the backing cloud group already exists.
func (p *Provisioner) IsProvisioned(ctx context.Context, group *policy.GroupPolicy) (bool, error) {
	email := p.Mapping.CloudIdentityGroupId(group.ID())
	_, err := p.Identity.GetGroup(ctx, email)
	if err == nil {
		return true, nil
	}
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	return false, ferrors.IO("checking group existence", err)
}

// Provision ensures the backing cloud group exists, adding a membership for
// user with the given expiry. Group creation supplies the policy's
// description and access profile only on first creation; an already-exists
// response is treated as success (idempotent). Order is deterministic: (1)
// ensure group exists, (2) add membership — IAM reconciliation is a
// separate, explicit step (spec.md §5).
func (p *Provisioner) Provision(ctx context.Context, group *policy.GroupPolicy, userEmail string, expiry time.Time) (*Membership, error) {
	key, err := p.ensureGroup(ctx, group)
	if err != nil {
		return nil, err
	}

	if err := p.Identity.AddMembership(ctx, key, userEmail, expiry); err != nil {
		if status.Code(err) == codes.PermissionDenied {
			p.logger().ErrorContext(ctx, "cloud identity provider denied membership grant",
				slog.String("group", group.ID().String()), slog.String("user", userEmail), slog.Any("error", err))
			return nil, ferrors.AccessDenied("provider denied membership grant: " + err.Error())
		}
		return nil, ferrors.IO("adding membership", err)
	}

	return &Membership{Group: group.ID(), Expiry: expiry}, nil
}

func (p *Provisioner) ensureGroup(ctx context.Context, group *policy.GroupPolicy) (GroupKey, error) {
	email := p.Mapping.CloudIdentityGroupId(group.ID())

	if info, err := p.Identity.GetGroup(ctx, email); err == nil {
		return info.Key, nil
	} else if status.Code(err) != codes.NotFound {
		return "", ferrors.IO("looking up group", err)
	}

	profile := AccessProfileRestricted
	if group.GkeEnabled() {
		profile = AccessProfileGkeCompatible
	}

	key, err := p.Identity.CreateGroup(ctx, email, SecurityGroup, group.Description(), p.OwnerEmail, profile)
	switch {
	case err == nil:
		return key, nil
	case status.Code(err) == codes.AlreadyExists:
		// Idempotent: someone else (or a retried call) won the race.
		key, lookupErr := p.Identity.LookupGroup(ctx, email)
		if lookupErr != nil {
			return "", ferrors.IO("looking up group after AlreadyExists", lookupErr)
		}
		return key, nil
	case status.Code(err) == codes.PermissionDenied:
		p.logger().ErrorContext(ctx, "cloud identity provider denied group creation",
			slog.String("group", group.ID().String()), slog.Any("error", err))
		return "", ferrors.AccessDenied("provider denied group creation: " + err.Error())
	default:
		return "", ferrors.IO("creating group", err)
	}
}

// ProvisionedGroups enumerates every cloud group whose email matches this
// environment's canonical prefix, parsing each to a JitGroupId and skipping
// malformed entries.
func (p *Provisioner) ProvisionedGroups(ctx context.Context, environment string) ([]policy.JitGroupId, error) {
	groups, err := p.Identity.SearchGroupsByPrefix(ctx, p.Mapping.Prefix(environment), false)
	if err != nil {
		return nil, ferrors.IO("searching provisioned groups", err)
	}

	out := make([]policy.JitGroupId, 0, len(groups))
	for _, g := range groups {
		id, err := p.Mapping.Parse(g.Email)
		if err != nil {
			p.logger().WarnContext(ctx, "skipping malformed provisioned group", slog.String("email", g.Email))
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

// Reconcile is the check-only entry point used by the reconciliation driver
// (spec.md §4.7.3): if the cloud group doesn't exist yet, it does nothing
// (it will be created lazily on first membership); otherwise it computes the
// desired IAM bindings and calls ProvisionAccess.
func (p *Provisioner) Reconcile(ctx context.Context, group *policy.GroupPolicy) error {
	provisioned, err := p.IsProvisioned(ctx, group)
	if err != nil {
		return err
	}
	if !provisioned {
		return nil
	}
	return p.ProvisionAccess(ctx, group)
}
