package provisioner

import (
	"context"
	"log/slog"

	"github.com/hashicorp/go-multierror"
	"go.miloapis.com/jitgroups/internal/ferrors"
	"go.miloapis.com/jitgroups/internal/policy"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func memberOf(groupEmail string) string { return "group:" + groupEmail }

// anyCode reports whether err — possibly a *multierror.Error aggregating one
// failure per resource — carries the given gRPC code on any of its
// constituents. multierror.Error does not implement GRPCStatus, so
// status.Code alone would report codes.Unknown for every aggregated failure.
func anyCode(err error, code codes.Code) bool {
	merr, ok := err.(*multierror.Error)
	if !ok {
		return status.Code(err) == code
	}
	for _, e := range merr.WrappedErrors() {
		if status.Code(e) == code {
			return true
		}
	}
	return false
}

// ProvisionAccess reconciles a group's IAM bindings against its desired
// state (spec.md §4.7.2). Resource updates are submitted in parallel via
// the configured Executor; the checksum is written only if every resource
// update succeeded, preserving it as the sole drift signal.
func (p *Provisioner) ProvisionAccess(ctx context.Context, group *policy.GroupPolicy) error {
	email := p.Mapping.CloudIdentityGroupId(group.ID())

	info, err := p.Identity.GetGroup(ctx, email)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return ferrors.ResourceNotFound("group " + email + " is not provisioned")
		}
		return ferrors.IO("loading group description", err)
	}

	desired := DesiredBindings(group)
	desiredChecksum := Checksum(desired)
	userText, currentChecksum := ParseDescription(info.Description)

	if desiredChecksum == currentChecksum && len(desired) > 0 {
		return nil
	}

	byResource := make(map[string][]DesiredBinding)
	for _, b := range desired {
		byResource[b.ResourceID] = append(byResource[b.ResourceID], b)
	}

	fns := make([]func() error, 0, len(byResource))
	for resourceID, bindings := range byResource {
		resourceID, bindings := resourceID, bindings
		fns = append(fns, func() error {
			return p.Resources.ModifyIamPolicy(ctx, resourceID, iamTransform(email, bindings), "jitgroups:"+group.ID().String())
		})
	}

	if err := p.executor().Run(fns); err != nil {
		p.logger().ErrorContext(ctx, "failed to reconcile IAM bindings for group",
			slog.String("group", group.ID().String()), slog.Any("error", err))
		if anyCode(err, codes.PermissionDenied) {
			return ferrors.AccessDenied("provider denied IAM policy update: " + err.Error())
		}
		return ferrors.IO("reconciling IAM bindings", err)
	}

	newDescription := FormatDescription(userText, desiredChecksum)
	if err := p.Identity.PatchGroup(ctx, info.Key, newDescription); err != nil {
		return ferrors.IO("patching group description checksum", err)
	}
	return nil
}

// iamTransform builds the read-modify-write function passed to
// ResourceManager.ModifyIamPolicy for one resource: every member binding
// attributed to groupEmail is dropped across all existing bindings
// (regardless of role), then one binding per (role, condition) pair in
// bindings is appended with members=[group:<groupEmail>].
func iamTransform(groupEmail string, bindings []DesiredBinding) IamPolicyTransform {
	member := memberOf(groupEmail)
	return func(current *IamPolicy) (*IamPolicy, error) {
		next := &IamPolicy{}
		for _, b := range current.Bindings {
			filtered := make([]string, 0, len(b.Members))
			for _, m := range b.Members {
				if m != member {
					filtered = append(filtered, m)
				}
			}
			if len(filtered) > 0 {
				next.Bindings = append(next.Bindings, IamBinding{Role: b.Role, Condition: b.Condition, Members: filtered})
			}
		}
		for _, b := range bindings {
			next.Bindings = append(next.Bindings, IamBinding{Role: b.Role, Condition: b.Condition, Members: []string{member}})
		}
		return next, nil
	}
}
