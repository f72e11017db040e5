package join

import (
	"context"
	"time"

	"go.miloapis.com/jitgroups/internal/access"
	"go.miloapis.com/jitgroups/internal/acl"
	"go.miloapis.com/jitgroups/internal/constraint"
	"go.miloapis.com/jitgroups/internal/ferrors"
	"go.miloapis.com/jitgroups/internal/observability"
	"go.miloapis.com/jitgroups/internal/policy"
	"go.miloapis.com/jitgroups/internal/principal"
	"go.miloapis.com/jitgroups/internal/provisioner"
)

// ApprovalOperation is the inverse entry point of JoinOperation: an approver
// consuming a Proposal on behalf of the principal that proposed it.
type ApprovalOperation struct {
	approver    *principal.Subject
	group       *policy.GroupPolicy
	provisioner *provisioner.Provisioner
	proposal    *Proposal

	analysis     *access.Analysis // APPROVE constraints, evaluated against approver
	joinAnalysis *access.Analysis // JOIN constraints, populated from proposal.Input
	now          func() time.Time
}

// NewApproval reconstructs an ApprovalOperation from a Proposal. Preconditions
// (spec.md §4.6): the proposal's group must match group's id, the proposal
// must not have expired, and the proposal's recorded input must satisfy every
// variable the joining user's JOIN constraints declare.
func NewApproval(approver *principal.Subject, group *policy.GroupPolicy, p *provisioner.Provisioner, proposal *Proposal) (*ApprovalOperation, error) {
	return newApprovalAt(approver, group, p, proposal, time.Now())
}

func newApprovalAt(approver *principal.Subject, group *policy.GroupPolicy, p *provisioner.Provisioner, proposal *Proposal, now time.Time) (*ApprovalOperation, error) {
	if !proposal.Group.Equal(group.ID()) {
		return nil, ferrors.InvalidProposal("proposal was issued for a different group")
	}
	if proposal.Expired(now) {
		return nil, ferrors.InvalidProposal("proposal has expired")
	}

	joinAnalysis := access.New(principal.NewSubject(proposal.User), acl.Join, group).
		ApplyConstraints(constraint.ClassJoin)
	for _, v := range joinAnalysis.Input() {
		value, ok := proposal.Input[v.Name]
		if !ok {
			return nil, ferrors.InvalidProposal("proposal is missing required input " + v.Name)
		}
		if err := joinAnalysis.SetInput(v.Name, value); err != nil {
			return nil, ferrors.InvalidProposal("proposal input " + v.Name + ": " + err.Error())
		}
	}

	requiredMask := acl.ApproveOthers
	if proposal.User.Equal(approver.User()) {
		requiredMask = acl.ApproveSelf
	}
	analysis := access.New(approver, requiredMask, group).ApplyConstraints(constraint.ClassApprove)

	return &ApprovalOperation{
		approver:     approver,
		group:        group,
		provisioner:  p,
		proposal:     proposal,
		analysis:     analysis,
		joinAnalysis: joinAnalysis,
		now:          func() time.Time { return now },
	}, nil
}

// Execute runs the APPROVE-constraint analysis against the approver, then —
// on success — provisions the membership for the joining user using the
// expiry computed from the joining user's JOIN-constraint inputs. It invokes
// proposal.OnCompleted on success.
func (a *ApprovalOperation) Execute(ctx context.Context) (membership *provisioner.Membership, err error) {
	ctx, span := observability.StartSpan(ctx, "join.ApprovalOperation.Execute")
	defer func() { observability.EndWithError(span, err) }()

	result := a.analysis.Execute()
	if err := result.VerifyAccessAllowed(access.Default); err != nil {
		observability.ApprovalOutcomesTotal.WithLabelValues("denied").Inc()
		return nil, err
	}

	duration, err := expiryDuration(a.joinAnalysis)
	if err != nil {
		observability.ApprovalOutcomesTotal.WithLabelValues("denied").Inc()
		return nil, err
	}

	membership, err = a.provisioner.Provision(ctx, a.group, a.proposal.User.Email, a.now().Add(duration))
	if err != nil {
		observability.ApprovalOutcomesTotal.WithLabelValues("denied").Inc()
		return nil, err
	}

	if a.proposal.OnCompleted != nil {
		a.proposal.OnCompleted(a)
	}
	observability.ApprovalOutcomesTotal.WithLabelValues("granted").Inc()
	return membership, nil
}
