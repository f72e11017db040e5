// Package join implements the join/approval state machine (spec.md §4.6):
// self-approval fast path, proposal issuance for peer approval, and approval
// consumption — each backed by an access.Analysis and driving the
// Provisioner to issue the resulting membership.
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

// selfApproveMask is the mask a subject must hold to run a join as its own
// approver.
const selfApproveMask = acl.Join | acl.ApproveSelf

// JoinOperation is a single-shot attempt by subject to join group. Whether it
// can complete without a separate approval step is fixed at construction
// time, per spec.md §4.6's state diagram.
type JoinOperation struct {
	subject          *principal.Subject
	group            *policy.GroupPolicy
	provisioner      *provisioner.Provisioner
	requiresApproval bool
	analysis         *access.Analysis
	inputs           map[string]string
	now              func() time.Time
}

// NewJoin builds a JoinOperation for subject against group. If subject
// satisfies the ACL for {JOIN, APPROVE_SELF} the operation is tagged as
// self-approving and evaluates the union of JOIN and APPROVE constraints;
// otherwise it is tagged as requiring approval and evaluates only JOIN
// constraints.
func NewJoin(subject *principal.Subject, group *policy.GroupPolicy, p *provisioner.Provisioner) *JoinOperation {
	selfApprove := group.EffectiveACL().IsAccessAllowed(subject, selfApproveMask)

	op := &JoinOperation{
		subject:          subject,
		group:            group,
		provisioner:      p,
		requiresApproval: !selfApprove,
		inputs:           make(map[string]string),
		now:              time.Now,
	}

	if selfApprove {
		op.analysis = access.New(subject, selfApproveMask, group).
			ApplyConstraints(constraint.ClassJoin).
			ApplyConstraints(constraint.ClassApprove)
	} else {
		op.analysis = access.New(subject, acl.Join, group).
			ApplyConstraints(constraint.ClassJoin)
	}
	return op
}

// RequiresApproval reports whether this join cannot complete without a
// separate ApprovalOperation.
func (j *JoinOperation) RequiresApproval() bool { return j.requiresApproval }

// Input returns the union of typed input variables this operation's
// constraints declare.
func (j *JoinOperation) Input() []constraint.VariableSpec { return j.analysis.Input() }

// SetInput binds a named input both to the underlying analysis and to the
// snapshot a subsequent Propose captures.
func (j *JoinOperation) SetInput(name, value string) error {
	if err := j.analysis.SetInput(name, value); err != nil {
		return err
	}
	j.inputs[name] = value
	return nil
}

// Execute runs the join to completion: analysis, expiry derivation, then
// Provisioner.Provision. It fails with AccessDenied if this join requires a
// separate approval.
func (j *JoinOperation) Execute(ctx context.Context) (m *provisioner.Membership, err error) {
	ctx, span := observability.StartSpan(ctx, "join.Execute")
	defer func() { observability.EndWithError(span, err) }()

	if j.requiresApproval {
		observability.JoinAttemptsTotal.WithLabelValues("denied").Inc()
		return nil, ferrors.AccessDenied("this join requires approval from another principal")
	}

	result := j.analysis.Execute()
	if err := result.VerifyAccessAllowed(access.Default); err != nil {
		observability.JoinAttemptsTotal.WithLabelValues("denied").Inc()
		return nil, err
	}

	duration, err := expiryDuration(j.analysis)
	if err != nil {
		observability.JoinAttemptsTotal.WithLabelValues("denied").Inc()
		return nil, err
	}

	m, err = j.provisioner.Provision(ctx, j.group, j.subject.User().Email, j.now().Add(duration))
	if err != nil {
		observability.JoinAttemptsTotal.WithLabelValues("denied").Inc()
		return nil, err
	}
	observability.JoinAttemptsTotal.WithLabelValues("granted").Inc()
	return m, nil
}

// Propose issues a Proposal for peer approval. It requires this join to be
// tagged as requiring approval; otherwise it fails with IllegalState. expiry
// is the instant after which the proposal can no longer be consumed.
func (j *JoinOperation) Propose(expiry time.Time, onCompleted func(*ApprovalOperation)) (*Proposal, error) {
	if !j.requiresApproval {
		return nil, ferrors.IllegalState("this join does not require a proposal: it can self-approve")
	}

	result := j.analysis.Execute()
	if err := result.VerifyAccessAllowed(access.Default); err != nil {
		return nil, err
	}

	recipients := approversExcluding(j.group.EffectiveACL(), j.subject.User())
	if len(recipients) == 0 {
		return nil, ferrors.NoApproversAvailable("no principal holds APPROVE_OTHERS on this group")
	}

	snapshot := make(map[string]string, len(j.inputs))
	for k, v := range j.inputs {
		snapshot[k] = v
	}

	observability.JoinAttemptsTotal.WithLabelValues("proposed").Inc()
	return &Proposal{
		ID:          newProposalID(),
		User:        j.subject.User(),
		Group:       j.group.ID(),
		Recipients:  recipients,
		Expiry:      expiry,
		Input:       snapshot,
		OnCompleted: onCompleted,
	}, nil
}

// expiryDuration scans an analysis's applied entries for the first check
// that resolves a concrete Duration (i.e. originates from an Expiry
// constraint). No such entry means the join has no JOIN-class expiry
// constraint, which fails with MissingExpiryConstraint.
func expiryDuration(a *access.Analysis) (time.Duration, error) {
	for _, e := range a.Entries() {
		ec, ok := e.Check.(constraint.ExpiryCheck)
		if !ok {
			continue
		}
		d, err := ec.Duration()
		if err != nil {
			return 0, ferrors.InvalidArgument(err.Error())
		}
		return d, nil
	}
	return 0, ferrors.MissingExpiryConstraint("group has no JOIN expiry constraint")
}

// approversExcluding enumerates every principal named in a's entries that
// the ACL itself grants APPROVE_OTHERS to, excluding requester. Only
// principals referenced by an entry can possibly gain access, so the search
// space is exactly those.
func approversExcluding(a acl.ACL, requester principal.Principal) []principal.Principal {
	seen := make(map[principal.Principal]bool)
	var out []principal.Principal
	for _, entry := range a {
		if seen[entry.Principal] || entry.Principal.Equal(requester) {
			continue
		}
		seen[entry.Principal] = true
		candidate := principal.NewSubject(entry.Principal)
		if a.IsAccessAllowed(candidate, acl.ApproveOthers) {
			out = append(out, entry.Principal)
		}
	}
	return out
}
