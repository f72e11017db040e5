package join

import (
	"time"

	"github.com/google/uuid"

	"go.miloapis.com/jitgroups/internal/policy"
	"go.miloapis.com/jitgroups/internal/principal"
)

// Proposal is the immutable record a JoinOperation.Propose issues when the
// requesting subject cannot self-approve: the set of recipients able to
// approve it, a snapshot of whatever input the requester already supplied,
// and the instant after which it can no longer be consumed (spec.md §3
// "Proposal").
//
// A Proposal carries no reference back to the JoinOperation that created it;
// everything ApprovalOperation needs to re-derive the join is reconstructed
// from Group, User, and Input. ID exists purely for correlating a proposal
// across logs and notifications sent to Recipients; it plays no role in
// Expired or in ApprovalOperation's reconstruction.
type Proposal struct {
	ID          string
	User        principal.Principal
	Group       policy.JitGroupId
	Recipients  []principal.Principal
	Expiry      time.Time
	Input       map[string]string
	OnCompleted func(*ApprovalOperation)
}

// newProposalID generates a fresh, unique proposal identifier.
func newProposalID() string { return uuid.NewString() }

// Expired reports whether the proposal can no longer be consumed as of now.
func (p *Proposal) Expired(now time.Time) bool {
	return !now.Before(p.Expiry)
}
