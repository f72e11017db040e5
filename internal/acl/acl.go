// Package acl implements the ordered allow/deny access-control list that
// gates every permission check in the broker (spec.md §3, §4.1).
package acl

import "go.miloapis.com/jitgroups/internal/principal"

// EntryKind distinguishes an allow entry from a deny entry.
type EntryKind string

const (
	Allow EntryKind = "allow"
	Deny  EntryKind = "deny"
)

// Entry is a single ACL rule: a kind, the principal it applies to, and the
// permission mask it grants or withholds.
type Entry struct {
	Kind      EntryKind
	Principal principal.Principal
	Mask      Permission
}

// ACL is an ordered sequence of entries. An empty ACL denies all access.
type ACL []Entry

// IsAccessAllowed walks entries in order. A deny entry whose principal
// matches any of subject's principals and whose mask intersects required
// produces immediate denial. Otherwise allowed bits accumulate from matching
// allow entries; access is granted iff the accumulated mask covers required.
//
// A zero required mask is never satisfied (there is nothing to grant), and an
// empty subject principal set never matches any entry.
func (a ACL) IsAccessAllowed(subject *principal.Subject, required Permission) bool {
	if required == 0 {
		return false
	}
	if subject == nil {
		return false
	}

	var allowed Permission
	for _, entry := range a {
		if !subject.Has(entry.Principal) {
			continue
		}
		switch entry.Kind {
		case Deny:
			if entry.Mask.Intersects(required) {
				return false
			}
		case Allow:
			allowed |= entry.Mask
		}
	}
	return allowed.Has(required)
}

// Concat returns a new ACL that is the root-to-leaf concatenation of parent
// followed by child, preserving the "first-match deny wins across the whole
// chain" ordering described in spec.md §9 (open question resolved in
// DESIGN.md: ancestor entries are evaluated before descendant entries).
func Concat(parent, child ACL) ACL {
	out := make(ACL, 0, len(parent)+len(child))
	out = append(out, parent...)
	out = append(out, child...)
	return out
}
