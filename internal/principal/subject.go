package principal

// Subject is the request-scoped set of principals an authenticated end user
// acts as: the end user themselves plus every group they belong to, direct or
// transitive. A Subject is built once per request and never mutated
// afterwards — callers must treat it as immutable for the request's
// lifetime.
type Subject struct {
	user       Principal
	principals map[Principal]struct{}
}

// NewSubject builds a Subject for the given end user, resolved against the
// set of group/service-account principals they belong to. Membership
// resolution (direct + transitive) is the caller's responsibility (an
// external collaborator per spec.md §3); Subject only stores the result.
func NewSubject(user Principal, memberOf ...Principal) *Subject {
	principals := make(map[Principal]struct{}, len(memberOf)+1)
	principals[user] = struct{}{}
	for _, p := range memberOf {
		principals[p] = struct{}{}
	}
	return &Subject{user: user, principals: principals}
}

// User returns the end-user principal this Subject was built for.
func (s *Subject) User() Principal { return s.user }

// Has reports whether the subject carries the given principal, either as
// the end user itself or as one of its resolved memberships.
func (s *Subject) Has(p Principal) bool {
	_, ok := s.principals[p]
	return ok
}

// Principals returns every principal the subject carries. The returned slice
// is a fresh copy; mutating it has no effect on the Subject.
func (s *Subject) Principals() []Principal {
	out := make([]Principal, 0, len(s.principals))
	for p := range s.principals {
		out = append(out, p)
	}
	return out
}
