// Package principal provides the identifier primitives that every access
// decision in the broker is built on: tagged principal references and the
// request-scoped subject that carries them.
package principal

import "fmt"

// Kind identifies which variant of principal a reference names.
type Kind string

const (
	EndUser        Kind = "user"
	Group          Kind = "group"
	ServiceAccount Kind = "serviceAccount"
)

// Principal is a tagged reference to an end user, a group, or a service
// account. Equality is by Kind and Email.
type Principal struct {
	Kind  Kind
	Email string
}

// New builds a Principal, validating that Kind is one of the known variants.
func New(kind Kind, email string) (Principal, error) {
	switch kind {
	case EndUser, Group, ServiceAccount:
	default:
		return Principal{}, fmt.Errorf("principal: unknown kind %q", kind)
	}
	if email == "" {
		return Principal{}, fmt.Errorf("principal: email must not be empty")
	}
	return Principal{Kind: kind, Email: email}, nil
}

func User(email string) Principal          { return Principal{Kind: EndUser, Email: email} }
func GroupPrincipal(email string) Principal { return Principal{Kind: Group, Email: email} }
func ServiceAccountPrincipal(email string) Principal {
	return Principal{Kind: ServiceAccount, Email: email}
}

// Equal reports whether two principals name the same kind and email.
func (p Principal) Equal(other Principal) bool {
	return p.Kind == other.Kind && p.Email == other.Email
}

func (p Principal) String() string {
	return fmt.Sprintf("%s:%s", p.Kind, p.Email)
}
