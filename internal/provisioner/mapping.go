package provisioner

import (
	"strings"

	"go.miloapis.com/jitgroups/internal/ferrors"
	"go.miloapis.com/jitgroups/internal/policy"
)

// GroupMapping derives a backing cloud-identity group email for a
// JitGroupId and parses it back. It is a pure function: no I/O.
type GroupMapping struct {
	Domain string
}

// CloudIdentityGroupId returns the deterministic cloud group email for id:
// "jit.<env>.<system>.<name>@<domain>".
func (m GroupMapping) CloudIdentityGroupId(id policy.JitGroupId) string {
	return "jit." + id.Environment + "." + id.System + "." + id.Name + "@" + m.Domain
}

// Prefix returns the canonical email prefix for every group provisioned
// under environment env, used by ProvisionedGroups to scope a search.
func (m GroupMapping) Prefix(environment string) string {
	return "jit." + environment + "."
}

// Parse reverses CloudIdentityGroupId. It accepts only addresses matching
// the "jit.<env>.<system>.<name>@<domain>" shape on the configured domain;
// anything else is rejected.
func (m GroupMapping) Parse(email string) (policy.JitGroupId, error) {
	at := strings.LastIndexByte(email, '@')
	if at < 0 || email[at+1:] != m.Domain {
		return policy.JitGroupId{}, ferrors.InvalidArgument("email does not belong to the configured domain")
	}
	local := email[:at]
	if !strings.HasPrefix(local, "jit.") {
		return policy.JitGroupId{}, ferrors.InvalidArgument("email is not a JIT group address")
	}
	parts := strings.SplitN(strings.TrimPrefix(local, "jit."), ".", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return policy.JitGroupId{}, ferrors.InvalidArgument("malformed JIT group address")
	}
	return policy.JitGroupId{Environment: parts[0], System: parts[1], Name: parts[2]}, nil
}
