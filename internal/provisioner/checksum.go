package provisioner

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"sort"
	"strconv"

	"go.miloapis.com/jitgroups/internal/policy"
)

// DesiredBinding is the normalized shape of one IAM role binding a group's
// policy demands, derived from its IamRoleBinding privileges. Unknown
// privilege variants are ignored (spec.md §3 "Privilege").
type DesiredBinding struct {
	ResourceID  string
	Role        string
	Condition   string
	Description string
}

// DesiredBindings extracts the set of IAM role bindings a group's policy
// demands. Multiple (resource, role) pairs with distinct conditions are
// preserved as distinct bindings (spec.md §4.7.2 tie-break rule); a nil/""
// condition is a distinct variant from a non-empty one.
func DesiredBindings(group *policy.GroupPolicy) []DesiredBinding {
	var out []DesiredBinding
	seen := make(map[DesiredBinding]bool)
	for _, p := range group.Privileges() {
		binding, ok := p.(policy.IamRoleBinding)
		if !ok {
			continue
		}
		db := DesiredBinding{
			ResourceID:  binding.ResourceID,
			Role:        binding.Role,
			Condition:   binding.Condition,
			Description: binding.Description,
		}
		if seen[db] {
			continue
		}
		seen[db] = true
		out = append(out, db)
	}
	return out
}

// normalize returns bindings sorted by (resource, role, condition,
// description), the canonical order checksums are computed over.
func normalize(bindings []DesiredBinding) []DesiredBinding {
	out := make([]DesiredBinding, len(bindings))
	copy(out, bindings)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ResourceID != b.ResourceID {
			return a.ResourceID < b.ResourceID
		}
		if a.Role != b.Role {
			return a.Role < b.Role
		}
		if a.Condition != b.Condition {
			return a.Condition < b.Condition
		}
		return a.Description < b.Description
	})
	return out
}

// Checksum computes the 32-bit checksum of the normalized binding set
// (spec.md §4.7.2).
func Checksum(bindings []DesiredBinding) uint32 {
	h := fnv.New32a()
	for _, b := range normalize(bindings) {
		fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\x00", b.ResourceID, b.Role, b.Condition, b.Description)
	}
	return h.Sum32()
}

var descriptionSuffix = regexp.MustCompile(`\s*#([0-9a-f]{8})$`)

// FormatDescription appends the trailing "#<8-hex-checksum>" tag to
// userText, the sole persisted state the core owns on a cloud group
// (spec.md §6 "Persisted state layout").
func FormatDescription(userText string, checksum uint32) string {
	return fmt.Sprintf("%s #%08x", userText, checksum)
}

// ParseDescription strips and decodes the trailing checksum tag, if
// present. Absence of the suffix means "checksum zero" — the drift signal
// that forces a reconcile.
func ParseDescription(description string) (userText string, checksum uint32) {
	loc := descriptionSuffix.FindStringSubmatchIndex(description)
	if loc == nil {
		return description, 0
	}
	hexPart := description[loc[2]:loc[3]]
	n, err := strconv.ParseUint(hexPart, 16, 32)
	if err != nil {
		return description, 0
	}
	return description[:loc[0]], uint32(n)
}
