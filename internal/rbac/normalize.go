package rbac

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var separatorRun = regexp.MustCompile(`[_\s]+`)

// canonical trims, lowercases and unifies "_" and whitespace runs into "-".
func canonical(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	// cases.Caser keeps state, so it is built per call.
	value = cases.Lower(language.Und).String(value)
	return separatorRun.ReplaceAllString(value, "-")
}

// NormalizeRole returns the membership form of a role slug.
func NormalizeRole(value string) Role {
	return Role(canonical(value))
}

// StorageRole converts a role to the underscore form stored in role columns.
func StorageRole(value string) string {
	return strings.ReplaceAll(canonical(value), "-", "_")
}

// NormalizePermission returns the membership form of a permission code.
func NormalizePermission(value string) string {
	return canonical(value)
}

// RoleSetKey builds the memoization key for a role list: normalized,
// de-duplicated, sorted and comma-joined. Empty roles are dropped.
func RoleSetKey(roles []Role) string {
	seen := make(map[Role]struct{}, len(roles))
	keys := make([]string, 0, len(roles))
	for _, role := range roles {
		role = NormalizeRole(string(role))
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		keys = append(keys, string(role))
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

// RoleSet is a normalized set of roles.
type RoleSet map[Role]struct{}

// NewRoleSet normalizes values into a set, skipping empty entries.
func NewRoleSet(values ...string) RoleSet {
	set := make(RoleSet, len(values))
	for _, v := range values {
		if role := NormalizeRole(v); role != "" {
			set[role] = struct{}{}
		}
	}
	return set
}

// Has reports membership after normalizing value.
func (s RoleSet) Has(value string) bool {
	_, ok := s[NormalizeRole(value)]
	return ok
}

// HasAny reports whether any of values is a member.
func (s RoleSet) HasAny(values []string) bool {
	for _, v := range values {
		if s.Has(v) {
			return true
		}
	}
	return false
}

// Sorted returns the members in lexical order.
func (s RoleSet) Sorted() []Role {
	out := make([]Role, 0, len(s))
	for role := range s {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PermissionSet is a normalized set of permission codes.
type PermissionSet map[string]struct{}

// NewPermissionSet normalizes codes into a set, skipping empty entries.
func NewPermissionSet(codes ...string) PermissionSet {
	set := make(PermissionSet, len(codes))
	for _, c := range codes {
		if code := NormalizePermission(c); code != "" {
			set[code] = struct{}{}
		}
	}
	return set
}

// Has reports membership after normalizing code.
func (s PermissionSet) Has(code string) bool {
	_, ok := s[NormalizePermission(code)]
	return ok
}

// HasWildcard reports whether the set holds any universal capability.
func (s PermissionSet) HasWildcard() bool {
	for _, c := range WildcardCapabilities() {
		if s.Has(string(c)) {
			return true
		}
	}
	return false
}

// Sorted returns the members in lexical order.
func (s PermissionSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for code := range s {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy.
func (s PermissionSet) Clone() PermissionSet {
	out := make(PermissionSet, len(s))
	for code := range s {
		out[code] = struct{}{}
	}
	return out
}
