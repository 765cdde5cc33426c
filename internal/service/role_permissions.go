package service

import "sort"

// RoleTable is the declarative role→permission mapping, loaded from
// configuration at startup so it can be audited and tested apart from the
// authorization logic that consumes it. Roles are strictly additive flat
// sets; nothing is computed recursively.
type RoleTable struct {
	roles map[string][]string
}

// NewRoleTable builds a RoleTable from the configured mapping.
func NewRoleTable(roles map[string][]string) *RoleTable {
	copied := make(map[string][]string, len(roles))
	for role, perms := range roles {
		copied[role] = append([]string(nil), perms...)
	}
	return &RoleTable{roles: copied}
}

// PermissionsFor returns the deduplicated, sorted union of the permissions
// implied by the given roles. Unknown roles contribute nothing.
func (t *RoleTable) PermissionsFor(roles []string) []string {
	set := make(map[string]struct{})
	for _, role := range roles {
		for _, perm := range t.roles[role] {
			set[perm] = struct{}{}
		}
	}
	return sortedSet(set)
}

// Known reports whether the role exists in the table.
func (t *RoleTable) Known(role string) bool {
	_, ok := t.roles[role]
	return ok
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
