package session

import (
	"sort"

	"github.com/iliyamo/rental-portal/internal/model"
)

// ImplicitAllKey marks an admin index built after the catalog fetch failed.
// The oracle never consults it: admins bypass the lookup.  It only tells
// readers of State that the catalog is unknown.
const ImplicitAllKey = "all"

// PermissionIndex is the flattened allow-set of module_action keys.
// Presence means granted; there are no deny entries.
type PermissionIndex map[string]struct{}

// IndexFromPermissions flattens a permission list.  Entries missing a module
// or an action name no reachable surface and are dropped; Has answers false
// for a half-empty pair to match.
func IndexFromPermissions(perms []model.Permission) PermissionIndex {
	idx := make(PermissionIndex, len(perms))
	for _, p := range perms {
		if p.Module == "" || p.Action == "" {
			continue
		}
		idx[p.Key()] = struct{}{}
	}
	return idx
}

// IndexFromRoles is the union of every role's permissions.
func IndexFromRoles(roles []model.Role) PermissionIndex {
	idx := PermissionIndex{}
	for _, r := range roles {
		for k := range IndexFromPermissions(r.Permissions) {
			idx[k] = struct{}{}
		}
	}
	return idx
}

// AdminFallbackIndex is installed for an admin whose catalog fetch failed.
func AdminFallbackIndex() PermissionIndex {
	return PermissionIndex{ImplicitAllKey: {}}
}

func (idx PermissionIndex) Has(module, action string) bool {
	if module == "" || action == "" {
		return false
	}
	_, ok := idx[model.PermissionKey(module, action)]
	return ok
}

// Keys returns the keys sorted.
func (idx PermissionIndex) Keys() []string {
	out := make([]string, 0, len(idx))
	for k := range idx {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
