package model

// Permission grants one action on one module.  IsSystemPermission marks
// entries the backend refuses to modify; the portal only hides the
// corresponding affordances.
type Permission struct {
	ID                 uint64 `json:"id"`
	Name               string `json:"name"`
	Module             string `json:"module"`
	Action             string `json:"action"`
	Description        string `json:"description,omitempty"`
	IsSystemPermission bool   `json:"isSystemPermission,omitempty"`
}

// Key returns the composite lookup key used by the permission index.
func (p Permission) Key() string { return PermissionKey(p.Module, p.Action) }

// Role is a named bundle of permissions.  Order of Permissions carries no
// meaning.
type Role struct {
	ID          uint64       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	IsSystem    bool         `json:"isSystemRole,omitempty"`
	Permissions []Permission `json:"permissions,omitempty"`
}

// Clone copies the role including its permission slice.
func (r Role) Clone() Role {
	out := r
	if r.Permissions != nil {
		out.Permissions = append([]Permission(nil), r.Permissions...)
	}
	return out
}

// PermissionKey builds the "module_action" key.  Module and action are used
// verbatim; the backend is the source of truth for their spelling.
func PermissionKey(module, action string) string {
	return module + "_" + action
}
