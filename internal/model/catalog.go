package model

// The default marketplace shared by the fixture backend and the devapi
// seeder.

func catalogPermission(module, action string, system bool) Permission {
	return Permission{Name: module + ":" + action, Module: module, Action: action, IsSystemPermission: system}
}

// SystemPermissions is the console catalog.  These entries cannot be
// changed or deleted.
func SystemPermissions() []Permission {
	var out []Permission
	for _, m := range []string{ModuleUsers, ModuleRoles, ModulePermissions} {
		for _, a := range []string{ActionView, ActionCreate, ActionEdit, ActionDelete} {
			if m == ModuleUsers && a == ActionCreate {
				continue // users register themselves
			}
			out = append(out, catalogPermission(m, a, true))
		}
	}
	return append(out, catalogPermission(ModuleProperties, ActionApprove, true))
}

// Role names seeded by default.
const (
	RoleTenant = "Tenant"
	RoleOwner  = "Owner"
)

// DefaultRoles returns the two system roles with their grants.
func DefaultRoles() []Role {
	return []Role{
		{
			Name:        RoleTenant,
			Description: "Searches listings, keeps a wishlist and applies",
			IsSystem:    true,
			Permissions: []Permission{
				catalogPermission(ModuleProperties, ActionView, false),
				catalogPermission(ModuleWishlist, ActionView, false),
				catalogPermission(ModuleWishlist, ActionEdit, false),
				catalogPermission(ModuleApplications, ActionView, false),
				catalogPermission(ModuleApplications, ActionCreate, false),
				catalogPermission(ModuleMessages, ActionView, false),
				catalogPermission(ModuleMessages, ActionCreate, false),
				catalogPermission(ModuleReviews, ActionCreate, false),
			},
		},
		{
			Name:        RoleOwner,
			Description: "Lists properties and handles applications",
			IsSystem:    true,
			Permissions: []Permission{
				catalogPermission(ModuleProperties, ActionView, false),
				catalogPermission(ModuleProperties, ActionCreate, false),
				catalogPermission(ModuleProperties, ActionEdit, false),
				catalogPermission(ModuleProperties, ActionDelete, false),
				catalogPermission(ModuleApplications, ActionView, false),
				catalogPermission(ModuleApplications, ActionApprove, false),
				catalogPermission(ModuleMessages, ActionView, false),
				catalogPermission(ModuleMessages, ActionCreate, false),
				catalogPermission(ModulePayments, ActionView, false),
			},
		},
	}
}

// SeedAccount is a default login and the role names it holds.
type SeedAccount struct {
	User  User
	Roles []string
}

// DefaultAccounts is one account per user type.
func DefaultAccounts() []SeedAccount {
	return []SeedAccount{
		{User: User{FirstName: "Ada", LastName: "Admin", Email: "admin@rental.test", UserType: UserTypeAdmin, Status: "active"}},
		{User: User{FirstName: "Omar", LastName: "Owner", Email: "owner@rental.test", UserType: UserTypePropertyListing, Status: "active"}, Roles: []string{RoleOwner}},
		{User: User{FirstName: "Tia", LastName: "Tenant", Email: "tenant@rental.test", UserType: UserTypePropertySearching, Status: "active"}, Roles: []string{RoleTenant}},
	}
}
