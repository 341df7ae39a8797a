package gate

import "github.com/iliyamo/rental-portal/internal/model"

// Dashboard identifies one of the role dashboards.
type Dashboard struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

var (
	TenantDashboard = Dashboard{Name: "tenant", Path: "/dashboard/tenant"}
	OwnerDashboard  = Dashboard{Name: "owner", Path: "/dashboard/owner"}
	AdminDashboard  = Dashboard{Name: "admin", Path: "/dashboard/admin"}
)

// DashboardFor maps a user type to its landing dashboard.
func DashboardFor(t model.UserType) (Dashboard, bool) {
	switch {
	case t.IsAdmin():
		return AdminDashboard, true
	case t == model.UserTypePropertyListing:
		return OwnerDashboard, true
	case t == model.UserTypePropertySearching:
		return TenantDashboard, true
	}
	return Dashboard{}, false
}

// NavItem is one sidebar entry.
type NavItem struct {
	Label string      `json:"label"`
	Path  string      `json:"path"`
	Need  Requirement `json:"-"`
}

var sidebars = map[string][]NavItem{
	TenantDashboard.Name: {
		{Label: "Overview", Path: "/dashboard/tenant"},
		{Label: "Browse properties", Path: "/properties", Need: Perm(model.ModuleProperties, model.ActionView)},
		{Label: "Wishlist", Path: "/dashboard/tenant/wishlist", Need: Perm(model.ModuleWishlist, model.ActionView)},
		{Label: "Applications", Path: "/dashboard/tenant/applications", Need: Perm(model.ModuleApplications, model.ActionView)},
		{Label: "Messages", Path: "/dashboard/tenant/messages", Need: Perm(model.ModuleMessages, model.ActionView)},
		{Label: "Reviews", Path: "/dashboard/tenant/reviews", Need: Perm(model.ModuleReviews, model.ActionCreate)},
	},
	OwnerDashboard.Name: {
		{Label: "Overview", Path: "/dashboard/owner"},
		{Label: "My properties", Path: "/dashboard/owner/properties", Need: Perm(model.ModuleProperties, model.ActionView)},
		{Label: "Add property", Path: "/dashboard/owner/properties/new", Need: Perm(model.ModuleProperties, model.ActionCreate)},
		{Label: "Applications", Path: "/dashboard/owner/applications", Need: Perm(model.ModuleApplications, model.ActionView)},
		{Label: "Messages", Path: "/dashboard/owner/messages", Need: Perm(model.ModuleMessages, model.ActionView)},
		{Label: "Payments", Path: "/dashboard/owner/payments", Need: Perm(model.ModulePayments, model.ActionView)},
	},
	AdminDashboard.Name: {
		{Label: "Overview", Path: "/dashboard/admin"},
		{Label: "Users", Path: "/dashboard/admin/users", Need: Perm(model.ModuleUsers, model.ActionView)},
		{Label: "Roles", Path: "/dashboard/admin/roles", Need: Perm(model.ModuleRoles, model.ActionView)},
		{Label: "Permissions", Path: "/dashboard/admin/permissions", Need: Perm(model.ModulePermissions, model.ActionView)},
		{Label: "Property approvals", Path: "/dashboard/admin/approvals", Need: Perm(model.ModuleProperties, model.ActionApprove)},
	},
}

// Sidebar returns the entries of the current user's dashboard that the
// session may see.  Nil when nobody is logged in.
func (g *Gate) Sidebar() []NavItem {
	if !g.oracle.Authenticated() {
		return nil
	}
	d, ok := DashboardFor(g.oracle.UserType())
	if !ok {
		return nil
	}
	var out []NavItem
	for _, item := range sidebars[d.Name] {
		if g.Check("nav", item.Need) {
			out = append(out, item)
		}
	}
	return out
}
