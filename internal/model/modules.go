package model

// Modules of the marketplace, the first half of a permission key.
const (
	ModuleProperties   = "properties"
	ModuleWishlist     = "wishlist"
	ModuleApplications = "applications"
	ModuleMessages     = "messages"
	ModulePayments     = "payments"
	ModuleReviews      = "reviews"
	ModuleUsers        = "users"
	ModuleRoles        = "roles"
	ModulePermissions  = "permissions"
)

// Actions, the second half of a permission key.
const (
	ActionView    = "view"
	ActionCreate  = "create"
	ActionEdit    = "edit"
	ActionDelete  = "delete"
	ActionApprove = "approve"
)
