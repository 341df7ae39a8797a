package router // package router defines how devapi HTTP routes are registered

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/rental-portal/internal/handler"    // handlers that implement the REST contract
	"github.com/iliyamo/rental-portal/internal/middleware" // JWT authentication and user type enforcement
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/healthz", h.Health)
}

// RegisterAuth registers the login endpoint.  throttle guards it against
// credential stuffing; pass a pass-through middleware to disable.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, throttle echo.MiddlewareFunc) {
	g := e.Group("/api/auth")
	// POST /api/auth/login -> {token, user}
	g.POST("/login", a.Login, throttle)
}

// RegisterAccess registers the role/permission graph and the admin console
// CRUD.  Every route requires a valid access token.  Only the per-user role
// lookup is open to non-admins, and the handler limits it to the caller's
// own id.
func RegisterAccess(e *echo.Echo, h *handler.AccessHandler, jwtSecret string) {
	api := e.Group("/api", middleware.JWTAuth(jwtSecret))

	// Non-admin path of the portal's permission derivation.
	api.GET("/roles/user/:id", h.RolesForUser)

	admin := middleware.RequireAdmin()

	// ---- Permissions ----
	api.GET("/permissions", h.ListPermissions, admin)
	api.POST("/permissions", h.CreatePermission, admin)
	api.PUT("/permissions/:id", h.UpdatePermission, admin)
	api.DELETE("/permissions/:id", h.DeletePermission, admin)

	// ---- Roles ----
	api.GET("/roles", h.ListRoles, admin)
	api.POST("/roles", h.CreateRole, admin)
	api.PUT("/roles/:id", h.UpdateRole, admin)
	api.DELETE("/roles/:id", h.DeleteRole, admin)
	api.PUT("/roles/:id/permissions", h.SetRolePermissions, admin)

	// ---- Users ----
	api.GET("/users", h.ListUsers, admin)
}
