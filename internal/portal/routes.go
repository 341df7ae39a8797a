package portal

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rental-portal/internal/model"
)

// Register mounts every portal route on e.  metricsHandler may be nil.
func Register(e *echo.Echo, h *Handler, metricsHandler http.Handler) {
	e.GET("/healthz", Health)
	if metricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(metricsHandler))
	}

	// ---- session ----
	s := e.Group("/v1/session")
	s.POST("/login", h.Login)
	s.POST("/logout", h.Logout)
	s.GET("", h.State)
	s.GET("/can", h.Can)
	s.POST("/permissions/refresh", h.RefreshPermissions, h.Gate.RequireAuth())

	// ---- navigation ----
	e.GET("/v1/navigation", h.Navigation, h.Gate.RequireAuth())
	e.GET("/v1/dashboard", h.Dashboard, h.Gate.RequireAuth())

	// ---- admin console ----
	g := h.Gate
	a := e.Group("/v1/admin", g.RequireAuth())

	a.GET("/permissions", h.ListPermissions, g.RequirePermission(model.ModulePermissions, model.ActionView))
	a.POST("/permissions", h.CreatePermission, g.RequirePermission(model.ModulePermissions, model.ActionCreate))
	a.PUT("/permissions/:id", h.UpdatePermission, g.RequirePermission(model.ModulePermissions, model.ActionEdit))
	a.DELETE("/permissions/:id", h.DeletePermission, g.RequirePermission(model.ModulePermissions, model.ActionDelete))

	a.GET("/roles", h.ListRoles, g.RequirePermission(model.ModuleRoles, model.ActionView))
	a.POST("/roles", h.CreateRole, g.RequirePermission(model.ModuleRoles, model.ActionCreate))
	a.PUT("/roles/:id", h.UpdateRole, g.RequirePermission(model.ModuleRoles, model.ActionEdit))
	a.DELETE("/roles/:id", h.DeleteRole, g.RequirePermission(model.ModuleRoles, model.ActionDelete))
	a.PUT("/roles/:id/permissions", h.SetRolePermissions, g.RequirePermission(model.ModuleRoles, model.ActionEdit))

	a.GET("/users", h.ListUsers, g.RequirePermission(model.ModuleUsers, model.ActionView))
}
