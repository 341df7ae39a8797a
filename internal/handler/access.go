// Package handler defines the devapi's HTTP handlers.  This file implements
// the role/permission graph the portal derives its permission index from,
// plus the admin console CRUD over permissions, roles and users.  System
// permissions and system roles are immutable; attempts to change them get
// 403 Forbidden.
package handler

import (
	"context"  // request-scoped timeouts for DB calls
	"errors"   // sentinel error matching
	"net/http" // status code constants
	"strconv"  // string-to-integer conversion
	"strings"  // trimming and case helpers
	"time"     // timeouts

	"github.com/labstack/echo/v4" // echo provides request/response handling
	"github.com/rs/zerolog"       // structured logging

	"github.com/iliyamo/rental-portal/internal/middleware" // caller identity helpers
	"github.com/iliyamo/rental-portal/internal/model"      // API payload types
	"github.com/iliyamo/rental-portal/internal/repository" // repository defines error types
)

// AccessHandler bundles the repositories behind /api/permissions,
// /api/roles and /api/users.
type AccessHandler struct {
	Perms *repository.PermissionRepo
	Roles *repository.RoleRepo
	Users *repository.UserRepo
	Log   zerolog.Logger
}

// NewAccessHandler constructs an AccessHandler and panics if any repository is nil.
func NewAccessHandler(p *repository.PermissionRepo, r *repository.RoleRepo, u *repository.UserRepo, log zerolog.Logger) *AccessHandler {
	if p == nil || r == nil || u == nil {
		panic("nil repository passed to NewAccessHandler")
	}
	return &AccessHandler{Perms: p, Roles: r, Users: u, Log: log}
}

// ----- DTOs -----

type permissionReq struct {
	Name        string `json:"name"`
	Module      string `json:"module"`
	Action      string `json:"action"`
	Description string `json:"description"`
}

type roleReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type rolePermissionsReq struct {
	PermissionIDs []uint64 `json:"permissionIds"`
}

func dbCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

func parseID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id != 0
}

// writeErr maps repository sentinels onto status codes.
func (h *AccessHandler) writeErr(c echo.Context, what string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": what + " not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "system " + what + " cannot be modified"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": what + " already exists"})
	default:
		h.Log.Error().Err(err).Str("entity", what).Str("path", c.Path()).Msg("query failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
}

func (r permissionReq) normalized() model.Permission {
	p := model.Permission{
		Name:        strings.TrimSpace(r.Name),
		Module:      strings.ToLower(strings.TrimSpace(r.Module)),
		Action:      strings.ToLower(strings.TrimSpace(r.Action)),
		Description: strings.TrimSpace(r.Description),
	}
	if p.Name == "" {
		p.Name = p.Module + ":" + p.Action
	}
	return p
}

// ---- permissions ----

// ListPermissions handles GET /api/permissions and returns the full catalog.
func (h *AccessHandler) ListPermissions(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	perms, err := h.Perms.List(ctx)
	if err != nil {
		return h.writeErr(c, "permission", err)
	}
	return c.JSON(http.StatusOK, perms)
}

// CreatePermission handles POST /api/permissions.
func (h *AccessHandler) CreatePermission(c echo.Context) error {
	var req permissionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	p := req.normalized()
	if p.Module == "" || p.Action == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "module and action are required"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	created, err := h.Perms.Create(ctx, p)
	if err != nil {
		return h.writeErr(c, "permission", err)
	}
	return c.JSON(http.StatusCreated, created)
}

// UpdatePermission handles PUT /api/permissions/:id.
func (h *AccessHandler) UpdatePermission(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req permissionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	p := req.normalized()
	if p.Module == "" || p.Action == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "module and action are required"})
	}
	p.ID = id
	ctx, cancel := dbCtx(c)
	defer cancel()
	updated, err := h.Perms.Update(ctx, p)
	if err != nil {
		return h.writeErr(c, "permission", err)
	}
	return c.JSON(http.StatusOK, updated)
}

// DeletePermission handles DELETE /api/permissions/:id.  Returns 204 on
// success, 404 if unknown and 403 for system permissions.
func (h *AccessHandler) DeletePermission(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Perms.Delete(ctx, id); err != nil {
		return h.writeErr(c, "permission", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ---- roles ----

// ListRoles handles GET /api/roles; each role carries its permissions.
func (h *AccessHandler) ListRoles(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	roles, err := h.Roles.List(ctx)
	if err != nil {
		return h.writeErr(c, "role", err)
	}
	return c.JSON(http.StatusOK, roles)
}

// RolesForUser handles GET /api/roles/user/:id.  Callers may read their own
// roles; admins may read anyone's.
func (h *AccessHandler) RolesForUser(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	caller, _ := middleware.CallerID(c)
	if caller != id && !middleware.IsAdminCaller(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	roles, err := h.Roles.ForUser(ctx, id)
	if err != nil {
		return h.writeErr(c, "role", err)
	}
	return c.JSON(http.StatusOK, roles)
}

// CreateRole handles POST /api/roles.  New roles start without permissions.
func (h *AccessHandler) CreateRole(c echo.Context) error {
	var req roleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	created, err := h.Roles.Create(ctx, model.Role{Name: name, Description: strings.TrimSpace(req.Description)})
	if err != nil {
		return h.writeErr(c, "role", err)
	}
	return c.JSON(http.StatusCreated, created)
}

// UpdateRole handles PUT /api/roles/:id.
func (h *AccessHandler) UpdateRole(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req roleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	updated, err := h.Roles.Update(ctx, model.Role{ID: id, Name: name, Description: strings.TrimSpace(req.Description)})
	if err != nil {
		return h.writeErr(c, "role", err)
	}
	return c.JSON(http.StatusOK, updated)
}

// DeleteRole handles DELETE /api/roles/:id.
func (h *AccessHandler) DeleteRole(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Roles.Delete(ctx, id); err != nil {
		return h.writeErr(c, "role", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SetRolePermissions handles PUT /api/roles/:id/permissions with body
// {"permissionIds":[...]} and replaces the role's grants.
func (h *AccessHandler) SetRolePermissions(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req rolePermissionsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	role, err := h.Roles.SetPermissions(ctx, id, req.PermissionIDs)
	if err != nil {
		return h.writeErr(c, "role", err)
	}
	return c.JSON(http.StatusOK, role)
}

// ---- users ----

// ListUsers handles GET /api/users.  Password hashes never leave the
// repository layer.
func (h *AccessHandler) ListUsers(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	rows, err := h.Users.List(ctx)
	if err != nil {
		return h.writeErr(c, "user", err)
	}
	out := make([]model.User, 0, len(rows))
	for _, u := range rows {
		out = append(out, u.Model())
	}
	return c.JSON(http.StatusOK, out)
}
