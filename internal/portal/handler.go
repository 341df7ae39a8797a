// Package portal is the portal's HTTP surface: session endpoints, the
// navigation read model and the admin console.
package portal

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/rental-portal/internal/console"
	"github.com/iliyamo/rental-portal/internal/gate"
	"github.com/iliyamo/rental-portal/internal/model"
	"github.com/iliyamo/rental-portal/internal/session"
)

// Handler bundles dependencies for portal endpoints.
type Handler struct {
	Session *session.Store
	Gate    *gate.Gate
	Console *console.Service
	Log     zerolog.Logger
	// Timeout bounds each backend round trip.
	Timeout time.Duration
}

func NewHandler(s *session.Store, g *gate.Gate, c *console.Service, log zerolog.Logger) *Handler {
	return &Handler{Session: s, Gate: g, Console: c, Log: log, Timeout: 10 * time.Second}
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) ctx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), h.Timeout)
}

// Login: exchange credentials and return the new session state.
func (h *Handler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.Session.Login(ctx, req.Email, req.Password); err != nil {
		// The store keeps the message meant for the user.
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": h.Session.State().Error})
	}
	return c.JSON(http.StatusOK, h.Session.State())
}

// Logout always succeeds from the caller's point of view.
func (h *Handler) Logout(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.Session.Logout(ctx); err != nil {
		h.Log.Warn().Err(err).Msg("logout storage clear")
	}
	return c.JSON(http.StatusOK, h.Session.State())
}

// State returns the session snapshot.
func (h *Handler) State(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Session.State())
}

// RefreshPermissions re-derives the index and returns the new state.  A
// failed fetch still answers 200: the safe default is in place.
func (h *Handler) RefreshPermissions(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.Session.DerivePermissions(ctx); err != nil {
		h.Log.Warn().Err(err).Msg("refresh permissions")
	}
	return c.JSON(http.StatusOK, h.Session.State())
}

// Can answers one oracle query: GET /v1/session/can?module=..&action=..
func (h *Handler) Can(c echo.Context) error {
	module := strings.TrimSpace(c.QueryParam("module"))
	action := strings.TrimSpace(c.QueryParam("action"))
	if module == "" || action == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "module and action are required"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"module":  module,
		"action":  action,
		"allowed": h.Session.HasPermission(module, action),
	})
}

// Navigation returns the dashboard and the visible sidebar entries.
func (h *Handler) Navigation(c echo.Context) error {
	d, ok := gate.DashboardFor(h.Session.UserType())
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "no dashboard for user type"})
	}
	items := h.Gate.Sidebar()
	if items == nil {
		items = []gate.NavItem{}
	}
	return c.JSON(http.StatusOK, echo.Map{"dashboard": d, "items": items})
}

// Dashboard redirects browsers to the user's dashboard and tells API
// clients where it is.
func (h *Handler) Dashboard(c echo.Context) error {
	d, ok := gate.DashboardFor(h.Session.UserType())
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "no dashboard for user type"})
	}
	if strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMETextHTML) {
		return c.Redirect(http.StatusFound, d.Path)
	}
	return c.JSON(http.StatusOK, d)
}

// ---- admin console ----

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

func (h *Handler) ListPermissions(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()
	rows, err := h.Console.ListPermissions(ctx)
	if err != nil {
		return h.consoleError(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *Handler) CreatePermission(c echo.Context) error {
	var req permissionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	p := req.permission()
	if p.Module == "" || p.Action == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "module and action are required"})
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	created, err := h.Console.CreatePermission(ctx, p)
	if err != nil {
		return h.consoleError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) UpdatePermission(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req permissionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	p := req.permission()
	p.ID = id
	ctx, cancel := h.ctx(c)
	defer cancel()
	updated, err := h.Console.UpdatePermission(ctx, p)
	if err != nil {
		return h.consoleError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) DeletePermission(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.Console.DeletePermission(ctx, id); err != nil {
		return h.consoleError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListRoles(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()
	rows, err := h.Console.ListRoles(ctx)
	if err != nil {
		return h.consoleError(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *Handler) CreateRole(c echo.Context) error {
	var req roleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	created, err := h.Console.CreateRole(ctx, model.Role{Name: strings.TrimSpace(req.Name), Description: req.Description})
	if err != nil {
		return h.consoleError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) UpdateRole(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req roleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	updated, err := h.Console.UpdateRole(ctx, model.Role{ID: id, Name: strings.TrimSpace(req.Name), Description: req.Description})
	if err != nil {
		return h.consoleError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) DeleteRole(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.Console.DeleteRole(ctx, id); err != nil {
		return h.consoleError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SetRolePermissions(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req rolePermissionsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	r, err := h.Console.SetRolePermissions(ctx, id, req.PermissionIDs)
	if err != nil {
		return h.consoleError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) ListUsers(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()
	rows, err := h.Console.ListUsers(ctx)
	if err != nil {
		return h.consoleError(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

// consoleError renders a console Failure as a transient notification.
func (h *Handler) consoleError(c echo.Context, err error) error {
	var f *console.Failure
	if !errors.As(err, &f) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	status := f.Status
	if status < 400 {
		status = http.StatusBadGateway
	}
	return c.JSON(status, echo.Map{
		"error": f.Notification,
		"notification": echo.Map{
			"level":     "error",
			"operation": f.Operation,
			"message":   f.Notification,
		},
	})
}

func (r permissionReq) permission() model.Permission {
	p := model.Permission{
		Name:        strings.TrimSpace(r.Name),
		Module:      strings.ToLower(strings.TrimSpace(r.Module)),
		Action:      strings.ToLower(strings.TrimSpace(r.Action)),
		Description: r.Description,
	}
	if p.Name == "" && p.Module != "" && p.Action != "" {
		p.Name = p.Module + ":" + p.Action
	}
	return p
}

func pathID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// Health is the liveness probe.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
