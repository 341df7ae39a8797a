package gate

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rental-portal/internal/model"
)

// RequireAuth rejects requests without a session.  Browsers are redirected
// to the login page, API clients get 401.
func (g *Gate) RequireAuth() echo.MiddlewareFunc {
	return g.require("route", Requirement{})
}

// RequirePermission lets the request through only if the session holds
// module_action (admins always pass).
func (g *Gate) RequirePermission(module, action string) echo.MiddlewareFunc {
	return g.require("route", Perm(module, action))
}

// RequireUserType lets the request through only for the listed user types.
func (g *Gate) RequireUserType(types ...model.UserType) echo.MiddlewareFunc {
	return g.require("route", Types(types...))
}

func (g *Gate) require(surface string, r Requirement) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !g.oracle.Authenticated() {
				g.metrics.GateDecision(surface, false)
				if wantsHTML(c) {
					return c.Redirect(http.StatusFound, g.loginPath)
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			if !g.Check(surface, r) {
				g.log.Debug().Str("path", c.Path()).Str("module", r.Module).Str("action", r.Action).Msg("route denied")
				if wantsHTML(c) {
					return c.Redirect(http.StatusFound, g.deniedPath)
				}
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

// wantsHTML is true for page navigations, which get redirects instead of
// JSON errors.
func wantsHTML(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMETextHTML)
}
