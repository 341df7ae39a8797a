package middleware // middleware provides shared request processing for handlers

import (
	"net/http" // http package defines standard HTTP status codes

	"github.com/labstack/echo/v4" // echo provides middleware chaining and context

	"github.com/iliyamo/rental-portal/internal/model" // user type constants
)

// RequireUserType returns a middleware function that enforces that the
// authenticated caller has one of the specified user types.  The values
// accepted should correspond to the token's "userType" claim.  If the
// caller's type is not in the allowed set, the request is aborted with a
// 403 Forbidden response.  It assumes JWTAuth ran first and stored the
// type under CtxUserType.
func RequireUserType(types ...string) echo.MiddlewareFunc {
	// Build a set of allowed types for constant-time lookups.
	allowed := make(map[string]bool, len(types))
	for _, t := range types {
		allowed[t] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// If missing or of wrong type, treat as not allowed.
			ut, ok := c.Get(CtxUserType).(string)
			if !ok || !allowed[ut] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

// RequireAdmin admits admin and super_admin callers.
func RequireAdmin() echo.MiddlewareFunc {
	return RequireUserType(string(model.UserTypeAdmin), string(model.UserTypeSuperAdmin))
}
