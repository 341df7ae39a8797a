package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/rental-portal/internal/utils" // access token verification
)

// Context keys set by JWTAuth.
const (
	CtxUserID   = "user_id"
	CtxUserType = "user_type"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the token's subject and user type into the request context.  The
// provided secret must match the one used when issuing tokens.  Handlers read
// the caller via c.Get(CtxUserID) (uint64) and c.Get(CtxUserType) (string).
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		// The returned handler is invoked for each incoming HTTP request.
		return func(c echo.Context) error {
			// Read the Authorization header.  A valid header should start
			// with "Bearer " followed by the JWT.
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			// Remove the "Bearer " prefix to obtain the raw token string.
			raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

			// Verify signature, algorithm and expiry in one step.
			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			uid, _ := claims.UserID() // already validated by ParseAccessToken

			// Store the subject (user ID) and user type in the context.
			c.Set(CtxUserID, uid)
			c.Set(CtxUserType, claims.UserType)
			return next(c)
		}
	}
}
