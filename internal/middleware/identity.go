package middleware

// identity.go holds helpers shared across middleware files for reading the
// caller set by JWTAuth.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rental-portal/internal/model"
)

// CallerID returns the authenticated user id and whether one is present.
func CallerID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(CtxUserID).(uint64)
	return id, ok && id != 0
}

// IsAdminCaller reports whether the caller's user type is admin-equivalent.
func IsAdminCaller(c echo.Context) bool {
	ut, _ := c.Get(CtxUserType).(string)
	return model.UserType(ut).IsAdmin()
}

// userID renders the caller for rate limit keys; "guest" when anonymous.
func userID(c echo.Context) string {
	if id, ok := CallerID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "guest"
}
