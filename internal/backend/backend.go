// Package backend is the portal's view of the marketplace REST API.  Two
// implementations exist: HTTP talks to a live backend, Fixture serves seeded
// in-memory data for development and tests.  Which one runs is decided by
// configuration, never by falling back after a failed live call.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/iliyamo/rental-portal/internal/model"
)

var (
	// ErrMissingToken is returned when a login response carries no token.
	ErrMissingToken = errors.New("login response has no token")
	// ErrMissingUser is returned when a login response carries no user.
	ErrMissingUser = errors.New("login response has no user")
	// ErrInvalidUser is returned when the login user has no id or an unknown user type.
	ErrInvalidUser = errors.New("login response has an invalid user")
)

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend status %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// IsUnauthorized reports a 401 from the backend.
func IsUnauthorized(err error) bool { return IsStatus(err, http.StatusUnauthorized) }

// LoginResult is the body of a successful POST /api/auth/login.
type LoginResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// AuthSource is what the session store needs: credentials exchange and the
// role/permission graph.  SetToken attaches the bearer token to every later
// request; an empty token detaches it.
type AuthSource interface {
	SetToken(token string)
	Login(ctx context.Context, email, password string) (LoginResult, error)
	ListPermissions(ctx context.Context) ([]model.Permission, error)
	RolesForUser(ctx context.Context, userID uint64) ([]model.Role, error)
}

// Console is the admin console CRUD surface.
type Console interface {
	CreatePermission(ctx context.Context, p model.Permission) (model.Permission, error)
	UpdatePermission(ctx context.Context, p model.Permission) (model.Permission, error)
	DeletePermission(ctx context.Context, id uint64) error
	ListRoles(ctx context.Context) ([]model.Role, error)
	CreateRole(ctx context.Context, r model.Role) (model.Role, error)
	UpdateRole(ctx context.Context, r model.Role) (model.Role, error)
	DeleteRole(ctx context.Context, id uint64) error
	SetRolePermissions(ctx context.Context, roleID uint64, permissionIDs []uint64) (model.Role, error)
	ListUsers(ctx context.Context) ([]model.User, error)
}

// Backend is the full data source.
type Backend interface {
	AuthSource
	Console
}
