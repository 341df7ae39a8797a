// Package repository holds the devapi's MySQL data access.  The sentinel
// errors below let handlers map storage outcomes onto HTTP status codes
// without inspecting driver errors.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts to change a system
// permission or system role.  Handlers translate this into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write would duplicate a unique value,
// such as a second permission with the same module and action.  Handlers
// translate this into HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrNotFound is returned when the referenced row does not exist.
var ErrNotFound = errors.New("not found")
