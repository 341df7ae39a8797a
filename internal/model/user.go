package model

import "strings"

// UserType classifies an account.  The backend serves it verbatim in the
// user snapshot; the portal only branches on it.
type UserType string

const (
	UserTypeAdmin             UserType = "admin"
	UserTypeSuperAdmin        UserType = "super_admin"
	UserTypePropertyListing   UserType = "property_listing"   // owner
	UserTypePropertySearching UserType = "property_searching" // tenant
)

// IsAdmin reports whether the type carries the implicit full-access bypass.
// super_admin is an elevated variant of admin and is treated the same.
func (t UserType) IsAdmin() bool {
	return t == UserTypeAdmin || t == UserTypeSuperAdmin
}

// Valid reports whether t is one of the recognised user types.
func (t UserType) Valid() bool {
	switch t {
	case UserTypeAdmin, UserTypeSuperAdmin, UserTypePropertyListing, UserTypePropertySearching:
		return true
	}
	return false
}

// ParseUserType normalises a raw string (case, surrounding space) into a
// UserType.  Unknown values are returned as-is so callers can still store
// them; Valid() tells them apart.
func ParseUserType(s string) UserType {
	return UserType(strings.ToLower(strings.TrimSpace(s)))
}

// User is the identity record owned by the session store.  It is the JSON
// snapshot persisted under the "user" key, so the tags follow the backend's
// camelCase payloads.
//
// Fields:
//  ID        – backend identifier, used for GET /api/roles/user/:id.
//  FirstName – display name part.
//  LastName  – display name part.
//  Email     – login email.
//  UserType  – admin, super_admin, property_listing or property_searching.
//  Status    – account status as reported by the backend (e.g. active).
//  Avatar    – optional avatar reference.
//  Roles     – roles attached during permission derivation (non-admin path).
type User struct {
	ID        uint64   `json:"id"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Email     string   `json:"email"`
	UserType  UserType `json:"userType"`
	Status    string   `json:"status"`
	Avatar    string   `json:"avatar,omitempty"`
	Roles     []Role   `json:"roles,omitempty"`
}

// DisplayName joins the name parts, falling back to the email.
func (u User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// Clone returns a deep copy so callers never share the Roles slice with the
// session store.
func (u User) Clone() User {
	out := u
	if u.Roles != nil {
		out.Roles = make([]Role, len(u.Roles))
		for i, r := range u.Roles {
			out.Roles[i] = r.Clone()
		}
	}
	return out
}
