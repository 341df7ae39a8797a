package session

import "errors"

var (
	// ErrAuthFailure: login rejected or the response was unusable.  The
	// session is left as it was before the attempt.
	ErrAuthFailure = errors.New("authentication failed")
	// ErrPersistedStateCorrupt: the stored user snapshot did not parse.
	// Initialize recovers by clearing storage; it is never surfaced.
	ErrPersistedStateCorrupt = errors.New("persisted session state is corrupt")
	// ErrPermissionFetch: the role/permission graph could not be fetched.
	// The safe default index is already installed when this is returned.
	ErrPermissionFetch = errors.New("permission fetch failed")
	// ErrSessionChanged: a derivation finished after logout or a newer
	// login and its result was dropped.
	ErrSessionChanged = errors.New("session changed during derivation")
)
