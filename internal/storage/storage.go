// Package storage persists the two string values that make up a durable
// session: the bearer token and the serialized user snapshot.  Both are
// written together and cleared together.
package storage

import "context"

// Keys of the durable session state.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// SessionStorage is the durable client-side key-value state read on startup
// and written on login/logout.  Missing keys load as empty strings.
type SessionStorage interface {
	Load(ctx context.Context) (token, user string, err error)
	Save(ctx context.Context, token, user string) error
	Clear(ctx context.Context) error
}
