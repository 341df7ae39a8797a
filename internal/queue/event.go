// Package queue carries portal events over RabbitMQ: the publisher used by
// the session store and admin console, and the consumer that appends them to
// a log file.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// Event types published by the portal.
const (
	EventLogin              = "session.login"
	EventLoginFailed        = "session.login_failed"
	EventLogout             = "session.logout"
	EventPermissionsDerived = "session.permissions_derived"
	EventConsoleFailed      = "console.crud_failed"
)

// Event is one message on the portal.events queue.  It carries enough context
// to audit a session without asking the backend.
type Event struct {
	ID         string `json:"event_id"`
	Type       string `json:"type"`
	UserID     uint64 `json:"user_id,omitempty"`
	Email      string `json:"email,omitempty"`
	UserType   string `json:"user_type,omitempty"`
	Detail     string `json:"detail,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

// NewEvent stamps a fresh id and the current UTC time.
func NewEvent(typ string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
}
