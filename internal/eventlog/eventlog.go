// Package eventlog appends domain transition events to an audit table.
// Writes are fire-and-forget from the caller's point of view.
package eventlog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Event struct {
	ID        int64
	EventType string
	EntityID  *uuid.UUID
	Payload   []byte
	CreatedAt time.Time
}

type Recorder interface {
	Insert(ctx context.Context, ev Event) error
}
