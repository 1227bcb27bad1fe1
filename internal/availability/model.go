package availability

import (
	"time"

	"github.com/google/uuid"
)

// AvailabilitySlot is a bookable time window owned by a provider (admin or
// professional). is_booked flips true only through the booking engine's
// claim step and back through its release step.
type AvailabilitySlot struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	StartTime time.Time
	EndTime   time.Time
	IsBooked  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
