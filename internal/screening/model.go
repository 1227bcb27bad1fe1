package screening

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPendingConfirmation Status = "pending_confirmation"
	StatusConfirmed           Status = "confirmed"
	StatusCancelled           Status = "cancelled"
)

// ScreeningAppointment is the booked evaluation meeting for an in-flight
// triage record. At most one non-cancelled appointment exists per triage
// record; its slot is held (is_booked) for as long as the appointment is
// live.
type ScreeningAppointment struct {
	ID             uuid.UUID
	TriageRecordID uuid.UUID
	SlotID         uuid.UUID
	StartTime      time.Time
	MeetingLink    string
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
