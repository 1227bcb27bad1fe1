package screening

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("screening appointment not found")
	ErrSlotUnavailable   = errors.New("slot is no longer available")
	ErrBookingExists     = errors.New("triage record already has a live screening appointment")
	ErrTriageNotBookable = errors.New("triage record cannot be scheduled from its current status")
	ErrInvalidState      = errors.New("invalid screening appointment state for this operation")
)

// Repository owns the booking transactions. Every method that touches a
// slot and an appointment runs as a single transaction: the slot claim is a
// conditional update on is_booked, so a lost race surfaces as
// ErrSlotUnavailable with nothing written.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*ScreeningAppointment, error)
	GetLiveByTriage(ctx context.Context, triageID uuid.UUID) (*ScreeningAppointment, error)
	List(ctx context.Context, status *Status, limit, offset int) ([]ScreeningAppointment, error)
	ListConfirmedBetween(ctx context.Context, from, to time.Time) ([]ScreeningAppointment, error)

	// CreateBooking claims the slot, inserts a pending_confirmation
	// appointment and moves the triage record to scheduled.
	CreateBooking(ctx context.Context, triageID, slotID uuid.UUID) (*ScreeningAppointment, error)

	// Confirm moves pending_confirmation to confirmed, stores the meeting
	// link and moves the triage record to confirmed.
	Confirm(ctx context.Context, id uuid.UUID, meetingLink string) (*ScreeningAppointment, error)

	// Reschedule claims the new slot first, then releases the old one; a
	// failed claim rolls back with the old slot still held.
	Reschedule(ctx context.Context, id, newSlotID uuid.UUID, meetingLink string) (*ScreeningAppointment, error)

	// Cancel marks the appointment cancelled, releases its slot and returns
	// the triage record to pending.
	Cancel(ctx context.Context, id uuid.UUID) (*ScreeningAppointment, error)
}
