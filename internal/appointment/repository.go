package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("appointment not found")
	ErrInvalidTransition = errors.New("invalid appointment status transition")
	ErrInvalidSeries     = errors.New("invalid appointment series request")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	InsertBatch(ctx context.Context, appts []Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// UpdateStatus transitions id from one status to another as a single
	// conditional update; a CAS miss on an existing row is
	// ErrInvalidTransition.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	// UpdateTime moves a scheduled appointment to a new time.
	UpdateTime(ctx context.Context, id uuid.UUID, t time.Time) (*Appointment, error)

	ListByProfessional(ctx context.Context, professionalID uuid.UUID, from, to time.Time, limit, offset int) ([]Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, from, to time.Time, limit, offset int) ([]Appointment, error)

	// ListPendingReview returns scheduled appointments whose time precedes
	// now, optionally filtered to one professional.
	ListPendingReview(ctx context.Context, professionalID *uuid.UUID, now time.Time) ([]Appointment, error)
}
