package availability

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSlotNotFound  = errors.New("availability slot not found")
	ErrSlotBooked    = errors.New("availability slot is booked")
	ErrSlotOverlap   = errors.New("availability slot overlaps an existing slot")
	ErrInvalidWindow = errors.New("invalid availability window")
)

// Repository contains all DB interactions needed by the service.
// Note there is no claim/release here: is_booked is mutated exclusively by
// the booking engine's transactions.
type Repository interface {
	Insert(ctx context.Context, slot *AvailabilitySlot) error
	InsertBatch(ctx context.Context, slots []AvailabilitySlot) error

	GetByID(ctx context.Context, id uuid.UUID) (*AvailabilitySlot, error)
	UpdateWindow(ctx context.Context, id uuid.UUID, start, end time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error

	HasOverlap(ctx context.Context, ownerID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (bool, error)

	ListByOwner(ctx context.Context, ownerID uuid.UUID, from, to time.Time, limit, offset int) ([]AvailabilitySlot, error)
	ListBookable(ctx context.Context, after time.Time, limit, offset int) ([]AvailabilitySlot, error)
}
