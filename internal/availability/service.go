package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("component", "availability").Logger(),
	}
}

// GenerateInput describes one day's availability template.
type GenerateInput struct {
	OwnerID         uuid.UUID
	Date            time.Time // day the window falls on; clock fields ignored
	StartTime       string    // "09:00"
	EndTime         string    // "18:00"
	DurationMinutes int
	GapMinutes      int
}

// GenerateSlots expands a daily template into persisted slots. A trailing
// window shorter than the session duration is discarded, never clipped.
// Zero generated slots is not an error; callers inspect the returned count.
func (s *Service) GenerateSlots(ctx context.Context, in GenerateInput) ([]AvailabilitySlot, error) {
	if in.DurationMinutes <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", ErrInvalidWindow)
	}
	if in.GapMinutes < 0 {
		return nil, fmt.Errorf("%w: gap must not be negative", ErrInvalidWindow)
	}

	dayStart, err := atClock(in.Date, in.StartTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWindow, err)
	}
	dayEnd, err := atClock(in.Date, in.EndTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWindow, err)
	}
	if !dayStart.Before(dayEnd) {
		return nil, fmt.Errorf("%w: start must be before end", ErrInvalidWindow)
	}

	duration := time.Duration(in.DurationMinutes) * time.Minute
	gap := time.Duration(in.GapMinutes) * time.Minute

	windows := buildWindows(dayStart, dayEnd, duration, gap)

	slots := make([]AvailabilitySlot, 0, len(windows))
	for _, w := range windows {
		slots = append(slots, AvailabilitySlot{
			ID:        uuid.New(),
			OwnerID:   in.OwnerID,
			StartTime: w.start,
			EndTime:   w.end,
		})
	}

	if len(slots) == 0 {
		s.log.Warn().
			Str("owner_id", in.OwnerID.String()).
			Time("day_start", dayStart).
			Time("day_end", dayEnd).
			Msg("availability template produced no slots")
		return nil, nil
	}

	if err := s.repo.InsertBatch(ctx, slots); err != nil {
		return nil, fmt.Errorf("persist generated slots: %w", err)
	}

	s.log.Info().
		Str("owner_id", in.OwnerID.String()).
		Int("count", len(slots)).
		Msg("availability slots generated")

	return slots, nil
}

type window struct {
	start time.Time
	end   time.Time
}

// buildWindows walks a cursor from start, emitting [cursor, cursor+duration)
// while the full session still fits before end, then advancing by
// duration+gap.
func buildWindows(start, end time.Time, duration, gap time.Duration) []window {
	var out []window
	for cursor := start; !cursor.Add(duration).After(end); cursor = cursor.Add(duration + gap) {
		out = append(out, window{start: cursor, end: cursor.Add(duration)})
	}
	return out
}

func atClock(day time.Time, clock string) (time.Time, error) {
	tod, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time of day %q", clock)
	}
	y, m, d := day.Date()
	loc := day.Location()
	return time.Date(y, m, d, tod.Hour(), tod.Minute(), 0, 0, loc), nil
}

// CreateSlot persists a single manually entered window.
func (s *Service) CreateSlot(ctx context.Context, ownerID uuid.UUID, start, end time.Time) (*AvailabilitySlot, error) {
	if !start.Before(end) {
		return nil, fmt.Errorf("%w: start must be before end", ErrInvalidWindow)
	}

	overlaps, err := s.repo.HasOverlap(ctx, ownerID, start, end, uuid.Nil)
	if err != nil {
		return nil, fmt.Errorf("check overlap: %w", err)
	}
	if overlaps {
		return nil, ErrSlotOverlap
	}

	slot := &AvailabilitySlot{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		StartTime: start,
		EndTime:   end,
	}
	if err := s.repo.Insert(ctx, slot); err != nil {
		return nil, fmt.Errorf("create slot: %w", err)
	}

	return slot, nil
}

// EditSlot moves an unbooked slot to a new window.
func (s *Service) EditSlot(ctx context.Context, id uuid.UUID, start, end time.Time) error {
	if !start.Before(end) {
		return fmt.Errorf("%w: start must be before end", ErrInvalidWindow)
	}

	slot, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if slot.IsBooked {
		return ErrSlotBooked
	}

	overlaps, err := s.repo.HasOverlap(ctx, slot.OwnerID, start, end, id)
	if err != nil {
		return fmt.Errorf("check overlap: %w", err)
	}
	if overlaps {
		return ErrSlotOverlap
	}

	return s.repo.UpdateWindow(ctx, id, start, end)
}

// DeleteSlot removes an unbooked slot. A booked slot's screening must be
// cancelled first; that release then frees the slot for deletion.
func (s *Service) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) GetSlot(ctx context.Context, id uuid.UUID) (*AvailabilitySlot, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByOwner(ctx context.Context, ownerID uuid.UUID, from, to time.Time, limit, offset int) ([]AvailabilitySlot, error) {
	limit, offset = clampPage(limit, offset)
	return s.repo.ListByOwner(ctx, ownerID, from, to, limit, offset)
}

// ListBookable is the public unauthenticated read: unbooked slots with a
// future start time.
func (s *Service) ListBookable(ctx context.Context, now time.Time, limit, offset int) ([]AvailabilitySlot, error) {
	limit, offset = clampPage(limit, offset)
	return s.repo.ListBookable(ctx, now, limit, offset)
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
