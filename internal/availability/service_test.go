package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type fakeRepo struct {
	slots map[uuid.UUID]*AvailabilitySlot
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{slots: make(map[uuid.UUID]*AvailabilitySlot)}
}

func (r *fakeRepo) Insert(_ context.Context, slot *AvailabilitySlot) error {
	cp := *slot
	r.slots[slot.ID] = &cp
	return nil
}

func (r *fakeRepo) InsertBatch(_ context.Context, slots []AvailabilitySlot) error {
	for i := range slots {
		cp := slots[i]
		r.slots[cp.ID] = &cp
	}
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*AvailabilitySlot, error) {
	slot, ok := r.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	cp := *slot
	return &cp, nil
}

func (r *fakeRepo) UpdateWindow(_ context.Context, id uuid.UUID, start, end time.Time) error {
	slot, ok := r.slots[id]
	if !ok {
		return ErrSlotNotFound
	}
	if slot.IsBooked {
		return ErrSlotBooked
	}
	slot.StartTime = start
	slot.EndTime = end
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	slot, ok := r.slots[id]
	if !ok {
		return ErrSlotNotFound
	}
	if slot.IsBooked {
		return ErrSlotBooked
	}
	delete(r.slots, id)
	return nil
}

func (r *fakeRepo) HasOverlap(_ context.Context, ownerID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (bool, error) {
	for _, slot := range r.slots {
		if slot.OwnerID != ownerID || slot.ID == excludeID {
			continue
		}
		if start.Before(slot.EndTime) && slot.StartTime.Before(end) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) ListByOwner(_ context.Context, ownerID uuid.UUID, from, to time.Time, limit, offset int) ([]AvailabilitySlot, error) {
	var out []AvailabilitySlot
	for _, slot := range r.slots {
		if slot.OwnerID == ownerID && !slot.StartTime.Before(from) && slot.StartTime.Before(to) {
			out = append(out, *slot)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListBookable(_ context.Context, after time.Time, limit, offset int) ([]AvailabilitySlot, error) {
	var out []AvailabilitySlot
	for _, slot := range r.slots {
		if !slot.IsBooked && slot.StartTime.After(after) {
			out = append(out, *slot)
		}
	}
	return out, nil
}

func newTestService(repo Repository) *Service {
	return NewService(repo, zerolog.Nop())
}

func day(t *testing.T) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", "2026-03-10")
	if err != nil {
		t.Fatalf("parse day: %v", err)
	}
	return d
}

func TestBuildWindows(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		start    time.Time
		end      time.Time
		duration time.Duration
		gap      time.Duration
		want     int
	}{
		{
			name:     "two sessions with a trailing remainder discarded",
			start:    base,
			end:      base.Add(2 * time.Hour),
			duration: 50 * time.Minute,
			gap:      10 * time.Minute,
			want:     2,
		},
		{
			name:     "exact fit without gap",
			start:    base,
			end:      base.Add(100 * time.Minute),
			duration: 50 * time.Minute,
			gap:      0,
			want:     2,
		},
		{
			name:     "window shorter than one session",
			start:    base,
			end:      base.Add(30 * time.Minute),
			duration: 50 * time.Minute,
			gap:      10 * time.Minute,
			want:     0,
		},
		{
			name:     "full clinic day",
			start:    base,
			end:      base.Add(9 * time.Hour),
			duration: 50 * time.Minute,
			gap:      10 * time.Minute,
			want:     9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildWindows(tt.start, tt.end, tt.duration, tt.gap)
			if len(got) != tt.want {
				t.Fatalf("got %d windows, want %d", len(got), tt.want)
			}
			for i, w := range got {
				if w.end.Sub(w.start) != tt.duration {
					t.Fatalf("window %d has duration %s, want %s", i, w.end.Sub(w.start), tt.duration)
				}
				if w.end.After(tt.end) {
					t.Fatalf("window %d ends at %s, past %s", i, w.end, tt.end)
				}
			}
		})
	}
}

func TestGenerateSlots(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ownerID := uuid.New()

	slots, err := svc.GenerateSlots(context.Background(), GenerateInput{
		OwnerID:         ownerID,
		Date:            day(t),
		StartTime:       "09:00",
		EndTime:         "11:00",
		DurationMinutes: 50,
		GapMinutes:      10,
	})
	if err != nil {
		t.Fatalf("GenerateSlots: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("got %d slots, want 2", len(slots))
	}

	first, second := slots[0], slots[1]
	if got := first.StartTime.Format("15:04"); got != "09:00" {
		t.Fatalf("first slot starts at %s, want 09:00", got)
	}
	if got := second.StartTime.Format("15:04"); got != "10:00" {
		t.Fatalf("second slot starts at %s, want 10:00", got)
	}
	if len(repo.slots) != 2 {
		t.Fatalf("repo holds %d slots, want 2", len(repo.slots))
	}
}

func TestGenerateSlotsEmptyTemplate(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	slots, err := svc.GenerateSlots(context.Background(), GenerateInput{
		OwnerID:         uuid.New(),
		Date:            day(t),
		StartTime:       "09:00",
		EndTime:         "09:30",
		DurationMinutes: 50,
	})
	if err != nil {
		t.Fatalf("GenerateSlots: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("got %d slots, want 0", len(slots))
	}
	if len(repo.slots) != 0 {
		t.Fatalf("repo holds %d slots, want 0", len(repo.slots))
	}
}

func TestGenerateSlotsValidation(t *testing.T) {
	svc := newTestService(newFakeRepo())

	tests := []struct {
		name string
		in   GenerateInput
	}{
		{"zero duration", GenerateInput{Date: day(t), StartTime: "09:00", EndTime: "11:00"}},
		{"negative gap", GenerateInput{Date: day(t), StartTime: "09:00", EndTime: "11:00", DurationMinutes: 50, GapMinutes: -1}},
		{"bad clock", GenerateInput{Date: day(t), StartTime: "9am", EndTime: "11:00", DurationMinutes: 50}},
		{"end before start", GenerateInput{Date: day(t), StartTime: "11:00", EndTime: "09:00", DurationMinutes: 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.GenerateSlots(context.Background(), tt.in); !errors.Is(err, ErrInvalidWindow) {
				t.Fatalf("got %v, want ErrInvalidWindow", err)
			}
		})
	}
}

func TestCreateSlotRejectsOverlap(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ownerID := uuid.New()
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	if _, err := svc.CreateSlot(context.Background(), ownerID, start, start.Add(50*time.Minute)); err != nil {
		t.Fatalf("CreateSlot: %v", err)
	}

	_, err := svc.CreateSlot(context.Background(), ownerID, start.Add(30*time.Minute), start.Add(80*time.Minute))
	if !errors.Is(err, ErrSlotOverlap) {
		t.Fatalf("got %v, want ErrSlotOverlap", err)
	}

	// A different owner may hold the same window.
	if _, err := svc.CreateSlot(context.Background(), uuid.New(), start, start.Add(50*time.Minute)); err != nil {
		t.Fatalf("CreateSlot for second owner: %v", err)
	}
}

func TestEditSlotBookedRejected(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	slot, err := svc.CreateSlot(context.Background(), uuid.New(), start, start.Add(50*time.Minute))
	if err != nil {
		t.Fatalf("CreateSlot: %v", err)
	}
	repo.slots[slot.ID].IsBooked = true

	err = svc.EditSlot(context.Background(), slot.ID, start.Add(time.Hour), start.Add(time.Hour+50*time.Minute))
	if !errors.Is(err, ErrSlotBooked) {
		t.Fatalf("got %v, want ErrSlotBooked", err)
	}
}

func TestEditSlotMovesWindow(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	slot, err := svc.CreateSlot(context.Background(), uuid.New(), start, start.Add(50*time.Minute))
	if err != nil {
		t.Fatalf("CreateSlot: %v", err)
	}

	newStart := start.Add(2 * time.Hour)
	if err := svc.EditSlot(context.Background(), slot.ID, newStart, newStart.Add(50*time.Minute)); err != nil {
		t.Fatalf("EditSlot: %v", err)
	}

	got, err := svc.GetSlot(context.Background(), slot.ID)
	if err != nil {
		t.Fatalf("GetSlot: %v", err)
	}
	if !got.StartTime.Equal(newStart) {
		t.Fatalf("slot starts at %s, want %s", got.StartTime, newStart)
	}
}

func TestDeleteSlotNotFound(t *testing.T) {
	svc := newTestService(newFakeRepo())

	if err := svc.DeleteSlot(context.Background(), uuid.New()); !errors.Is(err, ErrSlotNotFound) {
		t.Fatalf("got %v, want ErrSlotNotFound", err)
	}
}
