package screening

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/solacemind/clinic-scheduling/internal/eventlog"
	"github.com/solacemind/clinic-scheduling/internal/notify"
	redisclient "github.com/solacemind/clinic-scheduling/internal/redis"
	"github.com/solacemind/clinic-scheduling/internal/triage"
)

type fakeSlot struct {
	start  time.Time
	booked bool
}

type fakeRepo struct {
	slots      map[uuid.UUID]*fakeSlot
	triage     map[uuid.UUID]triage.Status
	screenings map[uuid.UUID]*ScreeningAppointment
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		slots:      make(map[uuid.UUID]*fakeSlot),
		triage:     make(map[uuid.UUID]triage.Status),
		screenings: make(map[uuid.UUID]*ScreeningAppointment),
	}
}

func (r *fakeRepo) addSlot(start time.Time) uuid.UUID {
	id := uuid.New()
	r.slots[id] = &fakeSlot{start: start}
	return id
}

func (r *fakeRepo) addTriage(status triage.Status) uuid.UUID {
	id := uuid.New()
	r.triage[id] = status
	return id
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*ScreeningAppointment, error) {
	appt, ok := r.screenings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *appt
	return &cp, nil
}

func (r *fakeRepo) GetLiveByTriage(_ context.Context, triageID uuid.UUID) (*ScreeningAppointment, error) {
	for _, appt := range r.screenings {
		if appt.TriageRecordID == triageID && appt.Status != StatusCancelled {
			cp := *appt
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *fakeRepo) List(_ context.Context, status *Status, limit, offset int) ([]ScreeningAppointment, error) {
	var out []ScreeningAppointment
	for _, appt := range r.screenings {
		if status != nil && appt.Status != *status {
			continue
		}
		out = append(out, *appt)
	}
	return out, nil
}

func (r *fakeRepo) ListConfirmedBetween(_ context.Context, from, to time.Time) ([]ScreeningAppointment, error) {
	var out []ScreeningAppointment
	for _, appt := range r.screenings {
		if appt.Status == StatusConfirmed && !appt.StartTime.Before(from) && appt.StartTime.Before(to) {
			out = append(out, *appt)
		}
	}
	return out, nil
}

func (r *fakeRepo) CreateBooking(_ context.Context, triageID, slotID uuid.UUID) (*ScreeningAppointment, error) {
	status, ok := r.triage[triageID]
	if !ok {
		return nil, triage.ErrRecordNotFound
	}
	if status != triage.StatusPending {
		return nil, ErrTriageNotBookable
	}
	for _, appt := range r.screenings {
		if appt.TriageRecordID == triageID && appt.Status != StatusCancelled {
			return nil, ErrBookingExists
		}
	}

	slot, ok := r.slots[slotID]
	if !ok {
		return nil, ErrSlotUnavailable
	}
	if slot.booked {
		return nil, ErrSlotUnavailable
	}
	slot.booked = true
	r.triage[triageID] = triage.StatusScheduled

	appt := &ScreeningAppointment{
		ID:             uuid.New(),
		TriageRecordID: triageID,
		SlotID:         slotID,
		StartTime:      slot.start,
		Status:         StatusPendingConfirmation,
	}
	r.screenings[appt.ID] = appt
	cp := *appt
	return &cp, nil
}

func (r *fakeRepo) Confirm(_ context.Context, id uuid.UUID, meetingLink string) (*ScreeningAppointment, error) {
	appt, ok := r.screenings[id]
	if !ok {
		return nil, ErrNotFound
	}
	if appt.Status != StatusPendingConfirmation {
		return nil, ErrInvalidState
	}
	appt.Status = StatusConfirmed
	appt.MeetingLink = meetingLink
	r.triage[appt.TriageRecordID] = triage.StatusConfirmed
	cp := *appt
	return &cp, nil
}

func (r *fakeRepo) Reschedule(_ context.Context, id, newSlotID uuid.UUID, meetingLink string) (*ScreeningAppointment, error) {
	appt, ok := r.screenings[id]
	if !ok {
		return nil, ErrNotFound
	}
	if appt.Status == StatusCancelled {
		return nil, ErrInvalidState
	}
	if appt.SlotID == newSlotID {
		return nil, ErrInvalidState
	}

	newSlot, ok := r.slots[newSlotID]
	if !ok || newSlot.booked {
		return nil, ErrSlotUnavailable
	}
	newSlot.booked = true
	r.slots[appt.SlotID].booked = false

	appt.SlotID = newSlotID
	appt.StartTime = newSlot.start
	if meetingLink != "" {
		appt.MeetingLink = meetingLink
	}
	cp := *appt
	return &cp, nil
}

func (r *fakeRepo) Cancel(_ context.Context, id uuid.UUID) (*ScreeningAppointment, error) {
	appt, ok := r.screenings[id]
	if !ok {
		return nil, ErrNotFound
	}
	if appt.Status == StatusCancelled {
		return nil, ErrInvalidState
	}
	appt.Status = StatusCancelled
	r.slots[appt.SlotID].booked = false
	r.triage[appt.TriageRecordID] = triage.StatusPending
	cp := *appt
	return &cp, nil
}

// passLocker runs the critical section inline.
type passLocker struct{}

func (passLocker) WithSlotLock(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (passLocker) WithTriageLock(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// heldLocker simulates a lock already held by another request.
type heldLocker struct{}

func (heldLocker) WithSlotLock(context.Context, uuid.UUID, func(ctx context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

func (heldLocker) WithTriageLock(context.Context, uuid.UUID, func(ctx context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

type fakeDirectory struct {
	finalizeCalls int
	finalizeErr   error
}

func (d *fakeDirectory) Get(_ context.Context, id uuid.UUID) (*triage.TriageRecord, error) {
	return &triage.TriageRecord{
		ID:    id,
		Email: "contact@example.com",
		Phone: "+55 11 98888-0000",
	}, nil
}

func (d *fakeDirectory) Finalize(_ context.Context, id uuid.UUID) (*triage.ProvisionedUser, error) {
	d.finalizeCalls++
	if d.finalizeErr != nil {
		return nil, d.finalizeErr
	}
	return &triage.ProvisionedUser{UserID: uuid.New(), TempPassword: "tmp-secret"}, nil
}

type nopRecorder struct{}

func (nopRecorder) Insert(context.Context, eventlog.Event) error { return nil }

type captureNotifier struct {
	events []notify.Event
}

func (n *captureNotifier) Publish(_ context.Context, ev notify.Event) error {
	n.events = append(n.events, ev)
	return nil
}

func newTestService(repo Repository, locker redisclient.Locker, dir TriageDirectory) (*Service, *captureNotifier) {
	notifier := &captureNotifier{}
	svc := NewService(repo, locker, dir, nopRecorder{}, notifier, zerolog.Nop())
	return svc, notifier
}

func TestRequestBookingClaimsSlot(t *testing.T) {
	repo := newFakeRepo()
	svc, notifier := newTestService(repo, passLocker{}, &fakeDirectory{})

	slotID := repo.addSlot(time.Now().Add(24 * time.Hour))
	triageID := repo.addTriage(triage.StatusPending)

	appt, err := svc.RequestBooking(context.Background(), triageID, slotID)
	if err != nil {
		t.Fatalf("RequestBooking: %v", err)
	}
	if appt.Status != StatusPendingConfirmation {
		t.Fatalf("status %q, want %q", appt.Status, StatusPendingConfirmation)
	}
	if !repo.slots[slotID].booked {
		t.Fatal("slot not claimed")
	}
	if repo.triage[triageID] != triage.StatusScheduled {
		t.Fatalf("triage status %q, want scheduled", repo.triage[triageID])
	}
	if len(notifier.events) == 0 {
		t.Fatal("no notifications published")
	}
}

func TestRequestBookingLostRace(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, passLocker{}, &fakeDirectory{})

	slotID := repo.addSlot(time.Now().Add(24 * time.Hour))
	first := repo.addTriage(triage.StatusPending)
	second := repo.addTriage(triage.StatusPending)

	if _, err := svc.RequestBooking(context.Background(), first, slotID); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	_, err := svc.RequestBooking(context.Background(), second, slotID)
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("got %v, want ErrSlotUnavailable", err)
	}
	if repo.triage[second] != triage.StatusPending {
		t.Fatalf("losing triage moved to %q, want pending", repo.triage[second])
	}
}

func TestRequestBookingLockContention(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, heldLocker{}, &fakeDirectory{})

	slotID := repo.addSlot(time.Now().Add(24 * time.Hour))
	triageID := repo.addTriage(triage.StatusPending)

	_, err := svc.RequestBooking(context.Background(), triageID, slotID)
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("got %v, want ErrSlotUnavailable", err)
	}
	if repo.slots[slotID].booked {
		t.Fatal("slot claimed despite held lock")
	}
}

func TestRequestBookingDuplicateTriage(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, passLocker{}, &fakeDirectory{})

	slotA := repo.addSlot(time.Now().Add(24 * time.Hour))
	slotB := repo.addSlot(time.Now().Add(48 * time.Hour))
	triageID := repo.addTriage(triage.StatusPending)

	if _, err := svc.RequestBooking(context.Background(), triageID, slotA); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	// The fake keeps triage at scheduled, so the rebooking attempt is
	// rejected before the duplicate check even runs.
	_, err := svc.RequestBooking(context.Background(), triageID, slotB)
	if !errors.Is(err, ErrTriageNotBookable) {
		t.Fatalf("got %v, want ErrTriageNotBookable", err)
	}
	if repo.slots[slotB].booked {
		t.Fatal("second slot claimed for duplicate booking")
	}
}

func TestConfirmBookingFinalizesTriage(t *testing.T) {
	repo := newFakeRepo()
	dir := &fakeDirectory{}
	svc, notifier := newTestService(repo, passLocker{}, dir)

	slotID := repo.addSlot(time.Now().Add(24 * time.Hour))
	triageID := repo.addTriage(triage.StatusPending)

	appt, err := svc.RequestBooking(context.Background(), triageID, slotID)
	if err != nil {
		t.Fatalf("RequestBooking: %v", err)
	}

	confirmed, err := svc.ConfirmBooking(context.Background(), appt.ID, "https://meet.example.com/x")
	if err != nil {
		t.Fatalf("ConfirmBooking: %v", err)
	}
	if confirmed.Status != StatusConfirmed {
		t.Fatalf("status %q, want %q", confirmed.Status, StatusConfirmed)
	}
	if confirmed.MeetingLink == "" {
		t.Fatal("meeting link not stored")
	}
	if dir.finalizeCalls != 1 {
		t.Fatalf("Finalize called %d times, want 1", dir.finalizeCalls)
	}

	var sawPassword bool
	for _, ev := range notifier.events {
		if ev.Type == "screening_confirmed" {
			if _, ok := ev.Payload["temp_password"]; ok {
				sawPassword = true
			}
		}
	}
	if !sawPassword {
		t.Fatal("confirmation notification missing credentials")
	}
}

func TestConfirmBookingSurvivesProvisioningFailure(t *testing.T) {
	repo := newFakeRepo()
	dir := &fakeDirectory{finalizeErr: errors.New("identity store down")}
	svc, _ := newTestService(repo, passLocker{}, dir)

	slotID := repo.addSlot(time.Now().Add(24 * time.Hour))
	triageID := repo.addTriage(triage.StatusPending)

	appt, err := svc.RequestBooking(context.Background(), triageID, slotID)
	if err != nil {
		t.Fatalf("RequestBooking: %v", err)
	}

	confirmed, err := svc.ConfirmBooking(context.Background(), appt.ID, "link")
	if err != nil {
		t.Fatalf("ConfirmBooking: %v", err)
	}
	if confirmed.Status != StatusConfirmed {
		t.Fatalf("status %q, want %q", confirmed.Status, StatusConfirmed)
	}
}

func TestConfirmBookingTwiceRejected(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, passLocker{}, &fakeDirectory{})

	slotID := repo.addSlot(time.Now().Add(24 * time.Hour))
	triageID := repo.addTriage(triage.StatusPending)

	appt, err := svc.RequestBooking(context.Background(), triageID, slotID)
	if err != nil {
		t.Fatalf("RequestBooking: %v", err)
	}
	if _, err := svc.ConfirmBooking(context.Background(), appt.ID, "link"); err != nil {
		t.Fatalf("first confirm: %v", err)
	}

	if _, err := svc.ConfirmBooking(context.Background(), appt.ID, "link"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("got %v, want ErrInvalidState", err)
	}
}

func TestRescheduleBookingSwapsSlots(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, passLocker{}, &fakeDirectory{})

	oldSlot := repo.addSlot(time.Now().Add(24 * time.Hour))
	newSlot := repo.addSlot(time.Now().Add(48 * time.Hour))
	triageID := repo.addTriage(triage.StatusPending)

	appt, err := svc.RequestBooking(context.Background(), triageID, oldSlot)
	if err != nil {
		t.Fatalf("RequestBooking: %v", err)
	}

	moved, err := svc.RescheduleBooking(context.Background(), appt.ID, newSlot, "")
	if err != nil {
		t.Fatalf("RescheduleBooking: %v", err)
	}
	if moved.SlotID != newSlot {
		t.Fatalf("appointment on slot %s, want %s", moved.SlotID, newSlot)
	}
	if repo.slots[oldSlot].booked {
		t.Fatal("old slot still held")
	}
	if !repo.slots[newSlot].booked {
		t.Fatal("new slot not claimed")
	}
}

func TestRescheduleBookingNewSlotTaken(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, passLocker{}, &fakeDirectory{})

	oldSlot := repo.addSlot(time.Now().Add(24 * time.Hour))
	newSlot := repo.addSlot(time.Now().Add(48 * time.Hour))
	repo.slots[newSlot].booked = true
	triageID := repo.addTriage(triage.StatusPending)

	appt, err := svc.RequestBooking(context.Background(), triageID, oldSlot)
	if err != nil {
		t.Fatalf("RequestBooking: %v", err)
	}

	_, err = svc.RescheduleBooking(context.Background(), appt.ID, newSlot, "")
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("got %v, want ErrSlotUnavailable", err)
	}
	if !repo.slots[oldSlot].booked {
		t.Fatal("old slot released after failed reschedule")
	}
}

func TestRescheduleBookingSameSlotRejected(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, passLocker{}, &fakeDirectory{})

	slotID := repo.addSlot(time.Now().Add(24 * time.Hour))
	triageID := repo.addTriage(triage.StatusPending)

	appt, err := svc.RequestBooking(context.Background(), triageID, slotID)
	if err != nil {
		t.Fatalf("RequestBooking: %v", err)
	}

	// Moving onto the slot already held is not a race that retrying can
	// win, so it maps to an invalid state rather than slot contention.
	_, err = svc.RescheduleBooking(context.Background(), appt.ID, slotID, "")
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("got %v, want ErrInvalidState", err)
	}
	if !repo.slots[slotID].booked {
		t.Fatal("slot released by rejected reschedule")
	}
}

func TestLiveByTriageFindsCurrentBooking(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, passLocker{}, &fakeDirectory{})

	slotID := repo.addSlot(time.Now().Add(24 * time.Hour))
	triageID := repo.addTriage(triage.StatusPending)

	appt, err := svc.RequestBooking(context.Background(), triageID, slotID)
	if err != nil {
		t.Fatalf("RequestBooking: %v", err)
	}

	live, err := svc.LiveByTriage(context.Background(), triageID)
	if err != nil {
		t.Fatalf("LiveByTriage: %v", err)
	}
	if live.ID != appt.ID {
		t.Fatalf("got screening %s, want %s", live.ID, appt.ID)
	}
}

func TestLiveByTriageIgnoresCancelled(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, passLocker{}, &fakeDirectory{})

	slotID := repo.addSlot(time.Now().Add(24 * time.Hour))
	triageID := repo.addTriage(triage.StatusPending)

	appt, err := svc.RequestBooking(context.Background(), triageID, slotID)
	if err != nil {
		t.Fatalf("RequestBooking: %v", err)
	}
	if _, err := svc.CancelBooking(context.Background(), appt.ID); err != nil {
		t.Fatalf("CancelBooking: %v", err)
	}

	if _, err := svc.LiveByTriage(context.Background(), triageID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestCancelBookingReleasesEverything(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, passLocker{}, &fakeDirectory{})

	slotID := repo.addSlot(time.Now().Add(24 * time.Hour))
	triageID := repo.addTriage(triage.StatusPending)

	appt, err := svc.RequestBooking(context.Background(), triageID, slotID)
	if err != nil {
		t.Fatalf("RequestBooking: %v", err)
	}

	cancelled, err := svc.CancelBooking(context.Background(), appt.ID)
	if err != nil {
		t.Fatalf("CancelBooking: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Fatalf("status %q, want %q", cancelled.Status, StatusCancelled)
	}
	if repo.slots[slotID].booked {
		t.Fatal("slot still held after cancel")
	}
	if repo.triage[triageID] != triage.StatusPending {
		t.Fatalf("triage status %q, want pending", repo.triage[triageID])
	}

	// The freed slot can be booked again.
	other := repo.addTriage(triage.StatusPending)
	if _, err := svc.RequestBooking(context.Background(), other, slotID); err != nil {
		t.Fatalf("rebooking freed slot: %v", err)
	}
}

func TestUpcomingConfirmedWindow(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, passLocker{}, &fakeDirectory{})

	now := time.Now()

	inWindow := repo.addSlot(now.Add(2 * time.Hour))
	outside := repo.addSlot(now.Add(72 * time.Hour))

	for _, slotID := range []uuid.UUID{inWindow, outside} {
		triageID := repo.addTriage(triage.StatusPending)
		appt, err := svc.RequestBooking(context.Background(), triageID, slotID)
		if err != nil {
			t.Fatalf("RequestBooking: %v", err)
		}
		if _, err := svc.ConfirmBooking(context.Background(), appt.ID, "link"); err != nil {
			t.Fatalf("ConfirmBooking: %v", err)
		}
	}

	upcoming, err := svc.UpcomingConfirmed(context.Background(), now, 24*time.Hour)
	if err != nil {
		t.Fatalf("UpcomingConfirmed: %v", err)
	}
	if len(upcoming) != 1 {
		t.Fatalf("got %d upcoming screenings, want 1", len(upcoming))
	}
	if upcoming[0].SlotID != inWindow {
		t.Fatalf("wrong screening returned: slot %s", upcoming[0].SlotID)
	}
}
