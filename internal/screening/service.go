package screening

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/solacemind/clinic-scheduling/internal/eventlog"
	"github.com/solacemind/clinic-scheduling/internal/notify"
	redisclient "github.com/solacemind/clinic-scheduling/internal/redis"
	"github.com/solacemind/clinic-scheduling/internal/triage"
)

const (
	EventScreeningRequested   = "SCREENING_REQUESTED"
	EventScreeningConfirmed   = "SCREENING_CONFIRMED"
	EventScreeningRescheduled = "SCREENING_RESCHEDULED"
	EventScreeningCancelled   = "SCREENING_CANCELLED"
)

// TriageDirectory is the slice of the triage service the booking engine
// needs: contact lookup for notifications and the confirm-time migration.
type TriageDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*triage.TriageRecord, error)
	Finalize(ctx context.Context, id uuid.UUID) (*triage.ProvisionedUser, error)
}

type Service struct {
	repo     Repository
	locker   redisclient.Locker
	triage   TriageDirectory
	events   eventlog.Recorder
	notifier notify.Publisher
	log      zerolog.Logger
}

func NewService(repo Repository, locker redisclient.Locker, dir TriageDirectory, events eventlog.Recorder, notifier notify.Publisher, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		locker:   locker,
		triage:   dir,
		events:   events,
		notifier: notifier,
		log:      log.With().Str("component", "screening").Logger(),
	}
}

// RequestBooking reserves a slot for a triage record. The Redis slot lock
// keeps concurrent requests for the same slot from piling onto the
// database; the conditional claim inside the transaction is what actually
// decides the race.
func (s *Service) RequestBooking(ctx context.Context, triageID, slotID uuid.UUID) (*ScreeningAppointment, error) {
	var created *ScreeningAppointment

	err := s.locker.WithSlotLock(ctx, slotID, func(lockCtx context.Context) error {
		appt, err := s.repo.CreateBooking(lockCtx, triageID, slotID)
		if err != nil {
			return err
		}
		created = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotUnavailable
		}
		return nil, err
	}

	s.logEvent(ctx, created.ID, EventScreeningRequested, map[string]any{
		"triage_record_id": triageID.String(),
		"slot_id":          slotID.String(),
		"start_time":       created.StartTime,
	})
	s.notifyTriage(ctx, triageID, "screening_requested", map[string]any{
		"start_time": created.StartTime,
	})

	return created, nil
}

// ConfirmBooking moves a pending appointment to confirmed and migrates the
// triage record into a user account. The per-triage lock keeps a retried
// confirm from racing the first one into double provisioning.
func (s *Service) ConfirmBooking(ctx context.Context, id uuid.UUID, meetingLink string) (*ScreeningAppointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var confirmed *ScreeningAppointment
	var user *triage.ProvisionedUser

	err = s.locker.WithTriageLock(ctx, appt.TriageRecordID, func(lockCtx context.Context) error {
		upd, err := s.repo.Confirm(lockCtx, id, meetingLink)
		if err != nil {
			return err
		}
		confirmed = upd

		user, err = s.triage.Finalize(lockCtx, upd.TriageRecordID)
		if err != nil {
			// The confirmation stands; provisioning is retried by support.
			s.log.Error().Err(err).
				Str("screening_id", id.String()).
				Str("triage_id", upd.TriageRecordID.String()).
				Msg("user provisioning failed after confirm")
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrInvalidState
		}
		return nil, err
	}

	s.logEvent(ctx, confirmed.ID, EventScreeningConfirmed, map[string]any{
		"triage_record_id": confirmed.TriageRecordID.String(),
		"meeting_link":     meetingLink,
	})

	payload := map[string]any{
		"start_time":   confirmed.StartTime,
		"meeting_link": confirmed.MeetingLink,
	}
	if user != nil {
		payload["temp_password"] = user.TempPassword
	}
	s.notifyTriage(ctx, confirmed.TriageRecordID, "screening_confirmed", payload)

	return confirmed, nil
}

// RescheduleBooking swaps the appointment onto a new slot. Claim-new then
// release-old inside one transaction: losing the new slot leaves the old
// booking untouched.
func (s *Service) RescheduleBooking(ctx context.Context, id, newSlotID uuid.UUID, meetingLink string) (*ScreeningAppointment, error) {
	var updated *ScreeningAppointment

	err := s.locker.WithSlotLock(ctx, newSlotID, func(lockCtx context.Context) error {
		appt, err := s.repo.Reschedule(lockCtx, id, newSlotID, meetingLink)
		if err != nil {
			return err
		}
		updated = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotUnavailable
		}
		return nil, err
	}

	s.logEvent(ctx, updated.ID, EventScreeningRescheduled, map[string]any{
		"new_slot_id": newSlotID.String(),
		"start_time":  updated.StartTime,
	})
	s.notifyTriage(ctx, updated.TriageRecordID, "screening_rescheduled", map[string]any{
		"start_time":   updated.StartTime,
		"meeting_link": updated.MeetingLink,
	})

	return updated, nil
}

// CancelBooking releases the slot and returns the triage record to the
// pending pool so it can be rebooked.
func (s *Service) CancelBooking(ctx context.Context, id uuid.UUID) (*ScreeningAppointment, error) {
	cancelled, err := s.repo.Cancel(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, cancelled.ID, EventScreeningCancelled, map[string]any{
		"triage_record_id": cancelled.TriageRecordID.String(),
		"slot_id":          cancelled.SlotID.String(),
	})
	s.notifyTriage(ctx, cancelled.TriageRecordID, "screening_cancelled", map[string]any{
		"start_time": cancelled.StartTime,
	})

	return cancelled, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*ScreeningAppointment, error) {
	return s.repo.GetByID(ctx, id)
}

// LiveByTriage returns the non-cancelled screening for a triage record,
// or ErrNotFound if the record has none. The booking page uses this to
// show an applicant their current appointment.
func (s *Service) LiveByTriage(ctx context.Context, triageID uuid.UUID) (*ScreeningAppointment, error) {
	return s.repo.GetLiveByTriage(ctx, triageID)
}

func (s *Service) List(ctx context.Context, status *Status, limit, offset int) ([]ScreeningAppointment, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, status, limit, offset)
}

// UpcomingConfirmed lists confirmed screenings starting inside the window.
// Used by the reminder worker.
func (s *Service) UpcomingConfirmed(ctx context.Context, now time.Time, window time.Duration) ([]ScreeningAppointment, error) {
	return s.repo.ListConfirmedBetween(ctx, now, now.Add(window))
}

func (s *Service) logEvent(ctx context.Context, screeningID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("event", eventType).Msg("marshal event payload")
		data = nil
	}

	id := screeningID
	ev := eventlog.Event{
		EventType: eventType,
		EntityID:  &id,
		Payload:   data,
		CreatedAt: time.Now(),
	}

	if err := s.events.Insert(ctx, ev); err != nil {
		s.log.Error().Err(err).
			Str("event", eventType).
			Str("screening_id", screeningID.String()).
			Msg("insert event log")
	}
}

// notifyTriage dispatches fire-and-forget notifications to the triage
// contact on email and whatsapp plus a socket event for live dashboards.
func (s *Service) notifyTriage(ctx context.Context, triageID uuid.UUID, eventType string, payload map[string]any) {
	rec, err := s.triage.Get(ctx, triageID)
	if err != nil {
		s.log.Error().Err(err).
			Str("triage_id", triageID.String()).
			Str("event", eventType).
			Msg("load triage contact for notification")
		return
	}

	targets := []struct {
		channel   notify.Channel
		recipient string
	}{
		{notify.ChannelEmail, rec.Email},
		{notify.ChannelWhatsApp, rec.Phone},
		{notify.ChannelSocket, fmt.Sprintf("triage:%s", triageID)},
	}

	for _, t := range targets {
		if t.recipient == "" {
			continue
		}
		ev := notify.Event{
			Type:      eventType,
			Channel:   t.channel,
			Recipient: t.recipient,
			Payload:   payload,
		}
		if err := s.notifier.Publish(ctx, ev); err != nil {
			s.log.Error().Err(err).
				Str("event", eventType).
				Str("channel", string(t.channel)).
				Msg("publish notification")
		}
	}
}
