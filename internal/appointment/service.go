package appointment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/solacemind/clinic-scheduling/internal/eventlog"
	"github.com/solacemind/clinic-scheduling/internal/notify"
)

const (
	EventSeriesCreated          = "APPOINTMENT_SERIES_CREATED"
	EventAppointmentCompleted   = "APPOINTMENT_COMPLETED"
	EventAppointmentCancelled   = "APPOINTMENT_CANCELLED"
	EventAppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
)

type Service struct {
	repo     Repository
	events   eventlog.Recorder
	notifier notify.Publisher
	log      zerolog.Logger
}

func NewService(repo Repository, events eventlog.Recorder, notifier notify.Publisher, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		events:   events,
		notifier: notifier,
		log:      log.With().Str("component", "appointment").Logger(),
	}
}

type SeriesInput struct {
	PatientID       uuid.UUID
	ProfessionalID  uuid.UUID
	CompanyID       *uuid.UUID
	SessionValue    *float64
	Frequency       Frequency
	OccurrenceTimes []time.Time
}

// CreateSeries creates one scheduled appointment per occurrence time. The
// cadence is validated server-side instead of trusting the client to have
// computed correct dates: recurring occurrences must be exactly one
// frequency interval apart. Recurring requests with more than one
// occurrence share a generated series id; single events never do.
func (s *Service) CreateSeries(ctx context.Context, in SeriesInput) ([]Appointment, error) {
	if in.PatientID == uuid.Nil {
		return nil, fmt.Errorf("%w: patient_id is required", ErrInvalidSeries)
	}
	if in.ProfessionalID == uuid.Nil {
		return nil, fmt.Errorf("%w: professional_id is required", ErrInvalidSeries)
	}
	if !in.Frequency.Valid() {
		return nil, fmt.Errorf("%w: unknown frequency %q", ErrInvalidSeries, in.Frequency)
	}
	if len(in.OccurrenceTimes) == 0 {
		return nil, fmt.Errorf("%w: at least one occurrence time is required", ErrInvalidSeries)
	}

	if spacing := in.Frequency.Spacing(); spacing > 0 {
		for i := 1; i < len(in.OccurrenceTimes); i++ {
			if in.OccurrenceTimes[i].Sub(in.OccurrenceTimes[i-1]) != spacing {
				return nil, fmt.Errorf("%w: occurrence %d does not follow the %s cadence",
					ErrInvalidSeries, i, in.Frequency)
			}
		}
	}

	var seriesID *uuid.UUID
	if in.Frequency != FrequencySingle && len(in.OccurrenceTimes) > 1 {
		id := uuid.New()
		seriesID = &id
	}

	appts := make([]Appointment, 0, len(in.OccurrenceTimes))
	for _, t := range in.OccurrenceTimes {
		appts = append(appts, Appointment{
			ID:             uuid.New(),
			SeriesID:       seriesID,
			PatientID:      in.PatientID,
			ProfessionalID: in.ProfessionalID,
			CompanyID:      in.CompanyID,
			Time:           t,
			SessionValue:   in.SessionValue,
			Status:         StatusScheduled,
		})
	}

	if err := s.repo.InsertBatch(ctx, appts); err != nil {
		return nil, fmt.Errorf("create series: %w", err)
	}

	payload := map[string]any{
		"patient_id":      in.PatientID.String(),
		"professional_id": in.ProfessionalID.String(),
		"frequency":       string(in.Frequency),
		"occurrences":     len(appts),
	}
	if seriesID != nil {
		payload["series_id"] = seriesID.String()
		s.logEvent(ctx, *seriesID, EventSeriesCreated, payload)
	} else {
		s.logEvent(ctx, appts[0].ID, EventSeriesCreated, payload)
	}
	s.notifyProfessional(ctx, in.ProfessionalID, "series_created", payload)

	return appts, nil
}

// UpdateStatus resolves a scheduled session as completed or cancelled.
// Terminal states reject further transitions, so a retried call fails with
// ErrInvalidTransition and changes nothing.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, to Status) (*Appointment, error) {
	if to != StatusCompleted && to != StatusCancelled {
		return nil, fmt.Errorf("%w: cannot move to %q", ErrInvalidTransition, to)
	}

	appt, err := s.repo.UpdateStatus(ctx, id, StatusScheduled, to)
	if err != nil {
		return nil, err
	}

	eventType := EventAppointmentCompleted
	notifyType := "appointment_completed"
	if to == StatusCancelled {
		eventType = EventAppointmentCancelled
		notifyType = "appointment_cancelled"
	}
	s.logEvent(ctx, appt.ID, eventType, map[string]any{
		"appointment_time": appt.Time,
	})
	s.notifyProfessional(ctx, appt.ProfessionalID, notifyType, map[string]any{
		"appointment_id":   appt.ID.String(),
		"appointment_time": appt.Time,
	})

	return appt, nil
}

// Reschedule changes the session time in place. Series siblings are not
// touched; terminal appointments cannot move.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, newTime time.Time) (*Appointment, error) {
	if newTime.IsZero() {
		return nil, fmt.Errorf("%w: new time is required", ErrInvalidSeries)
	}

	appt, err := s.repo.UpdateTime(ctx, id, newTime)
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, appt.ID, EventAppointmentRescheduled, map[string]any{
		"appointment_time": appt.Time,
	})
	s.notifyProfessional(ctx, appt.ProfessionalID, "appointment_rescheduled", map[string]any{
		"appointment_id":   appt.ID.String(),
		"appointment_time": appt.Time,
	})

	return appt, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// PendingReview lists scheduled appointments whose time has elapsed. Pass a
// nil professional for the admin-wide view. The filter is computed lazily
// at read time; nothing schedules a background sweep.
func (s *Service) PendingReview(ctx context.Context, professionalID *uuid.UUID) ([]Appointment, error) {
	return s.repo.ListPendingReview(ctx, professionalID, time.Now())
}

func (s *Service) ListByProfessional(ctx context.Context, professionalID uuid.UUID, from, to time.Time, limit, offset int) ([]Appointment, error) {
	limit, offset = clampPage(limit, offset)
	return s.repo.ListByProfessional(ctx, professionalID, from, to, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, from, to time.Time, limit, offset int) ([]Appointment, error) {
	limit, offset = clampPage(limit, offset)
	return s.repo.ListByPatient(ctx, patientID, from, to, limit, offset)
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

func (s *Service) logEvent(ctx context.Context, entityID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("event", eventType).Msg("marshal event payload")
		data = nil
	}

	id := entityID
	ev := eventlog.Event{
		EventType: eventType,
		EntityID:  &id,
		Payload:   data,
		CreatedAt: time.Now(),
	}

	if err := s.events.Insert(ctx, ev); err != nil {
		s.log.Error().Err(err).
			Str("event", eventType).
			Str("entity_id", entityID.String()).
			Msg("insert event log")
	}
}

func (s *Service) notifyProfessional(ctx context.Context, professionalID uuid.UUID, eventType string, payload map[string]any) {
	ev := notify.Event{
		Type:      eventType,
		Channel:   notify.ChannelSocket,
		Recipient: fmt.Sprintf("professional:%s", professionalID),
		Payload:   payload,
	}
	if err := s.notifier.Publish(ctx, ev); err != nil {
		s.log.Error().Err(err).
			Str("event", eventType).
			Str("professional_id", professionalID.String()).
			Msg("publish notification")
	}
}
