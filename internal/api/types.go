package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/solacemind/clinic-scheduling/internal/appointment"
	"github.com/solacemind/clinic-scheduling/internal/availability"
	"github.com/solacemind/clinic-scheduling/internal/screening"
	"github.com/solacemind/clinic-scheduling/internal/triage"
)

// -- Availability --

type CreateSlotRequest struct {
	OwnerID   string    `json:"owner_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type GenerateSlotsRequest struct {
	OwnerID         string `json:"owner_id"`
	Date            string `json:"date"` // "2025-03-10"
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	DurationMinutes int    `json:"duration_minutes"`
	GapMinutes      int    `json:"gap_minutes"`
}

type EditSlotRequest struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type SlotResponse struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	IsBooked  bool      `json:"is_booked"`
}

type GenerateSlotsResponse struct {
	Created int            `json:"created"`
	Slots   []SlotResponse `json:"slots"`
}

func toSlotResponse(s availability.AvailabilitySlot) SlotResponse {
	return SlotResponse{
		ID:        s.ID,
		OwnerID:   s.OwnerID,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		IsBooked:  s.IsBooked,
	}
}

func toSlotResponses(slots []availability.AvailabilitySlot) []SlotResponse {
	out := make([]SlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, toSlotResponse(s))
	}
	return out
}

// -- Triage --

type SubmitTriageRequest struct {
	Kind    string          `json:"kind"`
	Name    string          `json:"name"`
	Email   string          `json:"email"`
	Phone   string          `json:"phone"`
	Answers json.RawMessage `json:"answers,omitempty"`
}

type TriageResponse struct {
	ID        uuid.UUID       `json:"id"`
	Kind      string          `json:"kind"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Phone     string          `json:"phone"`
	Answers   json.RawMessage `json:"answers,omitempty"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

func toTriageResponse(r *triage.TriageRecord) TriageResponse {
	return TriageResponse{
		ID:        r.ID,
		Kind:      string(r.Kind),
		Name:      r.Name,
		Email:     r.Email,
		Phone:     r.Phone,
		Answers:   r.Answers,
		Status:    string(r.Status),
		CreatedAt: r.CreatedAt,
	}
}

// -- Screening --

type RequestBookingRequest struct {
	TriageRecordID string `json:"triage_record_id"`
	SlotID         string `json:"slot_id"`
}

type ConfirmBookingRequest struct {
	MeetingLink string `json:"meeting_link"`
}

type RescheduleBookingRequest struct {
	NewSlotID   string `json:"new_slot_id"`
	MeetingLink string `json:"meeting_link"`
}

type ScreeningResponse struct {
	ID             uuid.UUID `json:"id"`
	TriageRecordID uuid.UUID `json:"triage_record_id"`
	SlotID         uuid.UUID `json:"slot_id"`
	StartTime      time.Time `json:"start_time"`
	MeetingLink    string    `json:"meeting_link,omitempty"`
	Status         string    `json:"status"`
}

func toScreeningResponse(a *screening.ScreeningAppointment) ScreeningResponse {
	return ScreeningResponse{
		ID:             a.ID,
		TriageRecordID: a.TriageRecordID,
		SlotID:         a.SlotID,
		StartTime:      a.StartTime,
		MeetingLink:    a.MeetingLink,
		Status:         string(a.Status),
	}
}

// -- Appointments --

type CreateSeriesRequest struct {
	PatientID       string      `json:"patient_id"`
	ProfessionalID  string      `json:"professional_id"`
	CompanyID       *string     `json:"company_id,omitempty"`
	SessionValue    *float64    `json:"session_value,omitempty"`
	Frequency       string      `json:"frequency"`
	OccurrenceTimes []time.Time `json:"occurrence_times"`
}

type UpdateAppointmentStatusRequest struct {
	Status string `json:"status"`
}

type RescheduleAppointmentRequest struct {
	AppointmentTime time.Time `json:"appointment_time"`
}

type AppointmentResponse struct {
	ID              uuid.UUID  `json:"id"`
	SeriesID        *uuid.UUID `json:"series_id,omitempty"`
	PatientID       uuid.UUID  `json:"patient_id"`
	ProfessionalID  uuid.UUID  `json:"professional_id"`
	CompanyID       *uuid.UUID `json:"company_id,omitempty"`
	AppointmentTime time.Time  `json:"appointment_time"`
	SessionValue    *float64   `json:"session_value,omitempty"`
	Status          string     `json:"status"`
	PendingReview   bool       `json:"pending_review"`
}

func toAppointmentResponse(a *appointment.Appointment, now time.Time) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID,
		SeriesID:        a.SeriesID,
		PatientID:       a.PatientID,
		ProfessionalID:  a.ProfessionalID,
		CompanyID:       a.CompanyID,
		AppointmentTime: a.Time,
		SessionValue:    a.SessionValue,
		Status:          string(a.Status),
		PendingReview:   a.PendingReview(now),
	}
}

func toAppointmentResponses(appts []appointment.Appointment, now time.Time) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(appts))
	for i := range appts {
		out = append(out, toAppointmentResponse(&appts[i], now))
	}
	return out
}
