package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/solacemind/clinic-scheduling/internal/appointment"
	"github.com/solacemind/clinic-scheduling/internal/ical"
)

func createSeriesHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateSeriesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		professionalID, err := uuid.Parse(req.ProfessionalID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_professional_id", "professional_id must be a valid UUID")
			return
		}

		var companyID *uuid.UUID
		if req.CompanyID != nil {
			id, err := uuid.Parse(*req.CompanyID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_company_id", "company_id must be a valid UUID")
				return
			}
			companyID = &id
		}

		appts, err := svc.CreateSeries(r.Context(), appointment.SeriesInput{
			PatientID:       patientID,
			ProfessionalID:  professionalID,
			CompanyID:       companyID,
			SessionValue:    req.SessionValue,
			Frequency:       appointment.Frequency(req.Frequency),
			OccurrenceTimes: req.OccurrenceTimes,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponses(appts, time.Now()))
	}
}

func updateAppointmentStatusHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		var req UpdateAppointmentStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.UpdateStatus(r.Context(), id, appointment.Status(req.Status))
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt, time.Now()))
	}
}

func rescheduleAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		var req RescheduleAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.Reschedule(r.Context(), id, req.AppointmentTime)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt, time.Now()))
	}
}

func getAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		appt, err := svc.Get(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt, time.Now()))
	}
}

func appointmentICalHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		appt, err := svc.Get(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "text/calendar")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(ical.Render(appt)))
	}
}

func listAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, to := timeRange(r)
		limit, offset := pageParams(r)

		var (
			appts []appointment.Appointment
			err   error
		)

		switch {
		case r.URL.Query().Get("professional_id") != "":
			var professionalID uuid.UUID
			professionalID, err = uuid.Parse(r.URL.Query().Get("professional_id"))
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_professional_id", "professional_id must be a valid UUID")
				return
			}
			appts, err = svc.ListByProfessional(r.Context(), professionalID, from, to, limit, offset)

		case r.URL.Query().Get("patient_id") != "":
			var patientID uuid.UUID
			patientID, err = uuid.Parse(r.URL.Query().Get("patient_id"))
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
				return
			}
			appts, err = svc.ListByPatient(r.Context(), patientID, from, to, limit, offset)

		default:
			writeError(w, http.StatusBadRequest, "missing_filter", "professional_id or patient_id is required")
			return
		}

		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponses(appts, time.Now()))
	}
}

func pendingReviewHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var professionalID *uuid.UUID
		if v := r.URL.Query().Get("professional_id"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_professional_id", "professional_id must be a valid UUID")
				return
			}
			professionalID = &id
		}

		appts, err := svc.PendingReview(r.Context(), professionalID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponses(appts, time.Now()))
	}
}
