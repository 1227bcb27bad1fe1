package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/solacemind/clinic-scheduling/internal/screening"
)

func requestBookingHandler(svc *screening.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RequestBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		triageID, err := uuid.Parse(req.TriageRecordID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_triage_record_id", "triage_record_id must be a valid UUID")
			return
		}

		slotID, err := uuid.Parse(req.SlotID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "slot_id must be a valid UUID")
			return
		}

		appt, err := svc.RequestBooking(r.Context(), triageID, slotID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toScreeningResponse(appt))
	}
}

func confirmBookingHandler(svc *screening.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		var req ConfirmBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.ConfirmBooking(r.Context(), id, req.MeetingLink)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toScreeningResponse(appt))
	}
}

func rescheduleBookingHandler(svc *screening.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		var req RescheduleBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		newSlotID, err := uuid.Parse(req.NewSlotID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_new_slot_id", "new_slot_id must be a valid UUID")
			return
		}

		appt, err := svc.RescheduleBooking(r.Context(), id, newSlotID, req.MeetingLink)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toScreeningResponse(appt))
	}
}

func cancelBookingHandler(svc *screening.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		appt, err := svc.CancelBooking(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toScreeningResponse(appt))
	}
}

func getScreeningHandler(svc *screening.Service) http.HandlerFunc {
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

		writeJSON(w, http.StatusOK, toScreeningResponse(appt))
	}
}

func listScreeningsHandler(svc *screening.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// ?triage_record_id= is a point lookup: the live (non-cancelled)
		// screening for one triage record, or 404.
		if v := r.URL.Query().Get("triage_record_id"); v != "" {
			triageID, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_triage_record_id", "triage_record_id must be a valid UUID")
				return
			}

			appt, err := svc.LiveByTriage(r.Context(), triageID)
			if err != nil {
				writeDomainError(w, err)
				return
			}

			writeJSON(w, http.StatusOK, toScreeningResponse(appt))
			return
		}

		var status *screening.Status
		if v := r.URL.Query().Get("status"); v != "" {
			s := screening.Status(v)
			status = &s
		}

		limit, offset := pageParams(r)

		appts, err := svc.List(r.Context(), status, limit, offset)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		out := make([]ScreeningResponse, 0, len(appts))
		for i := range appts {
			out = append(out, toScreeningResponse(&appts[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}
