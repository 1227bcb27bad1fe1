package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/solacemind/clinic-scheduling/internal/appointment"
	"github.com/solacemind/clinic-scheduling/internal/availability"
	"github.com/solacemind/clinic-scheduling/internal/screening"
	"github.com/solacemind/clinic-scheduling/internal/triage"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeDomainError maps the scheduling error taxonomy onto HTTP statuses.
// SlotUnavailable keeps its own code so clients know to re-poll the slot
// list and retry.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, availability.ErrSlotNotFound),
		errors.Is(err, triage.ErrRecordNotFound),
		errors.Is(err, screening.ErrNotFound),
		errors.Is(err, appointment.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())

	case errors.Is(err, screening.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", "slot was booked concurrently, re-fetch available slots and retry")

	case errors.Is(err, availability.ErrSlotBooked),
		errors.Is(err, availability.ErrSlotOverlap),
		errors.Is(err, screening.ErrBookingExists),
		errors.Is(err, screening.ErrTriageNotBookable),
		errors.Is(err, screening.ErrInvalidState):
		writeError(w, http.StatusConflict, "conflict", err.Error())

	case errors.Is(err, triage.ErrInvalidTransition),
		errors.Is(err, appointment.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())

	case errors.Is(err, availability.ErrInvalidWindow),
		errors.Is(err, triage.ErrInvalidRecord),
		errors.Is(err, appointment.ErrInvalidSeries):
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())

	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
