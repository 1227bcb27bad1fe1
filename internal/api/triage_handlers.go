package api

import (
	"encoding/json"
	"net/http"

	"github.com/solacemind/clinic-scheduling/internal/triage"
)

func submitTriageHandler(svc *triage.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SubmitTriageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		rec, err := svc.Submit(r.Context(), triage.SubmitInput{
			Kind:    triage.Kind(req.Kind),
			Name:    req.Name,
			Email:   req.Email,
			Phone:   req.Phone,
			Answers: req.Answers,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toTriageResponse(rec))
	}
}

func getTriageHandler(svc *triage.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		rec, err := svc.Get(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toTriageResponse(rec))
	}
}

func listTriageHandler(svc *triage.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var kind *triage.Kind
		if v := r.URL.Query().Get("kind"); v != "" {
			k := triage.Kind(v)
			if !k.Valid() {
				writeError(w, http.StatusBadRequest, "invalid_kind", "kind must be patient, professional or company")
				return
			}
			kind = &k
		}

		var status *triage.Status
		if v := r.URL.Query().Get("status"); v != "" {
			s := triage.Status(v)
			status = &s
		}

		limit, offset := pageParams(r)

		recs, err := svc.List(r.Context(), kind, status, limit, offset)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		out := make([]TriageResponse, 0, len(recs))
		for i := range recs {
			out = append(out, toTriageResponse(&recs[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func markTriageNotConfirmedHandler(svc *triage.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		rec, err := svc.MarkNotConfirmed(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toTriageResponse(rec))
	}
}

func reopenTriageHandler(svc *triage.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		rec, err := svc.Reopen(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toTriageResponse(rec))
	}
}
