package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/carehome-allocation/internal/carehome"
	"github.com/hackgods/carehome-allocation/internal/shifts"
)

func admitPatientHandler(svc *carehome.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdmitPatientRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		placement, err := svc.AdmitPatient(r.Context(), carehome.NewPatient{
			ID:             req.ID,
			FirstName:      req.FirstName,
			LastName:       req.LastName,
			Age:            req.Age,
			Gender:         req.Gender,
			NeedsIsolation: req.NeedsIsolation,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toPlacementResponse(placement))
	}
}

func patientBedHandler(svc *carehome.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		placement, err := svc.PatientBed(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPlacementResponse(placement))
	}
}

func movePatientHandler(svc *carehome.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MovePatientRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if strings.TrimSpace(req.BedID) == "" {
			writeError(w, http.StatusBadRequest, "invalid_bed_id", "bed_id is required")
			return
		}

		placement, err := svc.MovePatient(r.Context(), chi.URLParam(r, "id"), req.BedID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPlacementResponse(placement))
	}
}

func canMoveHandler(svc *carehome.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID := chi.URLParam(r, "id")
		bedID := r.URL.Query().Get("bed_id")
		if bedID == "" {
			writeError(w, http.StatusBadRequest, "invalid_bed_id", "bed_id query parameter is required")
			return
		}

		writeJSON(w, http.StatusOK, CanMoveResponse{
			PatientID: patientID,
			BedID:     bedID,
			CanMove:   svc.CanMove(r.Context(), patientID, bedID),
		})
	}
}

func dischargePatientHandler(svc *carehome.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := svc.DischargePatient(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, DischargeResponse{
			PatientID:         d.PatientID,
			BedID:             d.BedID,
			AlreadyDischarged: d.AlreadyDischarged,
		})
	}
}

func listBedsHandler(svc *carehome.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		states, err := svc.Beds(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toBedsResponse(svc.Allocator(), states))
	}
}

func availableBedsHandler(svc *carehome.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids, err := svc.AvailableBeds(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, AvailableBedsResponse{Count: len(ids), BedIDs: ids})
	}
}

func assignShiftHandler(svc *carehome.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AssignShiftRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		day, err := shifts.ParseDay(req.Day)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_day", err.Error())
			return
		}

		shift, err := svc.AssignShift(r.Context(), req.StaffID, day, req.ShiftType)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toShiftResponse(shift))
	}
}

func unassignShiftHandler(svc *carehome.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shift, err := svc.UnassignShift(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toShiftResponse(shift))
	}
}

func staffShiftsHandler(svc *carehome.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		staffID := chi.URLParam(r, "id")
		list, err := svc.StaffShifts(r.Context(), staffID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		resp := StaffShiftsResponse{StaffID: staffID, Shifts: make([]ShiftResponse, 0, len(list))}
		for _, s := range list {
			resp.TotalHours += s.Duration()
			resp.Shifts = append(resp.Shifts, toShiftResponse(s))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
