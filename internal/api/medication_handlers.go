package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/carehome-allocation/internal/carehome"
)

func addStaffHandler(svc *carehome.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddStaffRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		staff, err := svc.AddStaff(r.Context(), carehome.NewStaff{
			ID:        req.ID,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Gender:    req.Gender,
			Age:       req.Age,
			Role:      req.Role,
			Username:  req.Username,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toStaffResponse(staff))
	}
}

// parseDate treats an empty string as unset.
func parseDate(field, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be YYYY-MM-DD", field)
	}
	return t, nil
}

func addPrescriptionHandler(svc *carehome.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddPrescriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		start, err := parseDate("start_date", req.StartDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
			return
		}
		end, err := parseDate("end_date", req.EndDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
			return
		}

		p, err := svc.AddPrescription(r.Context(), carehome.NewPrescription{
			PatientID:  chi.URLParam(r, "id"),
			Medication: req.Medication,
			Dosage:     req.Dosage,
			Frequency:  req.Frequency,
			StartDate:  start,
			EndDate:    end,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toPrescriptionResponse(p))
	}
}

func patientPrescriptionsHandler(svc *carehome.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID := chi.URLParam(r, "id")
		list, err := svc.PatientPrescriptions(r.Context(), patientID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		resp := PrescriptionsResponse{PatientID: patientID, Prescriptions: make([]PrescriptionResponse, 0, len(list))}
		for _, p := range list {
			resp.Prescriptions = append(resp.Prescriptions, toPrescriptionResponse(p))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func administerMedicationHandler(svc *carehome.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// the body is optional
		var req AdministerMedicationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		a, err := svc.AdministerMedication(r.Context(), chi.URLParam(r, "id"), req.Notes)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toAdministrationResponse(a))
	}
}

func administrationsHandler(svc *carehome.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prescriptionID := chi.URLParam(r, "id")
		list, err := svc.Administrations(r.Context(), prescriptionID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		resp := AdministrationsResponse{PrescriptionID: prescriptionID, Administrations: make([]AdministrationResponse, 0, len(list))}
		for _, a := range list {
			resp.Administrations = append(resp.Administrations, toAdministrationResponse(a))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
