package carehome

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/carehome-allocation/internal/care"
)

// ErrOutsideCourse means the prescription is inactive or not valid today.
var ErrOutsideCourse = fmt.Errorf("prescription not in course: %w", care.ErrCompliance)

type NewPrescription struct {
	PatientID  string
	Medication string
	Dosage     string
	Frequency  string
	StartDate  time.Time // zero means today
	EndDate    time.Time // zero means open-ended
}

func (n NewPrescription) validate() error {
	if strings.TrimSpace(n.Medication) == "" {
		return fmt.Errorf("%w: medication is required", care.ErrInvalidInput)
	}
	if strings.TrimSpace(n.Dosage) == "" {
		return fmt.Errorf("%w: dosage is required", care.ErrInvalidInput)
	}
	if strings.TrimSpace(n.Frequency) == "" {
		return fmt.Errorf("%w: frequency is required", care.ErrInvalidInput)
	}
	return nil
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddPrescription records a doctor's prescription for an admitted patient.
func (s *Service) AddPrescription(ctx context.Context, req NewPrescription) (_ care.Prescription, err error) {
	defer s.observe("add_prescription", s.now(), &err)

	actor, err := s.authorize(ctx, care.ActionAddPrescription)
	if err != nil {
		return care.Prescription{}, err
	}

	if err := req.validate(); err != nil {
		return care.Prescription{}, err
	}

	patient, err := s.activePatient(ctx, req.PatientID)
	if err != nil {
		return care.Prescription{}, err
	}

	now := s.now().UTC()
	start := calendarDay(now)
	if !req.StartDate.IsZero() {
		start = calendarDay(req.StartDate)
	}
	var end time.Time
	if !req.EndDate.IsZero() {
		end = calendarDay(req.EndDate)
		if end.Before(start) {
			return care.Prescription{}, fmt.Errorf("%w: end date %s is before start date %s",
				care.ErrInvalidInput, end.Format(time.DateOnly), start.Format(time.DateOnly))
		}
	}

	p := care.Prescription{
		ID:         uuid.NewString(),
		PatientID:  patient.ID,
		DoctorID:   actor.ID,
		Medication: strings.TrimSpace(req.Medication),
		Dosage:     strings.TrimSpace(req.Dosage),
		Frequency:  strings.TrimSpace(req.Frequency),
		StartDate:  start,
		EndDate:    end,
		CreatedAt:  now,
		Active:     true,
	}
	if err := s.repo.CreatePrescription(ctx, p); err != nil {
		return care.Prescription{}, fmt.Errorf("create prescription: %w", err)
	}

	s.record(ctx, actor, care.ActionAddPrescription, patient.ID,
		fmt.Sprintf("added prescription %s: %s %s %s", p.ID, p.Medication, p.Dosage, p.Frequency))
	s.log.Info("prescription added",
		zap.String("prescription_id", p.ID),
		zap.String("patient_id", patient.ID),
		zap.String("actor_id", actor.ID),
	)
	return p, nil
}

// AdministerMedication records a dose against an active prescription whose
// course covers today. The patient must still be admitted.
func (s *Service) AdministerMedication(ctx context.Context, prescriptionID, notes string) (_ care.Administration, err error) {
	defer s.observe("administer_medication", s.now(), &err)

	actor, err := s.authorize(ctx, care.ActionAdministerMedication)
	if err != nil {
		return care.Administration{}, err
	}

	p, err := s.repo.GetPrescriptionByID(ctx, prescriptionID)
	if err != nil {
		if errors.Is(err, care.ErrNotFound) {
			return care.Administration{}, fmt.Errorf("%w: %s", ErrPrescriptionNotFound, prescriptionID)
		}
		return care.Administration{}, fmt.Errorf("load prescription: %w", err)
	}

	if _, err := s.activePatient(ctx, p.PatientID); err != nil {
		return care.Administration{}, err
	}

	now := s.now().UTC()
	if !p.Active || !p.CoversDay(now) {
		return care.Administration{}, fmt.Errorf("%w: %s on %s", ErrOutsideCourse, p.ID, now.Format(time.DateOnly))
	}

	a := care.Administration{
		ID:             uuid.NewString(),
		PrescriptionID: p.ID,
		PatientID:      p.PatientID,
		NurseID:        actor.ID,
		AdministeredAt: now,
		Notes:          strings.TrimSpace(notes),
	}
	if err := s.repo.RecordAdministration(ctx, a); err != nil {
		return care.Administration{}, fmt.Errorf("record administration: %w", err)
	}

	detail := "administered " + p.Medication
	if a.Notes != "" {
		detail += ": " + a.Notes
	}
	s.record(ctx, actor, care.ActionAdministerMedication, p.ID, detail)
	s.log.Info("medication administered",
		zap.String("prescription_id", p.ID),
		zap.String("patient_id", p.PatientID),
		zap.String("actor_id", actor.ID),
	)
	return a, nil
}

// PatientPrescriptions lists the patient's active prescriptions, newest first.
func (s *Service) PatientPrescriptions(ctx context.Context, patientID string) ([]care.Prescription, error) {
	if _, err := s.authorize(ctx, care.ActionViewPatient); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetPatientByID(ctx, patientID); err != nil {
		if errors.Is(err, care.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPatientNotFound, patientID)
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}
	list, err := s.repo.ListPrescriptionsForPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list prescriptions: %w", err)
	}
	return list, nil
}

// Administrations lists the doses given against a prescription, oldest first.
func (s *Service) Administrations(ctx context.Context, prescriptionID string) ([]care.Administration, error) {
	if _, err := s.authorize(ctx, care.ActionViewPatient); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetPrescriptionByID(ctx, prescriptionID); err != nil {
		if errors.Is(err, care.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPrescriptionNotFound, prescriptionID)
		}
		return nil, fmt.Errorf("load prescription: %w", err)
	}
	list, err := s.repo.ListAdministrations(ctx, prescriptionID)
	if err != nil {
		return nil, fmt.Errorf("list administrations: %w", err)
	}
	return list, nil
}
