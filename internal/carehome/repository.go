package carehome

import (
	"context"
	"fmt"

	"github.com/hackgods/carehome-allocation/internal/beds"
	"github.com/hackgods/carehome-allocation/internal/care"
	"github.com/hackgods/carehome-allocation/internal/shifts"
)

var (
	ErrPatientNotFound = fmt.Errorf("patient %w", care.ErrNotFound)
	ErrStaffNotFound   = fmt.Errorf("staff %w", care.ErrNotFound)
	ErrShiftNotFound   = fmt.Errorf("shift %w", care.ErrNotFound)
	ErrPatientExists   = fmt.Errorf("patient already exists: %w", care.ErrConflict)
	ErrStaffExists     = fmt.Errorf("staff id or username already taken: %w", care.ErrConflict)
	ErrStaleBed        = fmt.Errorf("bed changed concurrently: %w", care.ErrConflict)

	ErrPrescriptionNotFound = fmt.Errorf("prescription %w", care.ErrNotFound)
)

// Repository contains all storage interactions needed by the service.
// Bed transitions are compare-and-swap on Transition.From and apply all or nothing.
type Repository interface {
	// Directory
	GetPatientByID(ctx context.Context, id string) (*care.Patient, error)
	GetStaffByID(ctx context.Context, id string) (*care.Staff, error)
	GetStaffByUsername(ctx context.Context, username string) (*care.Staff, error)
	CreateStaff(ctx context.Context, s care.Staff) error

	// Patients and beds
	AdmitPatient(ctx context.Context, p care.Patient, bed beds.Transition) error
	DischargePatient(ctx context.Context, patientID string, changes ...beds.Transition) error
	LoadBedState(ctx context.Context) ([]beds.BedState, error)
	CommitBedTransition(ctx context.Context, changes ...beds.Transition) error

	// Shifts
	GetShiftByID(ctx context.Context, id string) (*shifts.Shift, error)
	LoadShiftsForStaff(ctx context.Context, staffID string) ([]shifts.Shift, error)
	CommitShift(ctx context.Context, s shifts.Shift) error

	// Medication
	CreatePrescription(ctx context.Context, p care.Prescription) error
	GetPrescriptionByID(ctx context.Context, id string) (*care.Prescription, error)
	// ListPrescriptionsForPatient returns active prescriptions, newest first.
	ListPrescriptionsForPatient(ctx context.Context, patientID string) ([]care.Prescription, error)
	RecordAdministration(ctx context.Context, a care.Administration) error
	ListAdministrations(ctx context.Context, prescriptionID string) ([]care.Administration, error)
}
