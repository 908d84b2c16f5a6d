package care

import (
	"fmt"
	"strings"
	"time"
)

type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

// ParseGender accepts MALE/FEMALE in any case, plus the M/F shorthands.
func ParseGender(s string) (Gender, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "MALE", "M":
		return GenderMale, nil
	case "FEMALE", "F":
		return GenderFemale, nil
	}
	return "", fmt.Errorf("%w: unknown gender %q", ErrInvalidInput, s)
}

func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

type Patient struct {
	ID             string
	FirstName      string
	LastName       string
	Age            int
	Gender         Gender
	NeedsIsolation bool
	AdmittedOn     time.Time
	Active         bool
}

func (p Patient) Name() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

type Staff struct {
	ID        string
	FirstName string
	LastName  string
	Gender    Gender
	Age       int
	Role      Role
	Username  string
}

func (s Staff) Name() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// Action names a mutating or viewing operation for authorization and audit.
type Action string

const (
	ActionAddPatient       Action = "ADD_PATIENT"
	ActionMovePatient      Action = "MOVE_PATIENT"
	ActionDischargePatient Action = "DISCHARGE_PATIENT"
	ActionViewPatient      Action = "VIEW_PATIENT"
	ActionAssignShift      Action = "ASSIGN_SHIFT"
	ActionModifyShift      Action = "MODIFY_SHIFT"
	ActionViewShifts       Action = "VIEW_SHIFTS"

	ActionAddPrescription      Action = "ADD_PRESCRIPTION"
	ActionAdministerMedication Action = "ADMINISTER_MEDICATION"
	ActionAddStaff             Action = "ADD_STAFF"
)

// Prescription is issued by a doctor for an admitted patient. EndDate is zero
// for an open-ended course.
type Prescription struct {
	ID         string
	PatientID  string
	DoctorID   string
	Medication string
	Dosage     string
	Frequency  string
	StartDate  time.Time
	EndDate    time.Time
	CreatedAt  time.Time
	Active     bool
}

// CoversDay reports whether day falls within the prescribed course.
func (p Prescription) CoversDay(day time.Time) bool {
	d := truncateDay(day)
	if d.Before(truncateDay(p.StartDate)) {
		return false
	}
	return p.EndDate.IsZero() || !d.After(truncateDay(p.EndDate))
}

// Administration records one dose given by a nurse against a prescription.
type Administration struct {
	ID             string
	PrescriptionID string
	PatientID      string
	NurseID        string
	AdministeredAt time.Time
	Notes          string
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
