package api

import (
	"time"

	"github.com/hackgods/carehome-allocation/internal/beds"
	"github.com/hackgods/carehome-allocation/internal/care"
	"github.com/hackgods/carehome-allocation/internal/carehome"
	"github.com/hackgods/carehome-allocation/internal/shifts"
)

type AdmitPatientRequest struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Age            int    `json:"age"`
	Gender         string `json:"gender"`
	NeedsIsolation bool   `json:"needs_isolation"`
}

type MovePatientRequest struct {
	BedID string `json:"bed_id"`
}

type AssignShiftRequest struct {
	StaffID   string `json:"staff_id"`
	Day       string `json:"day"`
	ShiftType string `json:"shift_type"`
}

type PlacementResponse struct {
	PatientID      string    `json:"patient_id"`
	Name           string    `json:"name"`
	Gender         string    `json:"gender"`
	NeedsIsolation bool      `json:"needs_isolation"`
	AdmittedOn     time.Time `json:"admitted_on"`
	Active         bool      `json:"active"`
	BedID          string    `json:"bed_id,omitempty"`
	RoomID         string    `json:"room_id,omitempty"`
	WardID         string    `json:"ward_id,omitempty"`
	FromBedID      string    `json:"from_bed_id,omitempty"`
}

func toPlacementResponse(p *carehome.Placement) PlacementResponse {
	return PlacementResponse{
		PatientID:      p.Patient.ID,
		Name:           p.Patient.Name(),
		Gender:         string(p.Patient.Gender),
		NeedsIsolation: p.Patient.NeedsIsolation,
		AdmittedOn:     p.Patient.AdmittedOn,
		Active:         p.Patient.Active,
		BedID:          p.BedID,
		RoomID:         p.RoomID,
		WardID:         p.WardID,
		FromBedID:      p.FromBedID,
	}
}

type CanMoveResponse struct {
	PatientID string `json:"patient_id"`
	BedID     string `json:"bed_id"`
	CanMove   bool   `json:"can_move"`
}

type DischargeResponse struct {
	PatientID         string `json:"patient_id"`
	BedID             string `json:"bed_id,omitempty"`
	AlreadyDischarged bool   `json:"already_discharged"`
}

type BedResponse struct {
	BedID     string `json:"bed_id"`
	RoomID    string `json:"room_id"`
	WardID    string `json:"ward_id"`
	Reserved  bool   `json:"reserved_for_isolation"`
	Occupied  bool   `json:"occupied"`
	PatientID string `json:"patient_id,omitempty"`
	Gender    string `json:"gender,omitempty"`
	Isolation bool   `json:"isolation,omitempty"`
}

type BedsResponse struct {
	Total     int           `json:"total"`
	Occupied  int           `json:"occupied"`
	Available int           `json:"available"`
	Beds      []BedResponse `json:"beds"`
}

type AvailableBedsResponse struct {
	Count  int      `json:"count"`
	BedIDs []string `json:"bed_ids"`
}

func toBedsResponse(alloc *beds.Allocator, states []beds.BedState) BedsResponse {
	resp := BedsResponse{Total: len(states), Beds: make([]BedResponse, 0, len(states))}
	fac := alloc.Facility()
	policy := alloc.Policy()
	for _, st := range states {
		b := BedResponse{BedID: st.BedID, Reserved: policy.IsReserved(st.BedID)}
		if bed, ok := fac.Bed(st.BedID); ok {
			b.RoomID = bed.RoomID
			b.WardID = bed.WardID
		}
		if st.Occupant != nil {
			b.Occupied = true
			b.PatientID = st.Occupant.PatientID
			b.Gender = string(st.Occupant.Gender)
			b.Isolation = st.Occupant.Isolation
			resp.Occupied++
		}
		resp.Beds = append(resp.Beds, b)
	}
	resp.Available = resp.Total - resp.Occupied
	return resp
}

type ShiftResponse struct {
	ID        string `json:"id"`
	StaffID   string `json:"staff_id,omitempty"`
	Day       string `json:"day"`
	ShiftType string `json:"shift_type"`
	StartHour int    `json:"start_hour"`
	EndHour   int    `json:"end_hour"`
	Hours     int    `json:"hours"`
	Assigned  bool   `json:"assigned"`
}

func toShiftResponse(s shifts.Shift) ShiftResponse {
	w := s.Type.Window()
	return ShiftResponse{
		ID:        s.ID,
		StaffID:   s.StaffID,
		Day:       shifts.DayName(s.Day),
		ShiftType: string(s.Type),
		StartHour: w.Start,
		EndHour:   w.End,
		Hours:     s.Duration(),
		Assigned:  s.Assigned,
	}
}

type StaffShiftsResponse struct {
	StaffID    string          `json:"staff_id"`
	TotalHours int             `json:"total_hours"`
	Shifts     []ShiftResponse `json:"shifts"`
}

type AddStaffRequest struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Gender    string `json:"gender"`
	Age       int    `json:"age"`
	Role      string `json:"role"`
	Username  string `json:"username"`
}

type StaffResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Gender   string `json:"gender"`
	Age      int    `json:"age"`
	Role     string `json:"role"`
	Username string `json:"username"`
}

func toStaffResponse(s care.Staff) StaffResponse {
	return StaffResponse{
		ID:       s.ID,
		Name:     s.Name(),
		Gender:   string(s.Gender),
		Age:      s.Age,
		Role:     string(s.Role),
		Username: s.Username,
	}
}

// AddPrescriptionRequest dates are YYYY-MM-DD; both are optional.
type AddPrescriptionRequest struct {
	Medication string `json:"medication"`
	Dosage     string `json:"dosage"`
	Frequency  string `json:"frequency"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
}

type PrescriptionResponse struct {
	ID         string    `json:"id"`
	PatientID  string    `json:"patient_id"`
	DoctorID   string    `json:"doctor_id"`
	Medication string    `json:"medication"`
	Dosage     string    `json:"dosage"`
	Frequency  string    `json:"frequency"`
	StartDate  string    `json:"start_date"`
	EndDate    string    `json:"end_date,omitempty"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

func toPrescriptionResponse(p care.Prescription) PrescriptionResponse {
	resp := PrescriptionResponse{
		ID:         p.ID,
		PatientID:  p.PatientID,
		DoctorID:   p.DoctorID,
		Medication: p.Medication,
		Dosage:     p.Dosage,
		Frequency:  p.Frequency,
		StartDate:  p.StartDate.Format(time.DateOnly),
		Active:     p.Active,
		CreatedAt:  p.CreatedAt,
	}
	if !p.EndDate.IsZero() {
		resp.EndDate = p.EndDate.Format(time.DateOnly)
	}
	return resp
}

type PrescriptionsResponse struct {
	PatientID     string                 `json:"patient_id"`
	Prescriptions []PrescriptionResponse `json:"prescriptions"`
}

type AdministerMedicationRequest struct {
	Notes string `json:"notes"`
}

type AdministrationResponse struct {
	ID             string    `json:"id"`
	PrescriptionID string    `json:"prescription_id"`
	PatientID      string    `json:"patient_id"`
	NurseID        string    `json:"nurse_id"`
	AdministeredAt time.Time `json:"administered_at"`
	Notes          string    `json:"notes,omitempty"`
}

func toAdministrationResponse(a care.Administration) AdministrationResponse {
	return AdministrationResponse{
		ID:             a.ID,
		PrescriptionID: a.PrescriptionID,
		PatientID:      a.PatientID,
		NurseID:        a.NurseID,
		AdministeredAt: a.AdministeredAt,
		Notes:          a.Notes,
	}
}

type AdministrationsResponse struct {
	PrescriptionID  string                   `json:"prescription_id"`
	Administrations []AdministrationResponse `json:"administrations"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
