package carehome

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hackgods/carehome-allocation/internal/beds"
	"github.com/hackgods/carehome-allocation/internal/care"
	"github.com/hackgods/carehome-allocation/internal/shifts"
)

// MemoryRepository keeps everything in process. It backs the memory store
// driver and the service tests.
type MemoryRepository struct {
	mu              sync.RWMutex
	patients        map[string]care.Patient
	staff           map[string]care.Staff
	beds            map[string]string // bed id -> patient id
	shifts          map[string]shifts.Shift
	prescriptions   map[string]care.Prescription
	administrations []care.Administration
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		patients:      make(map[string]care.Patient),
		staff:         make(map[string]care.Staff),
		beds:          make(map[string]string),
		shifts:        make(map[string]shifts.Shift),
		prescriptions: make(map[string]care.Prescription),
	}
}

// AddStaff registers a staff member, replacing any with the same id.
func (r *MemoryRepository) AddStaff(s care.Staff) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.staff[s.ID] = s
}

// CreateStaff inserts a new staff member; the id and username must be unused.
func (r *MemoryRepository) CreateStaff(_ context.Context, s care.Staff) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.staff[s.ID]; exists {
		return ErrStaffExists
	}
	for _, other := range r.staff {
		if other.Username == s.Username {
			return ErrStaffExists
		}
	}
	r.staff[s.ID] = s
	return nil
}

func (r *MemoryRepository) GetPatientByID(_ context.Context, id string) (*care.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) GetStaffByID(_ context.Context, id string) (*care.Staff, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.staff[id]
	if !ok {
		return nil, ErrStaffNotFound
	}
	return &s, nil
}

func (r *MemoryRepository) GetStaffByUsername(_ context.Context, username string) (*care.Staff, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.staff {
		if s.Username == username {
			s := s
			return &s, nil
		}
	}
	return nil, ErrStaffNotFound
}

func (r *MemoryRepository) AdmitPatient(_ context.Context, p care.Patient, bed beds.Transition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.patients[p.ID]; exists {
		return ErrPatientExists
	}
	if err := r.checkLocked([]beds.Transition{bed}); err != nil {
		return err
	}
	r.patients[p.ID] = p
	r.applyLocked([]beds.Transition{bed})
	return nil
}

func (r *MemoryRepository) DischargePatient(_ context.Context, patientID string, changes ...beds.Transition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.patients[patientID]
	if !ok {
		return ErrPatientNotFound
	}
	if err := r.checkLocked(changes); err != nil {
		return err
	}
	p.Active = false
	r.patients[patientID] = p
	r.applyLocked(changes)
	return nil
}

func (r *MemoryRepository) LoadBedState(_ context.Context) ([]beds.BedState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]beds.BedState, 0, len(r.beds))
	for bedID, patientID := range r.beds {
		p, ok := r.patients[patientID]
		if !ok {
			return nil, fmt.Errorf("bed %s holds unknown patient %s", bedID, patientID)
		}
		out = append(out, beds.BedState{
			BedID:    bedID,
			Occupant: &beds.Occupant{PatientID: p.ID, Gender: p.Gender, Isolation: p.NeedsIsolation},
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BedID < out[j].BedID })
	return out, nil
}

func (r *MemoryRepository) CommitBedTransition(_ context.Context, changes ...beds.Transition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkLocked(changes); err != nil {
		return err
	}
	r.applyLocked(changes)
	return nil
}

// checkLocked walks the transitions in order against a scratch view, so a
// move that frees one bed and fills another validates as a unit.
func (r *MemoryRepository) checkLocked(changes []beds.Transition) error {
	view := make(map[string]string, len(changes))
	current := func(bedID string) string {
		if v, ok := view[bedID]; ok {
			return v
		}
		return r.beds[bedID]
	}
	for _, c := range changes {
		if current(c.BedID) != c.From {
			return fmt.Errorf("%w: bed %s", ErrStaleBed, c.BedID)
		}
		view[c.BedID] = c.To
	}
	return nil
}

func (r *MemoryRepository) applyLocked(changes []beds.Transition) {
	for _, c := range changes {
		if c.To == "" {
			delete(r.beds, c.BedID)
			continue
		}
		r.beds[c.BedID] = c.To
	}
}

func (r *MemoryRepository) GetShiftByID(_ context.Context, id string) (*shifts.Shift, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.shifts[id]
	if !ok {
		return nil, ErrShiftNotFound
	}
	return &s, nil
}

func (r *MemoryRepository) LoadShiftsForStaff(_ context.Context, staffID string) ([]shifts.Shift, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []shifts.Shift
	for _, s := range r.shifts {
		if s.Assigned && s.StaffID == staffID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) CommitShift(_ context.Context, s shifts.Shift) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shifts[s.ID] = s
	return nil
}

func (r *MemoryRepository) CreatePrescription(_ context.Context, p care.Prescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.patients[p.PatientID]; !ok {
		return ErrPatientNotFound
	}
	if _, ok := r.staff[p.DoctorID]; !ok {
		return ErrStaffNotFound
	}
	r.prescriptions[p.ID] = p
	return nil
}

func (r *MemoryRepository) GetPrescriptionByID(_ context.Context, id string) (*care.Prescription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.prescriptions[id]
	if !ok {
		return nil, ErrPrescriptionNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) ListPrescriptionsForPatient(_ context.Context, patientID string) ([]care.Prescription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []care.Prescription
	for _, p := range r.prescriptions {
		if p.Active && p.PatientID == patientID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryRepository) RecordAdministration(_ context.Context, a care.Administration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.prescriptions[a.PrescriptionID]; !ok {
		return ErrPrescriptionNotFound
	}
	r.administrations = append(r.administrations, a)
	return nil
}

func (r *MemoryRepository) ListAdministrations(_ context.Context, prescriptionID string) ([]care.Administration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []care.Administration
	for _, a := range r.administrations {
		if a.PrescriptionID == prescriptionID {
			out = append(out, a)
		}
	}
	return out, nil
}
