package carehome

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/carehome-allocation/internal/beds"
	"github.com/hackgods/carehome-allocation/internal/care"
)

// a picked bed can be taken between selection and the room lock
const maxAdmitAttempts = 3

type NewPatient struct {
	ID             string
	FirstName      string
	LastName       string
	Age            int
	Gender         string
	NeedsIsolation bool
}

func (n NewPatient) toPatient(now time.Time) (care.Patient, error) {
	first := strings.TrimSpace(n.FirstName)
	last := strings.TrimSpace(n.LastName)
	if first == "" || last == "" {
		return care.Patient{}, fmt.Errorf("%w: first and last name are required", care.ErrInvalidInput)
	}
	if n.Age < 0 {
		return care.Patient{}, fmt.Errorf("%w: age cannot be negative", care.ErrInvalidInput)
	}
	gender, err := care.ParseGender(n.Gender)
	if err != nil {
		return care.Patient{}, err
	}
	id := strings.TrimSpace(n.ID)
	if id == "" {
		id = uuid.NewString()
	}
	return care.Patient{
		ID:             id,
		FirstName:      first,
		LastName:       last,
		Age:            n.Age,
		Gender:         gender,
		NeedsIsolation: n.NeedsIsolation,
		AdmittedOn:     now.UTC(),
		Active:         true,
	}, nil
}

// Placement says where a patient is (or was moved to).
type Placement struct {
	Patient   care.Patient
	BedID     string
	RoomID    string
	WardID    string
	FromBedID string
}

func (s *Service) placement(p care.Patient, bedID string) *Placement {
	pl := &Placement{Patient: p, BedID: bedID}
	if bed, ok := s.allocator.Facility().Bed(bedID); ok {
		pl.RoomID = bed.RoomID
		pl.WardID = bed.WardID
	}
	return pl
}

func occupantOf(p care.Patient) beds.Occupant {
	return beds.Occupant{PatientID: p.ID, Gender: p.Gender, Isolation: p.NeedsIsolation}
}

func (s *Service) syncBeds(ctx context.Context) error {
	return s.allocator.Sync(func() ([]beds.BedState, error) {
		return s.repo.LoadBedState(ctx)
	})
}

// activePatient loads the patient and treats a discharged one as unknown.
func (s *Service) activePatient(ctx context.Context, id string) (*care.Patient, error) {
	p, err := s.repo.GetPatientByID(ctx, id)
	if err != nil {
		if errors.Is(err, care.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPatientNotFound, id)
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if !p.Active {
		return nil, fmt.Errorf("%w: %s is discharged", ErrPatientNotFound, id)
	}
	return p, nil
}

// AdmitPatient registers the patient and places them in the first suitable bed.
func (s *Service) AdmitPatient(ctx context.Context, req NewPatient) (_ *Placement, err error) {
	defer s.observe("admit_patient", s.now(), &err)

	actor, err := s.authorize(ctx, care.ActionAddPatient)
	if err != nil {
		return nil, err
	}

	patient, err := req.toPatient(s.now())
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetPatientByID(ctx, patient.ID); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrPatientExists, patient.ID)
	} else if !errors.Is(err, care.ErrNotFound) {
		return nil, fmt.Errorf("check patient: %w", err)
	}

	occ := occupantOf(patient)
	var bedID string
	for attempt := 1; ; attempt++ {
		if err := s.syncBeds(ctx); err != nil {
			return nil, err
		}
		bed, ok := s.allocator.FindSuitableBed(occ)
		if !ok {
			return nil, fmt.Errorf("%w: %s patient %s (isolation=%t)", ErrNoSuitableBed, patient.Gender, patient.ID, patient.NeedsIsolation)
		}

		err = s.withLocks(ctx, []string{roomLockKey(bed.RoomID)}, func(lockCtx context.Context) error {
			if err := s.syncBeds(lockCtx); err != nil {
				return err
			}
			return s.allocator.Assign(bed.ID, occ, func(changes []beds.Transition) error {
				return s.repo.AdmitPatient(lockCtx, patient, changes[0])
			})
		})
		if err == nil {
			bedID = bed.ID
			break
		}
		if errors.Is(err, ErrPatientExists) {
			return nil, err
		}
		retry := errors.Is(err, care.ErrConflict) || errors.Is(err, care.ErrCompliance)
		if !retry || attempt == maxAdmitAttempts {
			return nil, err
		}
		s.log.Info("bed taken before placement, picking again",
			zap.String("patient_id", patient.ID),
			zap.String("bed_id", bed.ID),
			zap.Int("attempt", attempt),
		)
	}

	s.record(ctx, actor, care.ActionAddPatient, patient.ID, "admitted to bed "+bedID)
	s.metrics.SetCensus(s.allocator.Census())
	s.log.Info("patient admitted",
		zap.String("patient_id", patient.ID),
		zap.String("bed_id", bedID),
		zap.String("actor_id", actor.ID),
	)
	return s.placement(patient, bedID), nil
}

// MovePatient moves a bedded patient to bedID.
func (s *Service) MovePatient(ctx context.Context, patientID, bedID string) (_ *Placement, err error) {
	defer s.observe("move_patient", s.now(), &err)

	actor, err := s.authorize(ctx, care.ActionMovePatient)
	if err != nil {
		return nil, err
	}

	patient, err := s.activePatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	if err := s.syncBeds(ctx); err != nil {
		return nil, err
	}
	from, ok := s.allocator.BedOf(patient.ID)
	if !ok {
		return nil, fmt.Errorf("%w: patient %s does not hold a bed", care.ErrNotFound, patient.ID)
	}
	fac := s.allocator.Facility()
	target, ok := fac.RoomOf(bedID)
	if !ok {
		return nil, fmt.Errorf("%w: bed %s", care.ErrNotFound, bedID)
	}
	source, _ := fac.RoomOf(from)

	err = s.withLocks(ctx, []string{roomLockKey(source.ID), roomLockKey(target.ID)}, func(lockCtx context.Context) error {
		if err := s.syncBeds(lockCtx); err != nil {
			return err
		}
		if current, _ := s.allocator.BedOf(patient.ID); current != from {
			return fmt.Errorf("%w: patient %s moved concurrently", care.ErrConflict, patient.ID)
		}
		return s.allocator.Move(patient.ID, bedID, func(changes []beds.Transition) error {
			return s.repo.CommitBedTransition(lockCtx, changes...)
		})
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, actor, care.ActionMovePatient, patient.ID, fmt.Sprintf("moved from %s to %s", from, bedID))
	s.metrics.SetCensus(s.allocator.Census())
	s.log.Info("patient moved",
		zap.String("patient_id", patient.ID),
		zap.String("from_bed_id", from),
		zap.String("bed_id", bedID),
		zap.String("actor_id", actor.ID),
	)
	pl := s.placement(*patient, bedID)
	pl.FromBedID = from
	return pl, nil
}

// CanMove reports whether MovePatient would pass its placement checks right
// now. It does not authorize and never fails; a store error reads as false.
func (s *Service) CanMove(ctx context.Context, patientID, bedID string) bool {
	if err := s.syncBeds(ctx); err != nil {
		s.log.Warn("can-move: refresh beds", zap.Error(err))
		return false
	}
	return s.allocator.CanMove(patientID, bedID)
}

type Discharge struct {
	PatientID string
	BedID     string // freed bed, empty if none was held
	// AlreadyDischarged is set when the call changed nothing.
	AlreadyDischarged bool
}

// DischargePatient frees the patient's bed and marks them inactive.
// Discharging twice succeeds without recording anything the second time.
func (s *Service) DischargePatient(ctx context.Context, patientID string) (_ *Discharge, err error) {
	defer s.observe("discharge_patient", s.now(), &err)

	actor, err := s.authorize(ctx, care.ActionDischargePatient)
	if err != nil {
		return nil, err
	}

	patient, err := s.repo.GetPatientByID(ctx, patientID)
	if err != nil {
		if errors.Is(err, care.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPatientNotFound, patientID)
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if !patient.Active {
		return &Discharge{PatientID: patient.ID, AlreadyDischarged: true}, nil
	}

	if err := s.syncBeds(ctx); err != nil {
		return nil, err
	}
	var keys []string
	if held, ok := s.allocator.BedOf(patient.ID); ok {
		room, _ := s.allocator.Facility().RoomOf(held)
		keys = append(keys, roomLockKey(room.ID))
	}

	var freed string
	err = s.withLocks(ctx, keys, func(lockCtx context.Context) error {
		if err := s.syncBeds(lockCtx); err != nil {
			return err
		}
		bedID, released, err := s.allocator.Release(patient.ID, func(changes []beds.Transition) error {
			return s.repo.DischargePatient(lockCtx, patient.ID, changes...)
		})
		if err != nil {
			return err
		}
		if !released {
			return s.repo.DischargePatient(lockCtx, patient.ID)
		}
		freed = bedID
		return nil
	})
	if err != nil {
		return nil, err
	}

	detail := "discharged"
	if freed != "" {
		detail = "discharged from bed " + freed
	}
	s.record(ctx, actor, care.ActionDischargePatient, patient.ID, detail)
	s.metrics.SetCensus(s.allocator.Census())
	s.log.Info("patient discharged",
		zap.String("patient_id", patient.ID),
		zap.String("bed_id", freed),
		zap.String("actor_id", actor.ID),
	)
	return &Discharge{PatientID: patient.ID, BedID: freed}, nil
}

// PatientBed returns the patient's current placement; BedID is empty when
// they hold none.
func (s *Service) PatientBed(ctx context.Context, patientID string) (_ *Placement, err error) {
	if _, err := s.authorize(ctx, care.ActionViewPatient); err != nil {
		return nil, err
	}
	patient, err := s.repo.GetPatientByID(ctx, patientID)
	if err != nil {
		if errors.Is(err, care.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPatientNotFound, patientID)
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if err := s.syncBeds(ctx); err != nil {
		return nil, err
	}
	bedID, _ := s.allocator.BedOf(patient.ID)
	return s.placement(*patient, bedID), nil
}

type Occupancy struct {
	Total     int
	Occupied  int
	Available int
	Wards     []beds.WardCensus
}

// Beds returns every bed in facility order with its occupant.
func (s *Service) Beds(ctx context.Context) ([]beds.BedState, error) {
	if _, err := s.authorize(ctx, care.ActionViewPatient); err != nil {
		return nil, err
	}
	if err := s.syncBeds(ctx); err != nil {
		return nil, err
	}
	return s.allocator.Snapshot(), nil
}

// AvailableBeds lists vacant bed ids in facility order.
func (s *Service) AvailableBeds(ctx context.Context) ([]string, error) {
	if _, err := s.authorize(ctx, care.ActionViewPatient); err != nil {
		return nil, err
	}
	if err := s.syncBeds(ctx); err != nil {
		return nil, err
	}
	return s.allocator.AvailableBeds(), nil
}

// Occupancy reads the last synced state; it does not touch the store.
func (s *Service) Occupancy() Occupancy {
	return Occupancy{
		Total:     s.allocator.TotalBeds(),
		Occupied:  s.allocator.OccupiedCount(),
		Available: s.allocator.AvailableCount(),
		Wards:     s.allocator.Census(),
	}
}

// ComplianceSweep refreshes bed state and reports placement invariant breaches.
func (s *Service) ComplianceSweep(ctx context.Context) (_ []beds.Violation, err error) {
	defer s.observe("compliance_sweep", s.now(), &err)

	if err := s.syncBeds(ctx); err != nil {
		return nil, err
	}
	violations := s.allocator.Violations()
	s.metrics.SetViolations(len(violations))
	s.metrics.SetCensus(s.allocator.Census())
	for _, v := range violations {
		s.log.Warn("compliance violation",
			zap.String("rule", v.Rule),
			zap.String("room_id", v.RoomID),
			zap.String("bed_id", v.BedID),
			zap.String("detail", v.Detail),
		)
	}
	return violations, nil
}
