// Package beds places patients into facility beds while keeping rooms
// single-gender and isolation beds exclusive.
package beds

import (
	"fmt"
	"sync"

	"github.com/hackgods/carehome-allocation/internal/care"
	"github.com/hackgods/carehome-allocation/internal/facility"
	"github.com/hackgods/carehome-allocation/internal/rules"
)

// Occupant is what the allocator needs to know about a bedded patient.
type Occupant struct {
	PatientID string
	Gender    care.Gender
	Isolation bool
}

type BedState struct {
	BedID    string
	Occupant *Occupant
}

// Transition is one occupancy change. From is the expected current patient
// ("" for vacant) so stores can apply it as a compare-and-swap.
type Transition struct {
	BedID string
	From  string
	To    string
}

// CommitFunc persists transitions. It runs after every check has passed and
// before in-memory state changes; an error leaves the allocator untouched.
type CommitFunc func(changes []Transition) error

type Allocator struct {
	fac    *facility.Facility
	policy IsolationPolicy

	mu        sync.RWMutex
	occupants map[string]Occupant // bed id -> occupant
	bedOf     map[string]string   // patient id -> bed id
}

func NewAllocator(fac *facility.Facility, policy IsolationPolicy) (*Allocator, error) {
	for _, id := range policy.ReservedBeds() {
		if _, ok := fac.Bed(id); !ok {
			return nil, fmt.Errorf("reserved isolation bed %s is not in the facility", id)
		}
	}
	return &Allocator{
		fac:       fac,
		policy:    policy,
		occupants: make(map[string]Occupant),
		bedOf:     make(map[string]string),
	}, nil
}

func (a *Allocator) Facility() *facility.Facility { return a.fac }

func (a *Allocator) Policy() IsolationPolicy { return a.policy }

// FindSuitableBed picks the first bed in (ward, room, bed) order the patient
// may be placed in right now. It never mutates state. A patient who already
// holds a bed gets none.
func (a *Allocator) FindSuitableBed(c Occupant) (*facility.Bed, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if _, bedded := a.bedOf[c.PatientID]; bedded && c.PatientID != "" {
		return nil, false
	}

	return rules.FirstMatch(a.fac.Beds(), func(b *facility.Bed) bool {
		if _, occupied := a.occupants[b.ID]; occupied {
			return false
		}
		return a.placeable(b, c, "") == nil
	})
}

// Assign places the patient in a vacant bed.
func (a *Allocator) Assign(bedID string, occ Occupant, commit CommitFunc) error {
	if occ.PatientID == "" {
		return fmt.Errorf("%w: patient id is required", care.ErrInvalidInput)
	}
	if !occ.Gender.Valid() {
		return fmt.Errorf("%w: patient %s has unknown gender %q", care.ErrInvalidInput, occ.PatientID, occ.Gender)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	bed, ok := a.fac.Bed(bedID)
	if !ok {
		return fmt.Errorf("%w: bed %s", care.ErrNotFound, bedID)
	}
	if current, bedded := a.bedOf[occ.PatientID]; bedded {
		return fmt.Errorf("%w: patient %s already holds bed %s", care.ErrConflict, occ.PatientID, current)
	}
	if holder, occupied := a.occupants[bedID]; occupied {
		return fmt.Errorf("%w: bed %s is occupied by patient %s", care.ErrConflict, bedID, holder.PatientID)
	}
	if err := a.placeable(bed, occ, ""); err != nil {
		return err
	}

	changes := []Transition{{BedID: bedID, To: occ.PatientID}}
	if err := runCommit(commit, changes); err != nil {
		return err
	}

	a.occupants[bedID] = occ
	a.bedOf[occ.PatientID] = bedID
	return nil
}

// Move frees the patient's bed and occupies target in one step.
func (a *Allocator) Move(patientID, targetBedID string, commit CommitFunc) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	from, occ, err := a.checkMove(patientID, targetBedID)
	if err != nil {
		return err
	}

	changes := []Transition{
		{BedID: from, From: patientID},
		{BedID: targetBedID, To: patientID},
	}
	if err := runCommit(commit, changes); err != nil {
		return err
	}

	delete(a.occupants, from)
	a.occupants[targetBedID] = occ
	a.bedOf[patientID] = targetBedID
	return nil
}

// CanMove mirrors Move's preconditions and never fails.
func (a *Allocator) CanMove(patientID, targetBedID string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	_, _, err := a.checkMove(patientID, targetBedID)
	return err == nil
}

// Release frees the patient's bed. Releasing a patient with no bed is a no-op
// and reports released=false.
func (a *Allocator) Release(patientID string, commit CommitFunc) (bedID string, released bool, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	from, ok := a.bedOf[patientID]
	if !ok {
		return "", false, nil
	}

	if err := runCommit(commit, []Transition{{BedID: from, From: patientID}}); err != nil {
		return "", false, err
	}

	delete(a.occupants, from)
	delete(a.bedOf, patientID)
	return from, true, nil
}

// checkMove runs the move preconditions in order. Callers hold a.mu.
func (a *Allocator) checkMove(patientID, targetBedID string) (string, Occupant, error) {
	from, ok := a.bedOf[patientID]
	if !ok {
		return "", Occupant{}, fmt.Errorf("%w: patient %s does not hold a bed", care.ErrNotFound, patientID)
	}
	target, ok := a.fac.Bed(targetBedID)
	if !ok {
		return "", Occupant{}, fmt.Errorf("%w: bed %s", care.ErrNotFound, targetBedID)
	}
	if holder, occupied := a.occupants[targetBedID]; occupied {
		return "", Occupant{}, fmt.Errorf("%w: bed %s is occupied by patient %s", care.ErrConflict, targetBedID, holder.PatientID)
	}

	occ := a.occupants[from]
	if err := a.placeable(target, occ, patientID); err != nil {
		return "", Occupant{}, err
	}
	return from, occ, nil
}

// placeable checks the room-level invariants for putting occ into bed,
// ignoring the patient named by exclude (the mover's own current bed).
func (a *Allocator) placeable(bed *facility.Bed, occ Occupant, exclude string) error {
	room, _ := a.fac.Room(bed.RoomID)
	others := a.roomOccupants(room, exclude)

	if occ.Isolation {
		if !a.policy.IsReserved(bed.ID) {
			return fmt.Errorf("%w: bed %s is not reserved for isolation", care.ErrCompliance, bed.ID)
		}
		if len(others) > 0 {
			return fmt.Errorf("%w: isolation bed %s needs room %s empty, %d bed(s) occupied",
				care.ErrCompliance, bed.ID, room.ID, len(others))
		}
		return nil
	}

	if a.policy.IsReserved(bed.ID) {
		return fmt.Errorf("%w: bed %s is reserved for isolation", care.ErrCompliance, bed.ID)
	}
	for _, o := range others {
		if o.Isolation {
			return fmt.Errorf("%w: room %s holds isolation patient %s", care.ErrCompliance, room.ID, o.PatientID)
		}
	}
	genders := make([]care.Gender, 0, len(others))
	for _, o := range others {
		genders = append(genders, o.Gender)
	}
	if !rules.AllEqual(genders, occ.Gender) {
		return fmt.Errorf("%w: room %s is not gender-compatible with %s patient", care.ErrCompliance, room.ID, occ.Gender)
	}
	return nil
}

func (a *Allocator) roomOccupants(room *facility.Room, exclude string) []Occupant {
	var out []Occupant
	for _, b := range room.Beds {
		o, ok := a.occupants[b.ID]
		if !ok || (exclude != "" && o.PatientID == exclude) {
			continue
		}
		out = append(out, o)
	}
	return out
}

func runCommit(commit CommitFunc, changes []Transition) error {
	if commit == nil {
		return nil
	}
	if err := commit(changes); err != nil {
		return fmt.Errorf("commit bed transition: %w", err)
	}
	return nil
}
