package beds

import (
	"fmt"

	"github.com/hackgods/carehome-allocation/internal/care"
	"github.com/hackgods/carehome-allocation/internal/rules"
)

func (a *Allocator) BedOf(patientID string) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	id, ok := a.bedOf[patientID]
	return id, ok
}

func (a *Allocator) Occupant(bedID string) (Occupant, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	o, ok := a.occupants[bedID]
	return o, ok
}

func (a *Allocator) TotalBeds() int { return a.fac.BedCount() }

func (a *Allocator) OccupiedCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.occupants)
}

func (a *Allocator) AvailableCount() int {
	return a.TotalBeds() - a.OccupiedCount()
}

// AvailableBeds lists vacant bed ids in facility order.
func (a *Allocator) AvailableBeds() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]string, 0, a.fac.BedCount()-len(a.occupants))
	for _, b := range a.fac.Beds() {
		if _, ok := a.occupants[b.ID]; !ok {
			out = append(out, b.ID)
		}
	}
	return out
}

// Snapshot returns every bed in facility order with a copy of its occupant.
func (a *Allocator) Snapshot() []BedState {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]BedState, 0, a.fac.BedCount())
	for _, b := range a.fac.Beds() {
		st := BedState{BedID: b.ID}
		if o, ok := a.occupants[b.ID]; ok {
			occ := o
			st.Occupant = &occ
		}
		out = append(out, st)
	}
	return out
}

// Restore replaces occupancy with states read from the durable store. Beds not
// mentioned are vacant. Placement rules are not re-checked here; Violations
// reports anything the store holds that breaks them.
func (a *Allocator) Restore(states []BedState) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.restoreLocked(states)
}

// Sync loads state and restores it while holding the allocator lock, so no
// assignment interleaves between the read and the swap.
func (a *Allocator) Sync(load func() ([]BedState, error)) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	states, err := load()
	if err != nil {
		return fmt.Errorf("load bed state: %w", err)
	}
	return a.restoreLocked(states)
}

func (a *Allocator) restoreLocked(states []BedState) error {
	occupants := make(map[string]Occupant, len(states))
	bedOf := make(map[string]string, len(states))

	for _, st := range states {
		if _, ok := a.fac.Bed(st.BedID); !ok {
			return fmt.Errorf("restore: %w: bed %s", care.ErrNotFound, st.BedID)
		}
		if st.Occupant == nil {
			continue
		}
		o := *st.Occupant
		if o.PatientID == "" {
			return fmt.Errorf("restore: bed %s has an occupant without patient id", st.BedID)
		}
		if prev, dup := bedOf[o.PatientID]; dup {
			return fmt.Errorf("restore: %w: patient %s holds beds %s and %s", care.ErrConflict, o.PatientID, prev, st.BedID)
		}
		occupants[st.BedID] = o
		bedOf[o.PatientID] = st.BedID
	}

	a.occupants = occupants
	a.bedOf = bedOf
	return nil
}

type WardCensus struct {
	WardID   string
	Name     string
	Total    int
	Occupied int
}

func (a *Allocator) Census() []WardCensus {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]WardCensus, 0, len(a.fac.Wards()))
	for _, w := range a.fac.Wards() {
		c := WardCensus{WardID: w.ID, Name: w.Name}
		for _, r := range w.Rooms {
			c.Total += r.Capacity
			c.Occupied += len(a.roomOccupants(r, ""))
		}
		out = append(out, c)
	}
	return out
}

const (
	RuleGenderSegregation  = "gender_segregation"
	RuleIsolationReserved  = "isolation_reserved_bed"
	RuleIsolationExclusive = "isolation_exclusive_room"
	RuleReservedBedInUse   = "reserved_bed_non_isolation"
)

type Violation struct {
	Rule   string
	RoomID string
	BedID  string
	Detail string
}

// Violations sweeps every room for placement invariants. It is empty for any
// state reached only through Assign and Move.
func (a *Allocator) Violations() []Violation {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var out []Violation
	for _, w := range a.fac.Wards() {
		for _, r := range w.Rooms {
			occ := a.roomOccupants(r, "")
			if len(occ) == 0 {
				continue
			}

			isolated := rules.CountMatch(occ, func(o Occupant) bool { return o.Isolation })
			if isolated > 0 && len(occ) > 1 {
				out = append(out, Violation{
					Rule:   RuleIsolationExclusive,
					RoomID: r.ID,
					Detail: fmt.Sprintf("%d isolation patient(s) share room with %d other(s)", isolated, len(occ)-1),
				})
			}

			genders := make([]care.Gender, 0, len(occ))
			for _, o := range occ {
				genders = append(genders, o.Gender)
			}
			if !rules.AllEqual(genders, genders[0]) {
				out = append(out, Violation{
					Rule:   RuleGenderSegregation,
					RoomID: r.ID,
					Detail: "room holds patients of more than one gender",
				})
			}

			for _, b := range r.Beds {
				o, ok := a.occupants[b.ID]
				if !ok {
					continue
				}
				if o.Isolation && !a.policy.IsReserved(b.ID) {
					out = append(out, Violation{
						Rule:   RuleIsolationReserved,
						RoomID: r.ID,
						BedID:  b.ID,
						Detail: fmt.Sprintf("isolation patient %s outside reserved beds", o.PatientID),
					})
				}
				if !o.Isolation && a.policy.IsReserved(b.ID) {
					out = append(out, Violation{
						Rule:   RuleReservedBedInUse,
						RoomID: r.ID,
						BedID:  b.ID,
						Detail: fmt.Sprintf("patient %s placed in reserved isolation bed", o.PatientID),
					})
				}
			}
		}
	}
	return out
}
