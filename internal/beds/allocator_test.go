package beds

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/carehome-allocation/internal/care"
	"github.com/hackgods/carehome-allocation/internal/facility"
)

func newTestAllocator(t *testing.T) *Allocator {
	t.Helper()
	a, err := NewAllocator(facility.Reference(), DefaultIsolationPolicy())
	require.NoError(t, err)
	return a
}

func female(id string) Occupant { return Occupant{PatientID: id, Gender: care.GenderFemale} }
func male(id string) Occupant   { return Occupant{PatientID: id, Gender: care.GenderMale} }

func admit(t *testing.T, a *Allocator, occ Occupant) string {
	t.Helper()
	bed, ok := a.FindSuitableBed(occ)
	require.True(t, ok, "no bed for %s", occ.PatientID)
	require.NoError(t, a.Assign(bed.ID, occ, nil))
	return bed.ID
}

func TestAllocator_ReferenceFacilityStartsEmpty(t *testing.T) {
	a := newTestAllocator(t)

	assert.Equal(t, 38, a.TotalBeds())
	assert.Equal(t, 38, a.AvailableCount())
	assert.Equal(t, 0, a.OccupiedCount())
	assert.Empty(t, a.Violations())
}

func TestAllocator_AdmitFemaleDecreasesAvailable(t *testing.T) {
	a := newTestAllocator(t)

	bedID := admit(t, a, female("P01"))

	// W1R1B1 is reserved for isolation, so the first general bed is W1R2B1.
	assert.Equal(t, "W1R2B1", bedID)
	assert.Equal(t, 37, a.AvailableCount())

	got, ok := a.BedOf("P01")
	require.True(t, ok)
	assert.Equal(t, bedID, got)
}

func TestAllocator_FindSuitableBed_KeepsRoomsSingleGender(t *testing.T) {
	a := newTestAllocator(t)

	assert.Equal(t, "W1R2B1", admit(t, a, female("P01")))
	assert.Equal(t, "W1R3B1", admit(t, a, male("P02")))
	assert.Equal(t, "W1R2B2", admit(t, a, female("P03")))
	assert.Equal(t, "W1R3B2", admit(t, a, male("P04")))
	assert.Equal(t, "W1R4B1", admit(t, a, female("P05")))

	assert.Empty(t, a.Violations())
}

func TestAllocator_FindSuitableBed_PatientAlreadyBedded(t *testing.T) {
	a := newTestAllocator(t)
	admit(t, a, female("P01"))

	_, ok := a.FindSuitableBed(female("P01"))
	assert.False(t, ok)
}

func TestAllocator_FindSuitableBed_ExhaustedReturnsNone(t *testing.T) {
	fac, err := facility.New([]facility.WardSpec{{ID: "W1", Capacities: []int{1, 2}}})
	require.NoError(t, err)
	policy, err := NewIsolationPolicy(ModeReservedOnly, []string{"W1R1B1"})
	require.NoError(t, err)
	a, err := NewAllocator(fac, policy)
	require.NoError(t, err)

	admit(t, a, female("P01"))
	admit(t, a, female("P02"))

	_, ok := a.FindSuitableBed(female("P03"))
	assert.False(t, ok)
	// the reserved bed is never offered to a general patient
	_, ok = a.FindSuitableBed(male("P04"))
	assert.False(t, ok)
}

func TestAllocator_ReservedBedInSharedRoom(t *testing.T) {
	policy, err := NewIsolationPolicy(ModeReservedOnly, []string{"W1R1B1", "W1R2B1"})
	require.NoError(t, err)
	a, err := NewAllocator(facility.Reference(), policy)
	require.NoError(t, err)

	// only the reserved bed is withheld, its roommate stays available
	assert.Equal(t, "W1R2B2", admit(t, a, female("P01")))
	assert.ErrorIs(t, a.Assign("W1R2B1", female("P02"), nil), care.ErrCompliance)

	// the room is no longer empty, so its reserved bed cannot take isolation
	_, ok := a.FindSuitableBed(Occupant{PatientID: "I1", Gender: care.GenderFemale, Isolation: true})
	require.True(t, ok)
	assert.ErrorIs(t, a.Assign("W1R2B1", Occupant{PatientID: "I2", Gender: care.GenderMale, Isolation: true}, nil), care.ErrCompliance)

	// moves into the shared room only need vacancy and gender
	require.NoError(t, a.Assign("W1R3B1", female("P03"), nil))
	_, _, err = a.Release("P01", nil)
	require.NoError(t, err)
	assert.True(t, a.CanMove("P03", "W1R2B2"))
	require.NoError(t, a.Move("P03", "W1R2B2", nil))
	assert.False(t, a.CanMove("P03", "W1R2B1"))
	assert.Empty(t, a.Violations())
}

func TestAllocator_IsolationOccupantBlocksRoommates(t *testing.T) {
	policy, err := NewIsolationPolicy(ModeReservedOnly, []string{"W1R2B1"})
	require.NoError(t, err)
	a, err := NewAllocator(facility.Reference(), policy)
	require.NoError(t, err)

	require.NoError(t, a.Assign("W1R2B1", Occupant{PatientID: "I1", Gender: care.GenderFemale, Isolation: true}, nil))

	assert.Equal(t, "W1R1B1", admit(t, a, female("P01")))
	assert.ErrorIs(t, a.Assign("W1R2B2", female("P02"), nil), care.ErrCompliance)
	assert.Equal(t, "W1R3B1", admit(t, a, female("P03")))
}

func TestAllocator_Isolation_UsesReservedBedsOnly(t *testing.T) {
	a := newTestAllocator(t)

	first := admit(t, a, Occupant{PatientID: "I1", Gender: care.GenderMale, Isolation: true})
	second := admit(t, a, Occupant{PatientID: "I2", Gender: care.GenderMale, Isolation: true})
	assert.Equal(t, "W1R1B1", first)
	assert.Equal(t, "W2R1B1", second)

	// strict policy: no fallback to an empty general room
	_, ok := a.FindSuitableBed(Occupant{PatientID: "I3", Gender: care.GenderMale, Isolation: true})
	assert.False(t, ok)
	assert.Equal(t, 36, a.AvailableCount())
}

func TestAllocator_Isolation_SecondPatientGetsNoBedWhenOneReservedRoomEmpty(t *testing.T) {
	a := newTestAllocator(t)
	// W2R1 is already taken, leaving only W1R1 fully empty.
	require.NoError(t, a.Restore([]BedState{
		{BedID: "W2R1B1", Occupant: &Occupant{PatientID: "I0", Gender: care.GenderMale, Isolation: true}},
	}))

	bed, ok := a.FindSuitableBed(Occupant{PatientID: "I1", Gender: care.GenderFemale, Isolation: true})
	require.True(t, ok)
	require.NoError(t, a.Assign(bed.ID, Occupant{PatientID: "I1", Gender: care.GenderFemale, Isolation: true}, nil))
	assert.Equal(t, "W1R1B1", bed.ID)

	_, ok = a.FindSuitableBed(Occupant{PatientID: "I2", Gender: care.GenderMale, Isolation: true})
	assert.False(t, ok)
}

func TestAllocator_Assign_Errors(t *testing.T) {
	a := newTestAllocator(t)
	require.NoError(t, a.Assign("W1R3B1", female("P01"), nil))

	tests := []struct {
		name  string
		bedID string
		occ   Occupant
		want  error
	}{
		{"unknown bed", "W9R9B9", female("P02"), care.ErrNotFound},
		{"occupied bed", "W1R3B1", female("P02"), care.ErrConflict},
		{"patient already bedded", "W1R3B2", female("P01"), care.ErrConflict},
		{"opposite gender in room", "W1R3B2", male("P03"), care.ErrCompliance},
		{"general patient in reserved bed", "W1R1B1", male("P04"), care.ErrCompliance},
		{"isolation outside reserved beds", "W1R4B1", Occupant{PatientID: "P05", Gender: care.GenderMale, Isolation: true}, care.ErrCompliance},
		{"missing patient id", "W1R4B1", Occupant{Gender: care.GenderMale}, care.ErrInvalidInput},
		{"unknown gender", "W1R4B1", Occupant{PatientID: "P06"}, care.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := a.Assign(tt.bedID, tt.occ, nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Equal(t, 1, a.OccupiedCount())
}

func TestAllocator_Assign_CommitFailureLeavesStateUnchanged(t *testing.T) {
	a := newTestAllocator(t)
	boom := errors.New("store down")

	var seen []Transition
	err := a.Assign("W1R3B1", female("P01"), func(changes []Transition) error {
		seen = changes
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []Transition{{BedID: "W1R3B1", To: "P01"}}, seen)
	_, occupied := a.Occupant("W1R3B1")
	assert.False(t, occupied)
	_, bedded := a.BedOf("P01")
	assert.False(t, bedded)
}

func TestAllocator_Assign_ConcurrentSameBedExactlyOneWins(t *testing.T) {
	a := newTestAllocator(t)

	const n = 50
	var wins, conflicts int64
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			err := a.Assign("W1R4B1", female(fmt.Sprintf("P%02d", i)), nil)
			switch {
			case err == nil:
				atomic.AddInt64(&wins, 1)
			case errors.Is(err, care.ErrConflict):
				atomic.AddInt64(&conflicts, 1)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, wins)
	assert.EqualValues(t, n-1, conflicts)
	assert.Equal(t, 1, a.OccupiedCount())
}

func TestAllocator_Move(t *testing.T) {
	a := newTestAllocator(t)
	require.NoError(t, a.Assign("W1R3B1", female("P01"), nil))

	var seen []Transition
	err := a.Move("P01", "W2R4B2", func(changes []Transition) error {
		seen = changes
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []Transition{
		{BedID: "W1R3B1", From: "P01"},
		{BedID: "W2R4B2", To: "P01"},
	}, seen)
	_, oldOccupied := a.Occupant("W1R3B1")
	assert.False(t, oldOccupied)
	occ, ok := a.Occupant("W2R4B2")
	require.True(t, ok)
	assert.Equal(t, "P01", occ.PatientID)
	bed, _ := a.BedOf("P01")
	assert.Equal(t, "W2R4B2", bed)
	assert.Equal(t, 1, a.OccupiedCount())
}

func TestAllocator_Move_WithinOwnRoom(t *testing.T) {
	a := newTestAllocator(t)
	require.NoError(t, a.Assign("W1R3B1", male("P01"), nil))

	require.NoError(t, a.Move("P01", "W1R3B4", nil))
	bed, _ := a.BedOf("P01")
	assert.Equal(t, "W1R3B4", bed)
}

func TestAllocator_Move_PreconditionOrder(t *testing.T) {
	a := newTestAllocator(t)
	require.NoError(t, a.Assign("W1R3B1", female("P01"), nil))
	require.NoError(t, a.Assign("W1R4B1", male("P02"), nil))

	tests := []struct {
		name    string
		patient string
		target  string
		want    error
	}{
		{"patient holds no bed", "P99", "W9R9B9", care.ErrNotFound},
		{"unknown target", "P01", "W9R9B9", care.ErrNotFound},
		{"occupied target", "P01", "W1R4B1", care.ErrConflict},
		{"own bed is occupied", "P01", "W1R3B1", care.ErrConflict},
		{"opposite gender room", "P01", "W1R4B2", care.ErrCompliance},
		{"reserved bed", "P01", "W1R1B1", care.ErrCompliance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := a.Snapshot()
			err := a.Move(tt.patient, tt.target, nil)
			assert.ErrorIs(t, err, tt.want)
			assert.False(t, a.CanMove(tt.patient, tt.target))
			assert.Equal(t, before, a.Snapshot())
		})
	}
}

func TestAllocator_Move_IsolationPatientStaysInReservedBeds(t *testing.T) {
	a := newTestAllocator(t)
	iso := Occupant{PatientID: "I1", Gender: care.GenderFemale, Isolation: true}
	require.NoError(t, a.Assign("W1R1B1", iso, nil))

	assert.ErrorIs(t, a.Move("I1", "W1R5B1", nil), care.ErrCompliance)
	assert.True(t, a.CanMove("I1", "W2R1B1"))
	require.NoError(t, a.Move("I1", "W2R1B1", nil))
}

func TestAllocator_Move_CommitFailureLeavesBothBeds(t *testing.T) {
	a := newTestAllocator(t)
	require.NoError(t, a.Assign("W1R3B1", female("P01"), nil))
	before := a.Snapshot()

	err := a.Move("P01", "W1R5B1", func([]Transition) error { return errors.New("tx aborted") })
	require.Error(t, err)
	assert.Equal(t, before, a.Snapshot())
}

func TestAllocator_Release(t *testing.T) {
	a := newTestAllocator(t)
	require.NoError(t, a.Assign("W1R3B1", female("P01"), nil))

	bed, released, err := a.Release("P01", nil)
	require.NoError(t, err)
	assert.True(t, released)
	assert.Equal(t, "W1R3B1", bed)
	assert.Equal(t, 38, a.AvailableCount())

	// second release is a no-op
	bed, released, err = a.Release("P01", func([]Transition) error {
		t.Fatal("commit must not run for a patient without a bed")
		return nil
	})
	require.NoError(t, err)
	assert.False(t, released)
	assert.Empty(t, bed)
}

func TestAllocator_RestoreAndViolations(t *testing.T) {
	a := newTestAllocator(t)

	err := a.Restore([]BedState{
		{BedID: "W1R3B1", Occupant: &Occupant{PatientID: "P01", Gender: care.GenderFemale}},
		{BedID: "W1R3B2", Occupant: &Occupant{PatientID: "P02", Gender: care.GenderMale}},
		{BedID: "W1R4B1", Occupant: &Occupant{PatientID: "P03", Gender: care.GenderMale, Isolation: true}},
		{BedID: "W1R1B1", Occupant: &Occupant{PatientID: "P04", Gender: care.GenderMale}},
		{BedID: "W1R5B1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, a.OccupiedCount())

	rulesSeen := map[string]bool{}
	for _, v := range a.Violations() {
		rulesSeen[v.Rule] = true
	}
	assert.Equal(t, map[string]bool{
		RuleGenderSegregation: true,
		RuleIsolationReserved: true,
		RuleReservedBedInUse: true,
	}, rulesSeen)
}

func TestAllocator_RestoreRejectsBadState(t *testing.T) {
	a := newTestAllocator(t)
	require.NoError(t, a.Assign("W1R3B1", female("P01"), nil))

	err := a.Restore([]BedState{{BedID: "NOPE"}})
	assert.ErrorIs(t, err, care.ErrNotFound)

	err = a.Restore([]BedState{
		{BedID: "W1R3B1", Occupant: &Occupant{PatientID: "P09", Gender: care.GenderMale}},
		{BedID: "W1R4B1", Occupant: &Occupant{PatientID: "P09", Gender: care.GenderMale}},
	})
	assert.ErrorIs(t, err, care.ErrConflict)

	// failed restores keep the previous state
	bed, ok := a.BedOf("P01")
	require.True(t, ok)
	assert.Equal(t, "W1R3B1", bed)
}

func TestAllocator_Census(t *testing.T) {
	a := newTestAllocator(t)
	admit(t, a, female("P01"))
	require.NoError(t, a.Assign("W2R6B1", male("P02"), nil))

	census := a.Census()
	require.Len(t, census, 2)
	assert.Equal(t, WardCensus{WardID: "W1", Name: "High Care Ward", Total: 19, Occupied: 1}, census[0])
	assert.Equal(t, WardCensus{WardID: "W2", Name: "Standard Care Ward", Total: 19, Occupied: 1}, census[1])
}

func TestAllocator_RandomOperationsKeepInvariants(t *testing.T) {
	a := newTestAllocator(t)
	rng := rand.New(rand.NewSource(42))
	beds := a.Facility().Beds()

	var patients []string
	for step := 0; step < 2000; step++ {
		switch rng.Intn(3) {
		case 0:
			id := fmt.Sprintf("P%04d", step)
			occ := Occupant{
				PatientID: id,
				Gender:    []care.Gender{care.GenderMale, care.GenderFemale}[rng.Intn(2)],
				Isolation: rng.Intn(10) == 0,
			}
			if bed, ok := a.FindSuitableBed(occ); ok {
				require.NoError(t, a.Assign(bed.ID, occ, nil))
				patients = append(patients, id)
			}
		case 1:
			if len(patients) == 0 {
				continue
			}
			p := patients[rng.Intn(len(patients))]
			target := beds[rng.Intn(len(beds))].ID
			canMove := a.CanMove(p, target)
			err := a.Move(p, target, nil)
			assert.Equal(t, canMove, err == nil)
		case 2:
			if len(patients) == 0 {
				continue
			}
			i := rng.Intn(len(patients))
			_, _, err := a.Release(patients[i], nil)
			require.NoError(t, err)
			patients = append(patients[:i], patients[i+1:]...)
		}

		require.Empty(t, a.Violations(), "step %d", step)
		require.Equal(t, len(patients), a.OccupiedCount())
	}
}
