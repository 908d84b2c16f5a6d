// Package facility holds the static ward -> room -> bed hierarchy. A Facility
// is immutable once built and safe for concurrent reads.
package facility

import (
	"errors"
	"fmt"
)

var ErrInvalidLayout = errors.New("invalid facility layout")

type Ward struct {
	ID    string
	Name  string
	Rooms []*Room
}

type Room struct {
	ID       string
	WardID   string
	Number   int
	Capacity int
	Beds     []*Bed
}

type Bed struct {
	ID     string
	RoomID string
	WardID string
	// Position is the bed's index in (ward, room, bed) order.
	Position int
}

// WardSpec describes one ward; room numbers are assigned from 1 in order.
type WardSpec struct {
	ID         string
	Name       string
	Capacities []int
}

type Facility struct {
	wards    []*Ward
	beds     []*Bed
	bedByID  map[string]*Bed
	roomByID map[string]*Room
}

// New builds a facility from specs. Room capacity must be 1, 2 or 4.
func New(specs []WardSpec) (*Facility, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: no wards", ErrInvalidLayout)
	}

	f := &Facility{
		bedByID:  make(map[string]*Bed),
		roomByID: make(map[string]*Room),
	}
	seenWards := make(map[string]bool, len(specs))

	for _, spec := range specs {
		if spec.ID == "" {
			return nil, fmt.Errorf("%w: ward id is empty", ErrInvalidLayout)
		}
		if seenWards[spec.ID] {
			return nil, fmt.Errorf("%w: duplicate ward %s", ErrInvalidLayout, spec.ID)
		}
		seenWards[spec.ID] = true

		ward := &Ward{ID: spec.ID, Name: spec.Name}
		for i, capacity := range spec.Capacities {
			if !validCapacity(capacity) {
				return nil, fmt.Errorf("%w: room %d in ward %s has capacity %d", ErrInvalidLayout, i+1, spec.ID, capacity)
			}
			room := &Room{
				ID:       fmt.Sprintf("%sR%d", spec.ID, i+1),
				WardID:   spec.ID,
				Number:   i + 1,
				Capacity: capacity,
			}
			for b := 1; b <= capacity; b++ {
				bed := &Bed{
					ID:       fmt.Sprintf("%sB%d", room.ID, b),
					RoomID:   room.ID,
					WardID:   spec.ID,
					Position: len(f.beds),
				}
				room.Beds = append(room.Beds, bed)
				f.beds = append(f.beds, bed)
				f.bedByID[bed.ID] = bed
			}
			ward.Rooms = append(ward.Rooms, room)
			f.roomByID[room.ID] = room
		}
		f.wards = append(f.wards, ward)
	}

	return f, nil
}

func validCapacity(c int) bool {
	return c == 1 || c == 2 || c == 4
}

// ReferenceLayout is the two-ward, 38-bed configuration.
func ReferenceLayout() []WardSpec {
	return []WardSpec{
		{ID: "W1", Name: "High Care Ward", Capacities: []int{1, 2, 4, 4, 4, 4}},
		{ID: "W2", Name: "Standard Care Ward", Capacities: []int{1, 2, 4, 4, 4, 4}},
	}
}

func Reference() *Facility {
	f, err := New(ReferenceLayout())
	if err != nil {
		panic(err)
	}
	return f
}

func (f *Facility) Wards() []*Ward { return f.wards }

// Beds returns every bed in (ward, room, bed) order. Callers must not modify it.
func (f *Facility) Beds() []*Bed { return f.beds }

func (f *Facility) BedCount() int { return len(f.beds) }

func (f *Facility) Bed(id string) (*Bed, bool) {
	b, ok := f.bedByID[id]
	return b, ok
}

func (f *Facility) Room(id string) (*Room, bool) {
	r, ok := f.roomByID[id]
	return r, ok
}

// RoomOf returns the room containing the bed.
func (f *Facility) RoomOf(bedID string) (*Room, bool) {
	b, ok := f.bedByID[bedID]
	if !ok {
		return nil, false
	}
	return f.roomByID[b.RoomID], true
}
