package facility

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReference_Has38BedsInStableOrder(t *testing.T) {
	f := Reference()

	require.Len(t, f.Wards(), 2)
	assert.Equal(t, 38, f.BedCount())

	beds := f.Beds()
	assert.Equal(t, "W1R1B1", beds[0].ID)
	assert.Equal(t, "W1R2B1", beds[1].ID)
	assert.Equal(t, "W1R2B2", beds[2].ID)
	assert.Equal(t, "W2R1B1", beds[19].ID)
	assert.Equal(t, "W2R6B4", beds[37].ID)

	for i, b := range beds {
		assert.Equal(t, i, b.Position)
	}
}

func TestRoomOf(t *testing.T) {
	f := Reference()

	room, ok := f.RoomOf("W2R3B4")
	require.True(t, ok)
	assert.Equal(t, "W2R3", room.ID)
	assert.Equal(t, "W2", room.WardID)
	assert.Equal(t, 3, room.Number)
	assert.Equal(t, 4, room.Capacity)
	assert.Len(t, room.Beds, 4)

	_, ok = f.RoomOf("W9R1B1")
	assert.False(t, ok)
}

func TestNew_RejectsBadCapacity(t *testing.T) {
	_, err := New([]WardSpec{{ID: "W1", Capacities: []int{1, 3}}})
	assert.ErrorIs(t, err, ErrInvalidLayout)
}

func TestNew_RejectsDuplicateWard(t *testing.T) {
	_, err := New([]WardSpec{
		{ID: "W1", Capacities: []int{1}},
		{ID: "W1", Capacities: []int{2}},
	})
	assert.ErrorIs(t, err, ErrInvalidLayout)
}

func TestParseLayout(t *testing.T) {
	specs, err := ParseLayout("A:East:1,2; B:West:4")
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, WardSpec{ID: "A", Name: "East", Capacities: []int{1, 2}}, specs[0])
	assert.Equal(t, WardSpec{ID: "B", Name: "West", Capacities: []int{4}}, specs[1])

	specs, err = ParseLayout("")
	require.NoError(t, err)
	assert.Equal(t, ReferenceLayout(), specs)

	_, err = ParseLayout("A:East")
	assert.ErrorIs(t, err, ErrInvalidLayout)

	_, err = ParseLayout("A:East:x")
	assert.ErrorIs(t, err, ErrInvalidLayout)
}
