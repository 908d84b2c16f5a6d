package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterval_Overlaps(t *testing.T) {
	morning := Interval{Start: 8, End: 16}
	afternoon := Interval{Start: 14, End: 22}
	round := Interval{Start: 9, End: 10}
	evening := Interval{Start: 16, End: 22}

	assert.True(t, morning.Overlaps(afternoon))
	assert.True(t, afternoon.Overlaps(morning))
	assert.True(t, morning.Overlaps(round))
	assert.False(t, round.Overlaps(afternoon))
	// half-open: touching endpoints do not overlap
	assert.False(t, morning.Overlaps(evening))
	assert.False(t, evening.Overlaps(morning))
}

func TestFirstOverlap(t *testing.T) {
	existing := []Interval{{Start: 0, End: 2}, {Start: 9, End: 10}, {Start: 8, End: 16}}

	idx, ok := FirstOverlap(existing, Interval{Start: 9, End: 11})
	assert.True(t, ok)
	assert.Equal(t, 1, idx)

	_, ok = FirstOverlap(existing, Interval{Start: 16, End: 20})
	assert.False(t, ok)
}

func TestTotalDurationAndCapacity(t *testing.T) {
	assert.Equal(t, 9, TotalDuration([]Interval{{8, 16}, {9, 10}}))
	assert.Equal(t, 0, TotalDuration(nil))

	assert.False(t, Capacity{Current: 0, Adding: 8, Max: 8}.Exceeded())
	assert.True(t, Capacity{Current: 8, Adding: 8, Max: 8}.Exceeded())
	assert.False(t, Capacity{Current: 1, Adding: 1, Max: 12}.Exceeded())
}

func TestAllEqualAndFirstMatch(t *testing.T) {
	assert.True(t, AllEqual([]string{}, "F"))
	assert.True(t, AllEqual([]string{"F", "F"}, "F"))
	assert.False(t, AllEqual([]string{"F", "M"}, "F"))

	v, ok := FirstMatch([]int{1, 4, 6, 8}, func(n int) bool { return n%2 == 0 })
	assert.True(t, ok)
	assert.Equal(t, 4, v)

	_, ok = FirstMatch([]int{1, 3}, func(n int) bool { return n > 5 })
	assert.False(t, ok)

	assert.Equal(t, 3, CountMatch([]int{2, 4, 5, 6}, func(n int) bool { return n%2 == 0 }))
}
