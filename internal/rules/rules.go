// Package rules has the small predicates both allocators evaluate: interval
// overlap, hour caps, uniformity and ordered first-match selection.
package rules

// Interval is a half-open [Start, End) range of hours on one day.
type Interval struct {
	Start int
	End   int
}

func (i Interval) Duration() int {
	return i.End - i.Start
}

// Overlaps reports whether the two intervals share any instant.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start < o.End && o.Start < i.End
}

// FirstOverlap returns the index of the first interval in existing that
// overlaps candidate.
func FirstOverlap(existing []Interval, candidate Interval) (int, bool) {
	for idx, iv := range existing {
		if iv.Overlaps(candidate) {
			return idx, true
		}
	}
	return -1, false
}

func TotalDuration(intervals []Interval) int {
	total := 0
	for _, iv := range intervals {
		total += iv.Duration()
	}
	return total
}

// Capacity is a running total checked against a limit before adding to it.
type Capacity struct {
	Current int
	Adding  int
	Max     int
}

func (c Capacity) Exceeded() bool {
	return c.Current+c.Adding > c.Max
}

// AllEqual reports whether every element equals want. Empty input is true.
func AllEqual[T comparable](values []T, want T) bool {
	for _, v := range values {
		if v != want {
			return false
		}
	}
	return true
}

// FirstMatch returns the first element satisfying pred, preserving input order.
func FirstMatch[T any](items []T, pred func(T) bool) (T, bool) {
	for _, it := range items {
		if pred(it) {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// CountMatch counts elements satisfying pred.
func CountMatch[T any](items []T, pred func(T) bool) int {
	n := 0
	for _, it := range items {
		if pred(it) {
			n++
		}
	}
	return n
}
