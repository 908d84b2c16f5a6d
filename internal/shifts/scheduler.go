// Package shifts holds the shift catalog and the scheduler that assigns staff
// to weekly shifts under role, hour-cap and overlap rules.
package shifts

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/carehome-allocation/internal/care"
)

type Shift struct {
	ID        string
	Day       time.Weekday
	Type      Type
	StaffID   string
	Assigned  bool
	CreatedAt time.Time
}

func (s Shift) Duration() int { return s.Type.Duration() }

// Scheduler owns every staff member's schedule. Validation and commit of an
// assignment happen under one lock, so two requests for the same staff and day
// cannot both pass the hour cap.
type Scheduler struct {
	mu        sync.RWMutex
	schedules map[string][]Shift // staff id -> assigned shifts
	byID      map[string]string  // shift id -> staff id

	newID func() string
	now   func() time.Time
}

type Option func(*Scheduler)

func WithIDGenerator(fn func() string) Option {
	return func(s *Scheduler) { s.newID = fn }
}

func WithClock(fn func() time.Time) Option {
	return func(s *Scheduler) { s.now = fn }
}

func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		schedules: make(map[string][]Shift),
		byID:      make(map[string]string),
		newID:     uuid.NewString,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Assign validates and records a shift for staff. The shift type name is
// parsed before any rule runs. commit may be nil; when it fails nothing is
// recorded.
func (s *Scheduler) Assign(staff care.Staff, day time.Weekday, shiftType string, commit func(Shift) error) (Shift, error) {
	t, err := ParseType(shiftType)
	if err != nil {
		return Shift{}, err
	}
	if staff.ID == "" {
		return Shift{}, fmt.Errorf("%w: staff id cannot be empty", care.ErrScheduling)
	}
	if !validDay(day) {
		return Shift{}, fmt.Errorf("%w: invalid day %d", care.ErrInvalidInput, day)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := Validate(staff, day, t, s.schedules[staff.ID]); err != nil {
		return Shift{}, err
	}

	shift := Shift{
		ID:        s.newID(),
		Day:       day,
		Type:      t,
		StaffID:   staff.ID,
		Assigned:  true,
		CreatedAt: s.now().UTC(),
	}
	if commit != nil {
		if err := commit(shift); err != nil {
			return Shift{}, fmt.Errorf("commit shift: %w", err)
		}
	}

	s.schedules[staff.ID] = append(s.schedules[staff.ID], shift)
	s.byID[shift.ID] = staff.ID
	return shift, nil
}

// Unassign clears the staff reference on a shift. The returned shift is the
// unassigned record.
func (s *Scheduler) Unassign(shiftID string, commit func(Shift) error) (Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	staffID, ok := s.byID[shiftID]
	if !ok {
		return Shift{}, fmt.Errorf("%w: shift %s", care.ErrNotFound, shiftID)
	}
	schedule := s.schedules[staffID]
	idx := -1
	for i, sh := range schedule {
		if sh.ID == shiftID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Shift{}, fmt.Errorf("%w: shift %s", care.ErrNotFound, shiftID)
	}

	cleared := schedule[idx]
	cleared.StaffID = ""
	cleared.Assigned = false
	if commit != nil {
		if err := commit(cleared); err != nil {
			return Shift{}, fmt.Errorf("commit shift: %w", err)
		}
	}

	rest := make([]Shift, 0, len(schedule)-1)
	rest = append(rest, schedule[:idx]...)
	rest = append(rest, schedule[idx+1:]...)
	if len(rest) == 0 {
		delete(s.schedules, staffID)
	} else {
		s.schedules[staffID] = rest
	}
	delete(s.byID, shiftID)
	return cleared, nil
}

// StaffOf returns the staff member holding the shift.
func (s *Scheduler) StaffOf(shiftID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byID[shiftID]
	return id, ok
}

// StaffShifts returns a copy of the schedule, Monday first then by start hour.
func (s *Scheduler) StaffShifts(staffID string) []Shift {
	s.mu.RLock()
	out := append([]Shift{}, s.schedules[staffID]...)
	s.mu.RUnlock()

	sortSchedule(out)
	return out
}

// HoursOn sums the staff member's assigned hours on day.
func (s *Scheduler) HoursOn(staffID string, day time.Weekday) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, sh := range s.schedules[staffID] {
		if sh.Day == day {
			total += sh.Duration()
		}
	}
	return total
}

// Replace swaps in a staff member's schedule as read from the store.
// Unassigned entries and shifts of other staff are dropped.
func (s *Scheduler) Replace(staffID string, shifts []Shift) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, old := range s.schedules[staffID] {
		delete(s.byID, old.ID)
	}

	kept := make([]Shift, 0, len(shifts))
	for _, sh := range shifts {
		if !sh.Assigned || sh.StaffID != staffID {
			continue
		}
		kept = append(kept, sh)
		s.byID[sh.ID] = staffID
	}
	if len(kept) == 0 {
		delete(s.schedules, staffID)
		return
	}
	s.schedules[staffID] = kept
}

func sortSchedule(shifts []Shift) {
	sort.SliceStable(shifts, func(i, j int) bool {
		a, b := shifts[i], shifts[j]
		if a.Day != b.Day {
			return weekOrder(a.Day) < weekOrder(b.Day)
		}
		return a.Type.Window().Start < b.Type.Window().Start
	})
}
