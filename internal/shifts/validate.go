package shifts

import (
	"fmt"
	"time"

	"github.com/hackgods/carehome-allocation/internal/care"
	"github.com/hackgods/carehome-allocation/internal/rules"
)

type Rule string

const (
	RuleUnknownType       Rule = "unknown_shift_type"
	RuleRoleMatch         Rule = "role_match"
	RuleDailyHours        Rule = "daily_hours"
	RuleOverlap           Rule = "overlap"
	RuleDoctorSingleShift Rule = "doctor_single_shift"
	RuleManagerWeekend    Rule = "manager_weekend"
)

// Violation is a rejected shift request. It matches care.ErrScheduling.
type Violation struct {
	Rule    Rule
	StaffID string
	Day     time.Weekday
	Type    Type

	// Set for RuleDailyHours.
	Current int
	Adding  int
	Max     int

	msg string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%s: %s", care.ErrScheduling, v.msg)
}

func (v *Violation) Unwrap() error { return care.ErrScheduling }

// Validate applies the assignment rules in order and returns the first one
// broken. existing is the staff member's whole schedule; only shifts on day
// are considered.
func Validate(staff care.Staff, day time.Weekday, t Type, existing []Shift) error {
	reject := func(rule Rule, format string, args ...any) *Violation {
		return &Violation{Rule: rule, StaffID: staff.ID, Day: day, Type: t, msg: fmt.Sprintf(format, args...)}
	}

	if !t.Valid() {
		return reject(RuleUnknownType, "invalid shift type: %s", t)
	}

	// 1. role must match the shift type
	switch t {
	case DoctorRound:
		if staff.Role != care.RoleDoctor {
			return reject(RuleRoleMatch, "only doctors can be assigned to %s shifts", t)
		}
	case MorningNurse, AfternoonNurse:
		if staff.Role != care.RoleNurse {
			return reject(RuleRoleMatch, "only nurses can be assigned to nurse shifts")
		}
	}

	var sameDay []rules.Interval
	for _, s := range existing {
		if s.Assigned && s.Day == day {
			sameDay = append(sameDay, s.Type.Interval())
		}
	}

	// 2. daily hour cap
	hours := rules.Capacity{
		Current: rules.TotalDuration(sameDay),
		Adding:  t.Duration(),
		Max:     staff.Role.MaxHoursPerDay(),
	}
	if hours.Exceeded() {
		v := reject(RuleDailyHours,
			"shift assignment would exceed maximum hours per day. Current: %d, Adding: %d, Max: %d",
			hours.Current, hours.Adding, hours.Max)
		v.Current, v.Adding, v.Max = hours.Current, hours.Adding, hours.Max
		return v
	}

	// 3. no overlap with existing shifts that day
	if _, overlaps := rules.FirstOverlap(sameDay, t.Interval()); overlaps {
		return reject(RuleOverlap, "shift overlaps with existing assignment on %s", DayName(day))
	}

	// 4. doctors take a single DOCTOR_ROUND per day
	if staff.Role == care.RoleDoctor {
		if len(sameDay) > 0 {
			return reject(RuleDoctorSingleShift, "doctor already has shift assigned on %s", DayName(day))
		}
		if t != DoctorRound {
			return reject(RuleDoctorSingleShift, "doctors can only be assigned to %s shifts", DoctorRound)
		}
	}

	// 5. managers never work weekends. No shift type maps to Manager, so rule 1
	// rejects managers first; kept until that mapping is decided.
	if staff.Role == care.RoleManager && isWeekend(day) {
		return reject(RuleManagerWeekend, "managers cannot work on weekends")
	}

	return nil
}
