package shifts

import (
	"fmt"
	"strings"
	"time"

	"github.com/hackgods/carehome-allocation/internal/care"
	"github.com/hackgods/carehome-allocation/internal/rules"
)

type Type string

const (
	MorningNurse   Type = "MORNING_NURSE"
	AfternoonNurse Type = "AFTERNOON_NURSE"
	DoctorRound    Type = "DOCTOR_ROUND"
)

// Window is a shift type's time range on the 24h clock and the role it implies.
type Window struct {
	Start int
	End   int
	Role  care.Role
}

var catalog = map[Type]Window{
	MorningNurse:   {Start: 8, End: 16, Role: care.RoleNurse},
	AfternoonNurse: {Start: 14, End: 22, Role: care.RoleNurse},
	DoctorRound:    {Start: 9, End: 10, Role: care.RoleDoctor},
}

var ordered = []Type{MorningNurse, AfternoonNurse, DoctorRound}

// Types lists every known shift type in catalog order.
func Types() []Type {
	return append([]Type(nil), ordered...)
}

// ParseType is exact-match on the type name.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if _, ok := catalog[t]; !ok {
		return "", &Violation{Rule: RuleUnknownType, Type: t, msg: fmt.Sprintf("invalid shift type: %s", s)}
	}
	return t, nil
}

func (t Type) Valid() bool {
	_, ok := catalog[t]
	return ok
}

func (t Type) Window() Window { return catalog[t] }

func (t Type) Interval() rules.Interval {
	w := catalog[t]
	return rules.Interval{Start: w.Start, End: w.End}
}

func (t Type) Duration() int { return t.Interval().Duration() }

// EligibleTypes returns the shift types a role may be given.
func EligibleTypes(role care.Role) []Type {
	var out []Type
	for _, t := range ordered {
		if catalog[t].Role == role {
			out = append(out, t)
		}
	}
	return out
}

var dayNames = map[string]time.Weekday{
	"SUNDAY":    time.Sunday,
	"MONDAY":    time.Monday,
	"TUESDAY":   time.Tuesday,
	"WEDNESDAY": time.Wednesday,
	"THURSDAY":  time.Thursday,
	"FRIDAY":    time.Friday,
	"SATURDAY":  time.Saturday,
}

// ParseDay accepts day names in any case, e.g. "monday" or "MONDAY".
func ParseDay(s string) (time.Weekday, error) {
	d, ok := dayNames[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("%w: unknown day %q", care.ErrInvalidInput, s)
	}
	return d, nil
}

func DayName(d time.Weekday) string {
	return strings.ToUpper(d.String())
}

func validDay(d time.Weekday) bool {
	return d >= time.Sunday && d <= time.Saturday
}

// weekOrder puts Monday first, matching how schedules are read.
func weekOrder(d time.Weekday) int {
	return (int(d) + 6) % 7
}

func isWeekend(d time.Weekday) bool {
	return d == time.Saturday || d == time.Sunday
}
