package care

import (
	"fmt"
	"strings"
)

// Role is a closed set. Every switch over it must cover all three members.
type Role string

const (
	RoleManager Role = "Manager"
	RoleDoctor  Role = "Doctor"
	RoleNurse   Role = "Nurse"
)

// Capabilities is the per-role data the allocators consult.
type Capabilities struct {
	MaxHoursPerDay          int
	CanMovePatients         bool
	CanAdmitPatients        bool
	CanAssignShifts         bool
	CanManageStaff          bool
	CanPrescribe            bool
	CanAdministerMedication bool
}

func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "manager":
		return RoleManager, nil
	case "doctor":
		return RoleDoctor, nil
	case "nurse":
		return RoleNurse, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
}

func (r Role) Valid() bool {
	switch r {
	case RoleManager, RoleDoctor, RoleNurse:
		return true
	}
	return false
}

// Capabilities returns the zero value for an unknown role, which grants nothing.
func (r Role) Capabilities() Capabilities {
	switch r {
	case RoleManager:
		return Capabilities{MaxHoursPerDay: 12, CanMovePatients: true, CanAdmitPatients: true, CanAssignShifts: true, CanManageStaff: true}
	case RoleDoctor:
		return Capabilities{MaxHoursPerDay: 8, CanPrescribe: true}
	case RoleNurse:
		return Capabilities{MaxHoursPerDay: 8, CanMovePatients: true, CanAdministerMedication: true}
	}
	return Capabilities{}
}

func (r Role) MaxHoursPerDay() int { return r.Capabilities().MaxHoursPerDay }
