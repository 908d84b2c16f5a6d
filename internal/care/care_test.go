package care

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, KindOK},
		{fmt.Errorf("%w: patient P1", ErrNotFound), KindNotFound},
		{fmt.Errorf("%w: bed W1R2B1 occupied", ErrConflict), KindConflict},
		{fmt.Errorf("wrap: %w", fmt.Errorf("%w: gender", ErrCompliance)), KindCompliance},
		{ErrScheduling, KindScheduling},
		{ErrAuthorization, KindAuthorization},
		{ErrInvalidInput, KindInvalidInput},
		{errors.New("db down"), KindInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.err), "%v", tt.err)
	}
}

func TestParseGender(t *testing.T) {
	for in, want := range map[string]Gender{"male": GenderMale, "M": GenderMale, " Female ": GenderFemale, "f": GenderFemale} {
		got, err := ParseGender(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseGender("x")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.False(t, Gender("").Valid())
}

func TestRoles(t *testing.T) {
	r, err := ParseRole("NURSE")
	require.NoError(t, err)
	assert.Equal(t, RoleNurse, r)

	_, err = ParseRole("porter")
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Equal(t, 12, RoleManager.MaxHoursPerDay())
	assert.Equal(t, 8, RoleDoctor.MaxHoursPerDay())
	assert.Equal(t, 8, RoleNurse.MaxHoursPerDay())

	assert.True(t, RoleNurse.Capabilities().CanMovePatients)
	assert.False(t, RoleNurse.Capabilities().CanAdmitPatients)
	assert.False(t, RoleDoctor.Capabilities().CanMovePatients)
	assert.True(t, RoleManager.Capabilities().CanAssignShifts)
	assert.Equal(t, Capabilities{}, Role("Porter").Capabilities())

	assert.True(t, RoleDoctor.Capabilities().CanPrescribe)
	assert.False(t, RoleNurse.Capabilities().CanPrescribe)
	assert.False(t, RoleManager.Capabilities().CanPrescribe)
	assert.True(t, RoleNurse.Capabilities().CanAdministerMedication)
	assert.False(t, RoleDoctor.Capabilities().CanAdministerMedication)
	assert.True(t, RoleManager.Capabilities().CanManageStaff)
	assert.False(t, RoleNurse.Capabilities().CanManageStaff)
}

func TestPrescription_CoversDay(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, 10, d, 0, 0, 0, 0, time.UTC) }
	p := Prescription{StartDate: day(10), EndDate: day(14)}

	assert.False(t, p.CoversDay(day(9)))
	assert.True(t, p.CoversDay(day(10)))
	assert.True(t, p.CoversDay(day(14).Add(23*time.Hour)))
	assert.False(t, p.CoversDay(day(15)))

	open := Prescription{StartDate: day(10)}
	assert.True(t, open.CoversDay(day(30)))
}

func TestNames(t *testing.T) {
	assert.Equal(t, "Ana Reyes", Patient{FirstName: "Ana", LastName: "Reyes"}.Name())
	assert.Equal(t, "Ben", Staff{FirstName: "Ben"}.Name())
}
