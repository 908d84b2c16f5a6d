package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/carehome-allocation/internal/care"
)

func TestRolePolicy(t *testing.T) {
	p := RolePolicy{}
	tests := []struct {
		role   care.Role
		action care.Action
		want   bool
	}{
		{care.RoleManager, care.ActionAddPatient, true},
		{care.RoleManager, care.ActionDischargePatient, true},
		{care.RoleManager, care.ActionMovePatient, true},
		{care.RoleManager, care.ActionAssignShift, true},
		{care.RoleManager, care.ActionModifyShift, true},
		{care.RoleNurse, care.ActionMovePatient, true},
		{care.RoleNurse, care.ActionAddPatient, false},
		{care.RoleNurse, care.ActionAssignShift, false},
		{care.RoleNurse, care.ActionViewShifts, true},
		{care.RoleDoctor, care.ActionMovePatient, false},
		{care.RoleDoctor, care.ActionDischargePatient, false},
		{care.RoleDoctor, care.ActionViewPatient, true},
		{care.RoleManager, care.ActionAddStaff, true},
		{care.RoleDoctor, care.ActionAddStaff, false},
		{care.RoleDoctor, care.ActionAddPrescription, true},
		{care.RoleNurse, care.ActionAddPrescription, false},
		{care.RoleManager, care.ActionAddPrescription, false},
		{care.RoleNurse, care.ActionAdministerMedication, true},
		{care.RoleDoctor, care.ActionAdministerMedication, false},
		{care.RoleManager, care.ActionAdministerMedication, false},
		{care.Role("Porter"), care.ActionViewPatient, false},
		{care.RoleManager, care.Action("DELETE_WARD"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Allows(tt.role, tt.action), "%s %s", tt.role, tt.action)
	}
}

func TestContextAuthorizer(t *testing.T) {
	a := NewContextAuthorizer()

	_, err := a.CurrentActor(context.Background())
	assert.ErrorIs(t, err, care.ErrAuthorization)

	nurse := care.Staff{ID: "NUR01", Role: care.RoleNurse}
	got, err := a.CurrentActor(WithActor(context.Background(), nurse))
	require.NoError(t, err)
	assert.Equal(t, nurse, got)
	assert.True(t, a.IsAuthorized(got, care.ActionMovePatient))
	assert.False(t, a.IsAuthorized(got, care.ActionDischargePatient))
}

func TestTokens_RoundTrip(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	staff := care.Staff{ID: "MGR01", Role: care.RoleManager, Username: "cara"}

	raw, exp, err := tokens.Issue(staff)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	claims, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "MGR01", claims.Subject)
	assert.Equal(t, "Manager", claims.Role)
	assert.Equal(t, "cara", claims.Username)
}

func TestTokens_Rejects(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	staff := care.Staff{ID: "MGR01", Role: care.RoleManager}

	raw, _, err := tokens.Issue(staff)
	require.NoError(t, err)

	_, err = NewTokens("other", time.Hour).Parse(raw)
	assert.ErrorIs(t, err, care.ErrAuthorization)

	expired := NewTokens("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = expired.Parse(raw)
	assert.ErrorIs(t, err, care.ErrAuthorization)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	_, err = tokens.Parse("not.a.token")
	assert.ErrorIs(t, err, care.ErrAuthorization)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "MGR01"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tokens.Parse(none)
	assert.ErrorIs(t, err, care.ErrAuthorization)
}
