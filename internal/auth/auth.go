// Package auth identifies the acting staff member and decides what they may do.
package auth

import (
	"context"
	"fmt"

	"github.com/hackgods/carehome-allocation/internal/care"
)

type actorKey struct{}

// WithActor returns a context carrying the authenticated staff member.
func WithActor(ctx context.Context, actor care.Staff) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFrom(ctx context.Context) (care.Staff, bool) {
	actor, ok := ctx.Value(actorKey{}).(care.Staff)
	return actor, ok
}

// RolePolicy maps each action to the capability it needs. View actions only
// need a known role.
type RolePolicy struct{}

func (RolePolicy) Allows(role care.Role, action care.Action) bool {
	if !role.Valid() {
		return false
	}
	caps := role.Capabilities()
	switch action {
	case care.ActionAddPatient, care.ActionDischargePatient:
		return caps.CanAdmitPatients
	case care.ActionMovePatient:
		return caps.CanMovePatients
	case care.ActionAssignShift, care.ActionModifyShift:
		return caps.CanAssignShifts
	case care.ActionAddStaff:
		return caps.CanManageStaff
	case care.ActionAddPrescription:
		return caps.CanPrescribe
	case care.ActionAdministerMedication:
		return caps.CanAdministerMedication
	case care.ActionViewPatient, care.ActionViewShifts:
		return true
	}
	return false
}

// ContextAuthorizer reads the actor placed in the context by the HTTP layer.
type ContextAuthorizer struct {
	Policy RolePolicy
}

func NewContextAuthorizer() *ContextAuthorizer {
	return &ContextAuthorizer{}
}

func (a *ContextAuthorizer) CurrentActor(ctx context.Context) (care.Staff, error) {
	actor, ok := ActorFrom(ctx)
	if !ok || actor.ID == "" {
		return care.Staff{}, fmt.Errorf("%w: no authenticated staff member", care.ErrAuthorization)
	}
	return actor, nil
}

func (a *ContextAuthorizer) IsAuthorized(actor care.Staff, action care.Action) bool {
	return a.Policy.Allows(actor.Role, action)
}
