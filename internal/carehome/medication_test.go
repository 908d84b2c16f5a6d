package carehome

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/carehome-allocation/internal/auth"
	"github.com/hackgods/carehome-allocation/internal/care"
)

func date(d int) time.Time {
	return time.Date(2026, 10, d, 0, 0, 0, 0, time.UTC)
}

func TestService_AddStaff(t *testing.T) {
	f := newFixture(t)

	s, err := f.svc.AddStaff(as(manager), NewStaff{
		ID: "NUR02", FirstName: " Ola ", LastName: "Berg", Gender: "f", Age: 29, Role: "nurse", Username: "Ola.Berg",
	})
	require.NoError(t, err)
	assert.Equal(t, care.RoleNurse, s.Role)
	assert.Equal(t, care.GenderFemale, s.Gender)
	assert.Equal(t, "ola.berg", s.Username)

	stored, err := f.repo.GetStaffByUsername(context.Background(), "ola.berg")
	require.NoError(t, err)
	assert.Equal(t, "NUR02", stored.ID)

	entries := f.audit.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, auditEntry{"MGR01", care.ActionAddStaff, "NUR02", "added staff member Ola Berg as Nurse"}, entries[0])

	// the new nurse can be rostered straight away
	_, err = f.svc.AssignShift(as(manager), "NUR02", time.Monday, "MORNING_NURSE")
	require.NoError(t, err)
}

func TestService_AddStaffRejects(t *testing.T) {
	f := newFixture(t)
	valid := NewStaff{ID: "DOC02", FirstName: "Ivo", LastName: "Marsh", Gender: "MALE", Age: 50, Role: "Doctor", Username: "ivo"}

	tests := []struct {
		name string
		ctx  context.Context
		edit func(*NewStaff)
		want error
	}{
		{"nurse may not add staff", as(nurse), nil, care.ErrAuthorization},
		{"doctor may not add staff", as(doctor), nil, care.ErrAuthorization},
		{"anonymous", context.Background(), nil, care.ErrAuthorization},
		{"unknown role", as(manager), func(n *NewStaff) { n.Role = "Porter" }, care.ErrInvalidInput},
		{"missing username", as(manager), func(n *NewStaff) { n.Username = " " }, care.ErrInvalidInput},
		{"missing name", as(manager), func(n *NewStaff) { n.LastName = "" }, care.ErrInvalidInput},
		{"bad gender", as(manager), func(n *NewStaff) { n.Gender = "x" }, care.ErrInvalidInput},
		{"duplicate id", as(manager), func(n *NewStaff) { n.ID = "NUR01" }, care.ErrConflict},
		{"duplicate username", as(manager), func(n *NewStaff) { n.Username = "ana" }, care.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			if tt.edit != nil {
				tt.edit(&req)
			}
			_, err := f.svc.AddStaff(tt.ctx, req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, f.audit.Entries())

	_, err := f.svc.AddStaff(as(manager), NewStaff{FirstName: "No", LastName: "Id", Gender: "F", Role: "Nurse", Username: "noid"})
	require.NoError(t, err)
}

func TestService_AddPrescription(t *testing.T) {
	f := newFixture(t)
	f.admit(t, "P01", "FEMALE", false)

	p, err := f.svc.AddPrescription(as(doctor), NewPrescription{
		PatientID: "P01", Medication: "Paracetamol", Dosage: "500mg", Frequency: "4x daily",
		EndDate: date(19).Add(15 * time.Hour),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "DOC01", p.DoctorID)
	assert.Equal(t, date(12), p.StartDate)
	assert.Equal(t, date(19), p.EndDate)
	assert.True(t, p.Active)

	list, err := f.svc.PatientPrescriptions(as(nurse), "P01")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].ID)

	entries := f.audit.Entries()
	last := entries[len(entries)-1]
	assert.Equal(t, care.ActionAddPrescription, last.Action)
	assert.Equal(t, "DOC01", last.ActorID)
	assert.Equal(t, "P01", last.TargetID)
	assert.Contains(t, last.Detail, "Paracetamol 500mg 4x daily")
}

func TestService_AddPrescriptionRejects(t *testing.T) {
	f := newFixture(t)
	f.admit(t, "P01", "FEMALE", false)
	f.admit(t, "P02", "MALE", false)
	_, err := f.svc.DischargePatient(as(manager), "P02")
	require.NoError(t, err)

	valid := NewPrescription{PatientID: "P01", Medication: "Amoxicillin", Dosage: "250mg", Frequency: "3x daily"}
	tests := []struct {
		name string
		ctx  context.Context
		edit func(*NewPrescription)
		want error
	}{
		{"nurse may not prescribe", as(nurse), nil, care.ErrAuthorization},
		{"manager may not prescribe", as(manager), nil, care.ErrAuthorization},
		{"missing medication", as(doctor), func(n *NewPrescription) { n.Medication = "" }, care.ErrInvalidInput},
		{"missing dosage", as(doctor), func(n *NewPrescription) { n.Dosage = " " }, care.ErrInvalidInput},
		{"end before start", as(doctor), func(n *NewPrescription) { n.StartDate, n.EndDate = date(14), date(13) }, care.ErrInvalidInput},
		{"unknown patient", as(doctor), func(n *NewPrescription) { n.PatientID = "P99" }, care.ErrNotFound},
		{"discharged patient", as(doctor), func(n *NewPrescription) { n.PatientID = "P02" }, care.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			if tt.edit != nil {
				tt.edit(&req)
			}
			_, err := f.svc.AddPrescription(tt.ctx, req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	list, err := f.svc.PatientPrescriptions(as(doctor), "P01")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = f.svc.PatientPrescriptions(as(doctor), "P99")
	assert.ErrorIs(t, err, care.ErrNotFound)
}

func TestService_AdministerMedication(t *testing.T) {
	f := newFixture(t)
	f.admit(t, "P01", "FEMALE", false)
	p, err := f.svc.AddPrescription(as(doctor), NewPrescription{PatientID: "P01", Medication: "Insulin", Dosage: "10u", Frequency: "daily"})
	require.NoError(t, err)

	a, err := f.svc.AdministerMedication(as(nurse), p.ID, " with breakfast ")
	require.NoError(t, err)
	assert.Equal(t, "NUR01", a.NurseID)
	assert.Equal(t, "P01", a.PatientID)
	assert.Equal(t, "with breakfast", a.Notes)
	assert.Equal(t, time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC), a.AdministeredAt)

	given, err := f.svc.Administrations(as(doctor), p.ID)
	require.NoError(t, err)
	require.Len(t, given, 1)
	assert.Equal(t, a.ID, given[0].ID)

	entries := f.audit.Entries()
	assert.Equal(t, auditEntry{"NUR01", care.ActionAdministerMedication, p.ID, "administered Insulin: with breakfast"}, entries[len(entries)-1])
}

func TestService_AdministerMedicationRejects(t *testing.T) {
	f := newFixture(t)
	f.admit(t, "P01", "FEMALE", false)
	f.admit(t, "P02", "MALE", false)

	current, err := f.svc.AddPrescription(as(doctor), NewPrescription{PatientID: "P01", Medication: "A", Dosage: "1", Frequency: "daily"})
	require.NoError(t, err)
	future, err := f.svc.AddPrescription(as(doctor), NewPrescription{PatientID: "P01", Medication: "B", Dosage: "1", Frequency: "daily", StartDate: date(20)})
	require.NoError(t, err)
	leaving, err := f.svc.AddPrescription(as(doctor), NewPrescription{PatientID: "P02", Medication: "C", Dosage: "1", Frequency: "daily"})
	require.NoError(t, err)
	_, err = f.svc.DischargePatient(as(manager), "P02")
	require.NoError(t, err)

	tests := []struct {
		name string
		ctx  context.Context
		id   string
		want error
	}{
		{"doctor may not administer", as(doctor), current.ID, care.ErrAuthorization},
		{"manager may not administer", as(manager), current.ID, care.ErrAuthorization},
		{"unknown prescription", as(nurse), "missing", care.ErrNotFound},
		{"course not started", as(nurse), future.ID, care.ErrCompliance},
		{"patient discharged", as(nurse), leaving.ID, care.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AdministerMedication(tt.ctx, tt.id, "")
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err = f.svc.Administrations(as(nurse), "missing")
	assert.ErrorIs(t, err, care.ErrNotFound)
	none, err := f.svc.Administrations(as(nurse), current.ID)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestService_ActorWithoutIDIsRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Beds(auth.WithActor(context.Background(), care.Staff{Role: care.RoleManager}))
	assert.ErrorIs(t, err, care.ErrAuthorization)

	_, err = f.svc.Beds(as(care.Staff{ID: "X1", Role: care.Role("Porter")}))
	assert.ErrorIs(t, err, care.ErrAuthorization)
}
