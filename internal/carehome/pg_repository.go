package carehome

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/carehome-allocation/internal/beds"
	"github.com/hackgods/carehome-allocation/internal/care"
	"github.com/hackgods/carehome-allocation/internal/facility"
	"github.com/hackgods/carehome-allocation/internal/shifts"
)

const uniqueViolation = "23505"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanPatient(row pgx.Row) (*care.Patient, error) {
	var p care.Patient
	var gender string

	err := row.Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&p.Age,
		&gender,
		&p.NeedsIsolation,
		&p.AdmittedOn,
		&p.Active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	p.Gender = care.Gender(gender)
	return &p, nil
}

func scanStaff(row pgx.Row) (*care.Staff, error) {
	var s care.Staff
	var gender, role string

	err := row.Scan(
		&s.ID,
		&s.FirstName,
		&s.LastName,
		&gender,
		&s.Age,
		&role,
		&s.Username,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStaffNotFound
		}
		return nil, err
	}

	s.Gender = care.Gender(gender)
	s.Role = care.Role(role)
	return &s, nil
}

func scanShift(row pgx.Row) (*shifts.Shift, error) {
	var s shifts.Shift
	var staffID *string
	var day, shiftType string

	err := row.Scan(
		&s.ID,
		&staffID,
		&day,
		&shiftType,
		&s.Assigned,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrShiftNotFound
		}
		return nil, err
	}

	d, err := shifts.ParseDay(day)
	if err != nil {
		return nil, fmt.Errorf("shift %s: %w", s.ID, err)
	}
	s.Day = d
	s.Type = shifts.Type(shiftType)
	if staffID != nil {
		s.StaffID = *staffID
	}
	return &s, nil
}

func scanPrescription(row pgx.Row) (*care.Prescription, error) {
	var p care.Prescription
	var endDate *time.Time

	err := row.Scan(
		&p.ID,
		&p.PatientID,
		&p.DoctorID,
		&p.Medication,
		&p.Dosage,
		&p.Frequency,
		&p.StartDate,
		&endDate,
		&p.Active,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPrescriptionNotFound
		}
		return nil, err
	}

	if endDate != nil {
		p.EndDate = *endDate
	}
	return &p, nil
}

func nullableDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id string) (*care.Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, age, gender, needs_isolation, admitted_on, active
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetStaffByID(ctx context.Context, id string) (*care.Staff, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, gender, age, role, username
		FROM staff
		WHERE id = $1
	`, id)
	return scanStaff(row)
}

func (r *PgRepository) GetStaffByUsername(ctx context.Context, username string) (*care.Staff, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, gender, age, role, username
		FROM staff
		WHERE username = $1
	`, username)
	return scanStaff(row)
}

func (r *PgRepository) CreateStaff(ctx context.Context, s care.Staff) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO staff (id, first_name, last_name, gender, age, role, username, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
	`, s.ID, s.FirstName, s.LastName, string(s.Gender), s.Age, string(s.Role), s.Username)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrStaffExists
		}
		return fmt.Errorf("insert staff: %w", err)
	}
	return nil
}

func (r *PgRepository) AdmitPatient(ctx context.Context, p care.Patient, bed beds.Transition) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO patients (id, first_name, last_name, age, gender, needs_isolation, admitted_on, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, now(), now())
		`, p.ID, p.FirstName, p.LastName, p.Age, string(p.Gender), p.NeedsIsolation, p.AdmittedOn)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrPatientExists
			}
			return fmt.Errorf("insert patient: %w", err)
		}
		return applyTransitions(ctx, tx, []beds.Transition{bed})
	})
}

func (r *PgRepository) DischargePatient(ctx context.Context, patientID string, changes ...beds.Transition) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := applyTransitions(ctx, tx, changes); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `
			UPDATE patients
			SET active = FALSE,
			    updated_at = now()
			WHERE id = $1
		`, patientID)
		if err != nil {
			return fmt.Errorf("discharge patient: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrPatientNotFound
		}
		return nil
	})
}

func (r *PgRepository) LoadBedState(ctx context.Context) ([]beds.BedState, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT b.id, p.id, p.gender, p.needs_isolation
		FROM beds b
		LEFT JOIN patients p ON p.id = b.patient_id
		ORDER BY b.position
	`)
	if err != nil {
		return nil, fmt.Errorf("query beds: %w", err)
	}
	defer rows.Close()

	var result []beds.BedState
	for rows.Next() {
		var bedID string
		var patientID, gender *string
		var isolation *bool
		if err := rows.Scan(&bedID, &patientID, &gender, &isolation); err != nil {
			return nil, err
		}

		st := beds.BedState{BedID: bedID}
		if patientID != nil {
			occ := beds.Occupant{PatientID: *patientID}
			if gender != nil {
				occ.Gender = care.Gender(*gender)
			}
			if isolation != nil {
				occ.Isolation = *isolation
			}
			st.Occupant = &occ
		}
		result = append(result, st)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) CommitBedTransition(ctx context.Context, changes ...beds.Transition) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return applyTransitions(ctx, tx, changes)
	})
}

// applyTransitions runs each change as a conditional UPDATE on the expected
// occupant. Any miss aborts the surrounding transaction.
func applyTransitions(ctx context.Context, tx pgx.Tx, changes []beds.Transition) error {
	for _, c := range changes {
		tag, err := tx.Exec(ctx, `
			UPDATE beds
			SET patient_id = $2,
			    updated_at = now()
			WHERE id = $1
			  AND patient_id IS NOT DISTINCT FROM $3
		`, c.BedID, nullable(c.To), nullable(c.From))
		if err != nil {
			return fmt.Errorf("update bed %s: %w", c.BedID, err)
		}
		if tag.RowsAffected() != 1 {
			return fmt.Errorf("%w: bed %s", ErrStaleBed, c.BedID)
		}
	}
	return nil
}

// EnsureBeds inserts any facility bed missing from the beds table.
func (r *PgRepository) EnsureBeds(ctx context.Context, fac *facility.Facility) error {
	batch := &pgx.Batch{}
	for _, b := range fac.Beds() {
		batch.Queue(`
			INSERT INTO beds (id, ward_id, room_id, position, updated_at)
			VALUES ($1, $2, $3, $4, now())
			ON CONFLICT (id) DO NOTHING
		`, b.ID, b.WardID, b.RoomID, b.Position)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("ensure beds: %w", err)
	}
	return nil
}

func (r *PgRepository) GetShiftByID(ctx context.Context, id string) (*shifts.Shift, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id::text, staff_id, day, shift_type, assigned, created_at
		FROM shifts
		WHERE id::text = $1
	`, id)
	return scanShift(row)
}

func (r *PgRepository) LoadShiftsForStaff(ctx context.Context, staffID string) ([]shifts.Shift, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, staff_id, day, shift_type, assigned, created_at
		FROM shifts
		WHERE staff_id = $1
		  AND assigned
		ORDER BY created_at
	`, staffID)
	if err != nil {
		return nil, fmt.Errorf("query shifts: %w", err)
	}
	defer rows.Close()

	var result []shifts.Shift
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) CommitShift(ctx context.Context, s shifts.Shift) error {
	createdAt := s.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO shifts (id, staff_id, day, shift_type, assigned, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (id) DO UPDATE
		SET staff_id = EXCLUDED.staff_id,
		    assigned = EXCLUDED.assigned,
		    updated_at = now()
	`, s.ID, nullable(s.StaffID), shifts.DayName(s.Day), string(s.Type), s.Assigned, createdAt)
	if err != nil {
		return fmt.Errorf("upsert shift %s: %w", s.ID, err)
	}
	return nil
}

func (r *PgRepository) CreatePrescription(ctx context.Context, p care.Prescription) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO prescriptions (id, patient_id, doctor_id, medication, dosage, frequency, start_date, end_date, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, p.ID, p.PatientID, p.DoctorID, p.Medication, p.Dosage, p.Frequency, p.StartDate, nullableDate(p.EndDate), p.Active, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert prescription: %w", err)
	}
	return nil
}

func (r *PgRepository) GetPrescriptionByID(ctx context.Context, id string) (*care.Prescription, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id::text, patient_id, doctor_id, medication, dosage, frequency, start_date, end_date, active, created_at
		FROM prescriptions
		WHERE id::text = $1
	`, id)
	return scanPrescription(row)
}

func (r *PgRepository) ListPrescriptionsForPatient(ctx context.Context, patientID string) ([]care.Prescription, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, patient_id, doctor_id, medication, dosage, frequency, start_date, end_date, active, created_at
		FROM prescriptions
		WHERE patient_id = $1
		  AND active
		ORDER BY created_at DESC, id
	`, patientID)
	if err != nil {
		return nil, fmt.Errorf("query prescriptions: %w", err)
	}
	defer rows.Close()

	var result []care.Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) RecordAdministration(ctx context.Context, a care.Administration) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO medication_administrations (id, prescription_id, patient_id, nurse_id, administered_at, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, a.ID, a.PrescriptionID, a.PatientID, a.NurseID, a.AdministeredAt, a.Notes)
	if err != nil {
		return fmt.Errorf("insert administration: %w", err)
	}
	return nil
}

func (r *PgRepository) ListAdministrations(ctx context.Context, prescriptionID string) ([]care.Administration, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, prescription_id::text, patient_id, nurse_id, administered_at, notes
		FROM medication_administrations
		WHERE prescription_id::text = $1
		ORDER BY administered_at
	`, prescriptionID)
	if err != nil {
		return nil, fmt.Errorf("query administrations: %w", err)
	}
	defer rows.Close()

	var result []care.Administration
	for rows.Next() {
		var a care.Administration
		if err := rows.Scan(&a.ID, &a.PrescriptionID, &a.PatientID, &a.NurseID, &a.AdministeredAt, &a.Notes); err != nil {
			return nil, err
		}
		result = append(result, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Ping reports whether the pool can reach Postgres.
func (r *PgRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
