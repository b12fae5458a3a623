package care

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG creates a DataSource backed by the platform's Postgres database.
func NewRepoPG(pool *pgxpool.Pool) DataSource {
	return &repoPG{pool: pool}
}

// ErrPatientNotFound is returned by PatientByExternalID for unknown ids.
var ErrPatientNotFound = errors.New("patient not found")

const recordCols = `id, patient_id, encounter_date, encounter_type, chief_complaint, diagnosis`

func (r *repoPG) RecentRecords(ctx context.Context, patientRef uuid.UUID, limit int) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+recordCols+` FROM encounter
		WHERE patient_id = $1 AND encounter_date >= NOW() - INTERVAL '180 days'
		ORDER BY encounter_date DESC LIMIT $2`, patientRef, limit)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var items []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.PatientRef, &rec.Date, &rec.EncounterType,
			&rec.ChiefComplaint, &rec.Diagnosis); err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

func (r *repoPG) ActiveMedications(ctx context.Context, patientRef uuid.UUID) ([]Medication, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_id, name, dosage, frequency, instructions, status
		FROM medication_request
		WHERE patient_id = $1 AND status IN ('active', 'on-hold')
		ORDER BY created_at DESC`, patientRef)
	if err != nil {
		return nil, fmt.Errorf("query medications: %w", err)
	}
	defer rows.Close()

	var items []Medication
	for rows.Next() {
		var m Medication
		if err := rows.Scan(&m.ID, &m.PatientRef, &m.Name, &m.Dosage,
			&m.Frequency, &m.Instructions, &m.Status); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const appointmentCols = `a.id, a.patient_id, p.name, p.phone, a.starts_at, a.facility,
	a.doctor_name, a.kind, a.cancelled_at`

func scanAppointment(row pgx.Row) (Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientRef, &a.PatientName, &a.Identity, &a.StartsAt,
		&a.Facility, &a.DoctorName, &a.Kind, &a.CancelledAt)
	return a, err
}

func (r *repoPG) UpcomingAppointments(ctx context.Context, patientRef uuid.UUID) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentCols+` FROM appointment a
		JOIN patient p ON p.id = a.patient_id
		WHERE a.patient_id = $1 AND a.starts_at >= NOW() AND a.cancelled_at IS NULL
		ORDER BY a.starts_at`, patientRef)
	if err != nil {
		return nil, fmt.Errorf("query appointments: %w", err)
	}
	defer rows.Close()

	var items []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *repoPG) RecentProcedures(ctx context.Context, patientRef uuid.UUID, limit int) ([]Procedure, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_id, performed_date, name, facility, status
		FROM procedure
		WHERE patient_id = $1 AND performed_date >= NOW() - INTERVAL '90 days'
		ORDER BY performed_date DESC LIMIT $2`, patientRef, limit)
	if err != nil {
		return nil, fmt.Errorf("query procedures: %w", err)
	}
	defer rows.Close()

	var items []Procedure
	for rows.Next() {
		var p Procedure
		if err := rows.Scan(&p.ID, &p.PatientRef, &p.Date, &p.Name, &p.Facility, &p.Status); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const patientCols = `id, external_id, name, age, gender, blood_group, phone`

func (r *repoPG) SearchPatients(ctx context.Context, query string, limit int) ([]PatientSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+patientCols+` FROM patient
		WHERE active AND (name ILIKE '%' || $1 || '%'
			OR phone LIKE '%' || $1 || '%'
			OR external_id ILIKE '%' || $1 || '%')
		ORDER BY name LIMIT $2`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search patients: %w", err)
	}
	defer rows.Close()

	var items []PatientSummary
	for rows.Next() {
		var p PatientSummary
		if err := rows.Scan(&p.Ref, &p.ExternalID, &p.Name, &p.Age, &p.Gender,
			&p.BloodGroup, &p.Phone); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *repoPG) PatientByExternalID(ctx context.Context, externalID string) (*PatientSummary, error) {
	var p PatientSummary
	err := r.pool.QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE external_id = $1 AND active`, externalID).
		Scan(&p.Ref, &p.ExternalID, &p.Name, &p.Age, &p.Gender, &p.BloodGroup, &p.Phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get patient: %w", err)
	}
	return &p, nil
}

func (r *repoPG) AppointmentsInWindow(ctx context.Context, from, to time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentCols+` FROM appointment a
		JOIN patient p ON p.id = a.patient_id
		WHERE a.starts_at >= $1 AND a.starts_at <= $2
		ORDER BY a.starts_at`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query appointment window: %w", err)
	}
	defer rows.Close()

	var items []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *repoPG) CreateAppointmentRequest(ctx context.Context, req *AppointmentRequest) error {
	req.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointment_request (id, patient_id, requested_by, starts_at, reason)
		VALUES ($1, $2, $3, $4, $5)`,
		req.ID, req.PatientRef, req.RequestedBy, req.StartsAt, req.Reason)
	return err
}
