package care

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DataSource is the domain-data collaborator. Every patient-scoped query takes
// the session's linked account reference; handlers never pass through a
// caller-supplied patient id for the patient's own data.
type DataSource interface {
	RecentRecords(ctx context.Context, patientRef uuid.UUID, limit int) ([]Record, error)
	ActiveMedications(ctx context.Context, patientRef uuid.UUID) ([]Medication, error)
	UpcomingAppointments(ctx context.Context, patientRef uuid.UUID) ([]Appointment, error)
	RecentProcedures(ctx context.Context, patientRef uuid.UUID, limit int) ([]Procedure, error)

	SearchPatients(ctx context.Context, query string, limit int) ([]PatientSummary, error)
	PatientByExternalID(ctx context.Context, externalID string) (*PatientSummary, error)

	AppointmentsInWindow(ctx context.Context, from, to time.Time) ([]Appointment, error)
	CreateAppointmentRequest(ctx context.Context, req *AppointmentRequest) error
}
