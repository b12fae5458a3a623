// Package care exposes read-only access to the medical records platform's
// patient data, scoped the way the bot is allowed to see it, plus the privacy
// filtering and message formatting applied before anything leaves over the
// messaging channel.
package care

import (
	"time"

	"github.com/google/uuid"
)

// Record is a summarized encounter from the patient's history.
type Record struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PatientRef     uuid.UUID `db:"patient_id" json:"patient_id"`
	Date           time.Time `db:"encounter_date" json:"encounter_date"`
	EncounterType  string    `db:"encounter_type" json:"encounter_type"`
	ChiefComplaint *string   `db:"chief_complaint" json:"chief_complaint,omitempty"`
	Diagnosis      *string   `db:"diagnosis" json:"diagnosis,omitempty"`
}

// Medication is an active medication order.
type Medication struct {
	ID           uuid.UUID `db:"id" json:"id"`
	PatientRef   uuid.UUID `db:"patient_id" json:"patient_id"`
	Name         string    `db:"name" json:"name"`
	Dosage       *string   `db:"dosage" json:"dosage,omitempty"`
	Frequency    *string   `db:"frequency" json:"frequency,omitempty"`
	Instructions *string   `db:"instructions" json:"instructions,omitempty"`
	Status       string    `db:"status" json:"status"`
}

// Appointment is an upcoming (or cancelled) visit. Identity is the patient's
// phone, denormalized so the reminder scheduler can address messages without
// a second lookup.
type Appointment struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	PatientRef  uuid.UUID  `db:"patient_id" json:"patient_id"`
	PatientName string     `db:"patient_name" json:"patient_name"`
	Identity    string     `db:"patient_phone" json:"patient_phone"`
	StartsAt    time.Time  `db:"starts_at" json:"starts_at"`
	Facility    string     `db:"facility" json:"facility"`
	DoctorName  *string    `db:"doctor_name" json:"doctor_name,omitempty"`
	Kind        *string    `db:"kind" json:"kind,omitempty"`
	CancelledAt *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
}

// Procedure is a recently performed procedure.
type Procedure struct {
	ID         uuid.UUID `db:"id" json:"id"`
	PatientRef uuid.UUID `db:"patient_id" json:"patient_id"`
	Date       time.Time `db:"performed_date" json:"performed_date"`
	Name       string    `db:"name" json:"name"`
	Facility   *string   `db:"facility" json:"facility,omitempty"`
	Status     string    `db:"status" json:"status"`
}

// PatientSummary is the staff-facing view of a patient. Phone is stored raw;
// the formatter masks it before it reaches the channel.
type PatientSummary struct {
	Ref        uuid.UUID `db:"id" json:"id"`
	ExternalID string    `db:"external_id" json:"external_id"`
	Name       string    `db:"name" json:"name"`
	Age        *int      `db:"age" json:"age,omitempty"`
	Gender     *string   `db:"gender" json:"gender,omitempty"`
	BloodGroup *string   `db:"blood_group" json:"blood_group,omitempty"`
	Phone      string    `db:"phone" json:"phone"`
}

// AppointmentRequest is a scheduling request assembled by the staff
// multi-turn flow, queued for the scheduling desk to confirm.
type AppointmentRequest struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientRef  uuid.UUID `db:"patient_id" json:"patient_id"`
	RequestedBy uuid.UUID `db:"requested_by" json:"requested_by"`
	StartsAt    time.Time `db:"starts_at" json:"starts_at"`
	Reason      string    `db:"reason" json:"reason"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
