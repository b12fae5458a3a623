// Package reminder schedules and dispatches appointment reminders. Scheduling
// is idempotent: each appointment yields at most one pending notification per
// reminder kind no matter how many times the scan runs.
package reminder

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind identifies which reminder of an appointment a notification carries.
type Kind string

const (
	KindDayBefore   Kind = "day_before"
	KindHoursBefore Kind = "hours_before"
)

// Status is the lifecycle of a pending notification.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// PendingNotification is one queued reminder message.
type PendingNotification struct {
	ID            uuid.UUID `db:"id" json:"id"`
	AppointmentID uuid.UUID `db:"appointment_id" json:"appointment_id"`
	Identity      string    `db:"identity" json:"identity"`
	Kind          Kind      `db:"kind" json:"kind"`
	DedupKey      string    `db:"dedup_key" json:"dedup_key"`
	FireAt        time.Time `db:"fire_at" json:"fire_at"`
	Body          string    `db:"body" json:"body"`
	Status        Status    `db:"status" json:"status"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	SentAt        *time.Time `db:"sent_at" json:"sent_at,omitempty"`
}

// DedupKeyFor is the uniqueness key enforced by the store. One appointment
// gets at most one notification per kind.
func DedupKeyFor(appointmentID uuid.UUID, kind Kind) string {
	return fmt.Sprintf("%s:%s", appointmentID, kind)
}
