package reminder

import (
	"context"

	"github.com/google/uuid"
)

// Repo persists pending notifications. InsertPending reports whether a row
// was actually created; a dedup-key collision with a non-cancelled row
// inserts nothing and returns false without error. Cancelled rows never
// collide, so a reinstated appointment can be scheduled again.
type Repo interface {
	InsertPending(ctx context.Context, n *PendingNotification) (bool, error)
	ListByStatus(ctx context.Context, status Status, limit int) ([]PendingNotification, error)
	Due(ctx context.Context, limit int) ([]PendingNotification, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID) error
	CancelForAppointment(ctx context.Context, appointmentID uuid.UUID) (int64, error)
}
