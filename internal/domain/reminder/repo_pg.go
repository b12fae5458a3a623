package reminder

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG creates a Repo backed by Postgres. Idempotency rides on the
// partial unique index over dedup_key, which excludes cancelled rows so a
// reinstated appointment can be scheduled again.
func NewRepoPG(pool *pgxpool.Pool) Repo {
	return &repoPG{pool: pool}
}

const notificationCols = `id, appointment_id, identity, kind, dedup_key, fire_at, body, status, created_at, sent_at`

func scanNotification(row pgx.Row) (PendingNotification, error) {
	var n PendingNotification
	err := row.Scan(&n.ID, &n.AppointmentID, &n.Identity, &n.Kind, &n.DedupKey,
		&n.FireAt, &n.Body, &n.Status, &n.CreatedAt, &n.SentAt)
	return n, err
}

func (r *repoPG) InsertPending(ctx context.Context, n *PendingNotification) (bool, error) {
	n.ID = uuid.New()
	n.DedupKey = DedupKeyFor(n.AppointmentID, n.Kind)
	n.Status = StatusPending

	tag, err := r.pool.Exec(ctx, `
		INSERT INTO pending_notification (id, appointment_id, identity, kind, dedup_key, fire_at, body, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (dedup_key) WHERE status <> 'cancelled' DO NOTHING`,
		n.ID, n.AppointmentID, n.Identity, n.Kind, n.DedupKey, n.FireAt, n.Body, n.Status)
	if err != nil {
		return false, fmt.Errorf("insert pending notification: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repoPG) ListByStatus(ctx context.Context, status Status, limit int) ([]PendingNotification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+notificationCols+` FROM pending_notification
		WHERE status = $1 ORDER BY fire_at LIMIT $2`, status, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

func (r *repoPG) Due(ctx context.Context, limit int) ([]PendingNotification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+notificationCols+` FROM pending_notification
		WHERE status = 'pending' AND fire_at <= NOW()
		ORDER BY fire_at LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list due notifications: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

func collect(rows pgx.Rows) ([]PendingNotification, error) {
	var items []PendingNotification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

func (r *repoPG) MarkSent(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE pending_notification SET status = 'sent', sent_at = NOW() WHERE id = $1`, id)
	return err
}

func (r *repoPG) MarkFailed(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE pending_notification SET status = 'failed' WHERE id = $1`, id)
	return err
}

func (r *repoPG) CancelForAppointment(ctx context.Context, appointmentID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE pending_notification SET status = 'cancelled'
		WHERE appointment_id = $1 AND status = 'pending'`, appointmentID)
	if err != nil {
		return 0, fmt.Errorf("cancel notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}
