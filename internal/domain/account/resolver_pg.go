package account

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carebot/carebot/internal/domain/session"
)

type resolverPG struct{ pool *pgxpool.Pool }

// NewResolverPG creates a Resolver backed by the patient and staff tables.
func NewResolverPG(pool *pgxpool.Pool) Resolver {
	return &resolverPG{pool: pool}
}

// NormalizeIdentity strips everything but digits so that "+91 98765-43210"
// and "919876543210" resolve to the same account.
func NormalizeIdentity(identity string) string {
	var b strings.Builder
	for _, r := range identity {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (r *resolverPG) Resolve(ctx context.Context, identity string) (*Link, error) {
	phone := NormalizeIdentity(identity)
	if phone == "" {
		return nil, ErrUnknownIdentity
	}

	link := &Link{Role: session.RolePatient}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name FROM patient WHERE phone = $1 AND active`, phone).
		Scan(&link.Ref, &link.Name)
	if err == nil {
		return link, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	link = &Link{Role: session.RoleStaff}
	err = r.pool.QueryRow(ctx,
		`SELECT id, name FROM staff WHERE phone = $1 AND active`, phone).
		Scan(&link.Ref, &link.Name)
	if err == nil {
		return link, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUnknownIdentity
	}
	return nil, err
}
