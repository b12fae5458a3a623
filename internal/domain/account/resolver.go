// Package account resolves a channel identity (phone number) to a platform
// account: a patient or a staff member.
package account

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/carebot/carebot/internal/domain/session"
)

// ErrUnknownIdentity means no account is linked to the identity. Callers show
// a generic "account not found" reply; the error carries nothing that would
// confirm or deny the identity's existence beyond that.
var ErrUnknownIdentity = errors.New("account not found for identity")

// Link binds a verified identity to an account.
type Link struct {
	Ref  uuid.UUID
	Role session.Role
	Name string
}

// Resolver looks up the account linked to an identity. Patients win over staff
// when a number is registered as both.
type Resolver interface {
	Resolve(ctx context.Context, identity string) (*Link, error)
}
