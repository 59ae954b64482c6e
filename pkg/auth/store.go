package auth

import (
	"context"

	"github.com/google/uuid"
)

// Store opens transactions over the user directory and the credential
// binding tables. Every Authenticate call runs as a single transaction:
// all reads and writes commit atomically or not at all, so a crash or a
// concurrent conflicting request never leaves a user half-activated or a
// binding half-created. Implementations must guarantee this either with a
// transactional backend or with in-process single-writer serialization.
type Store interface {
	// InTx runs fn inside one transaction and rolls back on any error.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx exposes the operations available inside a store transaction.
type Tx interface {
	// FindUserByEmail returns ErrUserNotFound when no directory record
	// matches. Emails are stored normalized.
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	UpdateUser(ctx context.Context, user *User) error

	// FindBindingByExternalID looks a binding up by its stable identifier
	// within a method kind. Returns ErrBindingNotFound on a miss.
	FindBindingByExternalID(ctx context.Context, kind MethodKind, externalID string) (*CredentialBinding, error)
	// FindBindingByUser returns the user's binding for one method kind,
	// or ErrBindingNotFound.
	FindBindingByUser(ctx context.Context, kind MethodKind, userID uuid.UUID) (*CredentialBinding, error)
	// ListBindingsByUser returns every binding the user holds, any kind.
	ListBindingsByUser(ctx context.Context, userID uuid.UUID) ([]CredentialBinding, error)
	// CreateBinding inserts a new binding. Returns ErrBindingExists when
	// either uniqueness constraint — (kind, external id) or (user, kind) —
	// is violated, so racing creators can re-read instead of hard-failing.
	CreateBinding(ctx context.Context, binding *CredentialBinding) error
	// UpdateBindingProfile refreshes the cached provider profile fields.
	UpdateBindingProfile(ctx context.Context, bindingID uuid.UUID, email, avatarURL string) error
	// UpdateBindingSecret replaces the stored credential material. Used by
	// password reset to reattach a hash without dropping the binding row.
	UpdateBindingSecret(ctx context.Context, bindingID uuid.UUID, externalID string) error

	// FindInviteByEmail returns ErrInviteNotFound on a miss.
	FindInviteByEmail(ctx context.Context, email string) (*UserInvite, error)
}
