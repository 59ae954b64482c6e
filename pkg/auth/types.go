package auth

import (
	"time"

	"github.com/google/uuid"
)

// MethodKind identifies a login method. Each user holds at most one
// credential binding per kind.
type MethodKind string

const (
	MethodPassword MethodKind = "password"
	MethodGoogle   MethodKind = "google"
	MethodFacebook MethodKind = "facebook"
)

// Valid reports whether the kind is one of the known login methods.
func (k MethodKind) Valid() bool {
	switch k {
	case MethodPassword, MethodGoogle, MethodFacebook:
		return true
	}
	return false
}

// IsProvider reports whether the kind is a federated identity provider.
// Password is the only non-provider kind.
func (k MethodKind) IsProvider() bool {
	return k == MethodGoogle || k == MethodFacebook
}

// User is a directory record. The reconciliation engine only finds and
// updates users; provisioning (invites, admin creation) lives elsewhere.
type User struct {
	ID        uuid.UUID
	Name      string // may start empty, backfilled on first login
	Email     string // unique across the directory
	AvatarURL string // owned asset pointer, optional
	Activated bool   // set exactly once, on the first successful login
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CredentialBinding links a login method to a user. ExternalID holds the
// provider's stable subject id for provider kinds and the password hash
// for the password kind. SyncedEmail and SyncedAvatarURL cache the
// provider's view of the profile and are refreshed on every login.
type CredentialBinding struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Method          MethodKind
	ExternalID      string
	SyncedEmail     string
	SyncedAvatarURL string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// UserInvite marks an email address that may claim an account but has no
// directory record yet. Consulted by the pre-login account check only.
type UserInvite struct {
	ID        uuid.UUID
	Email     string
	CreatedAt time.Time
}

// VerifiedIdentity is the transient credential tuple consumed once per
// login attempt. For provider kinds it is produced by a Verifier; for the
// password kind ExternalID carries the raw plaintext and is checked
// against the stored hash downstream.
type VerifiedIdentity struct {
	Method     MethodKind
	Name       string
	Email      string
	ExternalID string
	AvatarURL  string
}

// Validate rejects partial identities before they reach the engine.
// A missing name, email or external identifier means the boundary layer
// failed to verify the assertion properly.
func (v VerifiedIdentity) Validate() error {
	if !v.Method.Valid() {
		return ErrInvalidCredential
	}
	if v.Name == "" || v.Email == "" || v.ExternalID == "" {
		return ErrInvalidCredential
	}
	return nil
}

// AccountSummary is the result of a pre-login account existence check.
type AccountSummary struct {
	Email   string
	Name    string
	Invited bool // true when only a pending invite exists
}
