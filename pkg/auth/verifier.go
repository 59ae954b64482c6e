package auth

import "context"

// Verifier turns a raw provider assertion into a VerifiedIdentity. Every
// implementation must confirm the assertion is well-formed, was issued to
// this application where the provider supports an audience check, and
// carries the mandatory scopes — and must fail with ErrInvalidCredential
// rather than produce a partial identity.
type Verifier interface {
	Verify(ctx context.Context, rawAssertion string) (VerifiedIdentity, error)
}
