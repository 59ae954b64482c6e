// Package auth implements the identity reconciliation engine: the
// algorithm that converges password logins and federated provider logins
// (Google, Facebook) onto a single stable user account.
//
// # Model
//
// A User is a directory record with a unique email and a one-shot
// Activated flag. A CredentialBinding links one login method to one user,
// at most one binding per (user, method); provider bindings are keyed by
// the provider's immutable subject id and cache the provider's view of
// the email and avatar. A VerifiedIdentity is the transient tuple a
// Verifier produces per login attempt (for passwords the plaintext rides
// in ExternalID and is checked against the stored hash downstream).
//
// # Reconciliation
//
// Reconciler.Authenticate runs one deterministic pass inside a single
// store transaction:
//
//  1. Provider logins are first matched by (method, subject id). A hit
//     resolves immediately; drifted synced profile fields are rewritten.
//     Keying on subject id instead of email means a user changing their
//     provider-registered email never loses their account.
//  2. Otherwise the user is looked up by email. No match fails the
//     attempt — the engine never provisions users.
//  3. An unactivated user is activated: name set, avatar re-hosted
//     through the AvatarUploader, Activated flipped true, exactly once.
//  4. An empty name is backfilled, never overwritten.
//  5. The user's binding for the requested method is validated, or, when
//     absent, auto-linked. Password auto-link is refused on
//     provider-bound accounts unless the reset-flow override is set, and
//     the candidate password must clear the PasswordPolicy first.
//
// Binding creation is a compare-and-swap: a lost uniqueness race re-reads
// and validates once instead of failing the login.
//
// # Usage
//
//	store := authstore.NewMemory()
//	engine := auth.NewReconciler(store,
//		auth.WithLogger(log),
//		auth.WithAvatarUploader(rehost),
//	)
//
//	google := auth.NewGoogleVerifier(googleCfg)
//	identity, err := google.Verify(ctx, idToken)
//	if err != nil {
//		// generic invalid-login response
//	}
//	user, err := engine.Authenticate(ctx, identity)
//
// Password logins skip verification and carry the plaintext directly:
//
//	user, err := engine.Authenticate(ctx, auth.VerifiedIdentity{
//		Method:     auth.MethodPassword,
//		Name:       req.Name,
//		Email:      req.Email,
//		ExternalID: req.Password,
//	})
//
// # Failure kinds
//
// ErrInvalidCredential, ErrNoSuchAccount and ErrLinkingRefused must all
// surface to end users as the same generic "invalid login" to prevent
// account enumeration; ErrLinkingRefused is additionally logged for
// operators. ErrWeakPassword wraps validator.ValidationErrors and its
// reasons are safe to show. Infrastructure failures propagate as wrapped
// errors outside this taxonomy.
package auth
