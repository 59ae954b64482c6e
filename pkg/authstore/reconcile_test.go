package authstore_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/roosthq/identity/pkg/auth"
	"github.com/roosthq/identity/pkg/authstore"
)

// These tests run the full login algorithm against the in-memory store,
// covering the journeys the engine exists for: invited users claiming
// accounts, provider emails drifting, and credential linking.

func newEngine(store *authstore.Memory) *auth.Reconciler {
	return auth.NewReconciler(store, auth.WithHasher(auth.NewBcryptHasher(bcrypt.MinCost)))
}

func googleIdentity(name, email, subject string) auth.VerifiedIdentity {
	return auth.VerifiedIdentity{
		Method: auth.MethodGoogle, Name: name, Email: email, ExternalID: subject,
	}
}

func passwordIdentity(name, email, plaintext string) auth.VerifiedIdentity {
	return auth.VerifiedIdentity{
		Method: auth.MethodPassword, Name: name, Email: email, ExternalID: plaintext,
	}
}

func TestReconcile_InvitedUserClaimsAccount(t *testing.T) {
	t.Parallel()

	store := authstore.NewMemory()
	userID := uuid.New()
	store.SeedUser(auth.User{ID: userID, Email: "ann@x.com"})

	engine := newEngine(store)
	ctx := context.Background()

	// First login: resolved by email, activated, binding attached.
	user, err := engine.Authenticate(ctx, googleIdentity("Ann Cole", "ann@x.com", "g-777"))
	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	assert.True(t, user.Activated)
	assert.Equal(t, "Ann Cole", user.Name)

	// Second login: resolved by subject id even though the provider email
	// moved on, and the drift lands on the binding, not the directory.
	user, err = engine.Authenticate(ctx, googleIdentity("Ann Cole", "ann.new@gmail.com", "g-777"))
	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, "ann@x.com", user.Email)

	err = store.InTx(ctx, func(tx auth.Tx) error {
		binding, err := tx.FindBindingByExternalID(ctx, auth.MethodGoogle, "g-777")
		require.NoError(t, err)
		assert.Equal(t, "ann.new@gmail.com", binding.SyncedEmail)
		return nil
	})
	require.NoError(t, err)
}

func TestReconcile_ActivationRunsExactlyOnce(t *testing.T) {
	t.Parallel()

	store := authstore.NewMemory()
	userID := uuid.New()
	store.SeedUser(auth.User{ID: userID, Email: "ann@x.com"})

	engine := newEngine(store)
	ctx := context.Background()

	_, err := engine.Authenticate(ctx, googleIdentity("Ann Cole", "ann@x.com", "g-777"))
	require.NoError(t, err)

	// A later login reporting a different display name must not overwrite
	// the one captured at activation.
	user, err := engine.Authenticate(ctx, googleIdentity("A. Cole", "ann@x.com", "g-777"))
	require.NoError(t, err)
	assert.Equal(t, "Ann Cole", user.Name)
}

func TestReconcile_SubjectIDBeatsEmailCollision(t *testing.T) {
	t.Parallel()

	store := authstore.NewMemory()
	owner := uuid.New()
	squatter := uuid.New()
	store.SeedUser(auth.User{ID: owner, Email: "old@x.com", Name: "Owner", Activated: true})
	store.SeedUser(auth.User{ID: squatter, Email: "taken@x.com", Name: "Squatter", Activated: true})
	store.SeedBinding(auth.CredentialBinding{
		ID: uuid.New(), UserID: owner, Method: auth.MethodGoogle,
		ExternalID: "g-777", SyncedEmail: "old@x.com",
	})

	engine := newEngine(store)

	// The provider email now matches another user's directory email; the
	// stable subject id still resolves the original owner.
	user, err := engine.Authenticate(context.Background(), googleIdentity("Owner", "taken@x.com", "g-777"))
	require.NoError(t, err)
	assert.Equal(t, owner, user.ID)
}

func TestReconcile_PasswordLifecycle(t *testing.T) {
	t.Parallel()

	store := authstore.NewMemory()
	userID := uuid.New()
	store.SeedUser(auth.User{ID: userID, Email: "bea@x.com", Name: "Bea Ortiz", Activated: true})

	engine := newEngine(store)
	ctx := context.Background()

	// First password login on a bindingless account auto-links.
	user, err := engine.Authenticate(ctx, passwordIdentity("Bea Ortiz", "bea@x.com", "Tr4vel-Mug!"))
	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)

	// Returning login validates against the stored hash.
	_, err = engine.Authenticate(ctx, passwordIdentity("Bea Ortiz", "bea@x.com", "Tr4vel-Mug!"))
	require.NoError(t, err)

	// Wrong password is rejected without disturbing the binding.
	_, err = engine.Authenticate(ctx, passwordIdentity("Bea Ortiz", "bea@x.com", "wrong-Mug-9!"))
	assert.ErrorIs(t, err, auth.ErrInvalidCredential)

	_, err = engine.Authenticate(ctx, passwordIdentity("Bea Ortiz", "bea@x.com", "Tr4vel-Mug!"))
	require.NoError(t, err)
}

func TestReconcile_WeakPasswordLeavesNoBinding(t *testing.T) {
	t.Parallel()

	store := authstore.NewMemory()
	userID := uuid.New()
	store.SeedUser(auth.User{ID: userID, Email: "bea@x.com", Name: "Bea Ortiz", Activated: true})

	engine := newEngine(store)
	ctx := context.Background()

	_, err := engine.Authenticate(ctx, passwordIdentity("Bea Ortiz", "bea@x.com", "BeaOrtiz1"))
	require.ErrorIs(t, err, auth.ErrWeakPassword)

	// The failed attempt must not have linked anything: a strong password
	// can still auto-link afterwards.
	_, err = engine.Authenticate(ctx, passwordIdentity("Bea Ortiz", "bea@x.com", "Tr4vel-Mug!"))
	require.NoError(t, err)
}

func TestReconcile_ProviderBoundAccountRefusesPassword(t *testing.T) {
	t.Parallel()

	store := authstore.NewMemory()
	userID := uuid.New()
	store.SeedUser(auth.User{ID: userID, Email: "ann@x.com", Name: "Ann Cole", Activated: true})
	store.SeedBinding(auth.CredentialBinding{
		ID: uuid.New(), UserID: userID, Method: auth.MethodGoogle,
		ExternalID: "g-777", SyncedEmail: "ann@x.com",
	})

	engine := newEngine(store)
	ctx := context.Background()

	// Knowing the email is not enough to attach a password.
	_, err := engine.Authenticate(ctx, passwordIdentity("Ann Cole", "ann@x.com", "Tr4vel-Mug!"))
	assert.ErrorIs(t, err, auth.ErrLinkingRefused)

	// Password reset is the sanctioned way through the guard.
	plaintext, err := engine.ResetPassword(ctx, "ann@x.com")
	require.NoError(t, err)

	user, err := engine.Authenticate(ctx, passwordIdentity("Ann Cole", "ann@x.com", plaintext))
	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)

	// The provider login keeps working alongside the new password.
	user, err = engine.Authenticate(ctx, googleIdentity("Ann Cole", "ann@x.com", "g-777"))
	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
}

func TestReconcile_ProviderLinksOntoPasswordAccount(t *testing.T) {
	t.Parallel()

	store := authstore.NewMemory()
	userID := uuid.New()
	hash, err := bcrypt.GenerateFromPassword([]byte("Tr4vel-Mug!"), bcrypt.MinCost)
	require.NoError(t, err)
	store.SeedUser(auth.User{ID: userID, Email: "ann@x.com", Name: "Ann Cole", Activated: true})
	store.SeedBinding(auth.CredentialBinding{
		ID: uuid.New(), UserID: userID, Method: auth.MethodPassword, ExternalID: string(hash),
	})

	engine := newEngine(store)
	ctx := context.Background()

	// The guard is one-directional: providers may join a password account.
	user, err := engine.Authenticate(ctx, googleIdentity("Ann Cole", "ann@x.com", "g-777"))
	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)

	err = store.InTx(ctx, func(tx auth.Tx) error {
		bindings, err := tx.ListBindingsByUser(ctx, userID)
		require.NoError(t, err)
		assert.Len(t, bindings, 2)
		return nil
	})
	require.NoError(t, err)
}

func TestReconcile_UnknownIdentities(t *testing.T) {
	t.Parallel()

	store := authstore.NewMemory()
	engine := newEngine(store)
	ctx := context.Background()

	_, err := engine.Authenticate(ctx, googleIdentity("Ghost", "ghost@x.com", "g-000"))
	assert.ErrorIs(t, err, auth.ErrNoSuchAccount)

	_, err = engine.Authenticate(ctx, passwordIdentity("Ghost", "ghost@x.com", "Tr4vel-Mug!"))
	assert.ErrorIs(t, err, auth.ErrNoSuchAccount)
}

func TestReconcile_CheckAccountJourney(t *testing.T) {
	t.Parallel()

	store := authstore.NewMemory()
	store.SeedUser(auth.User{ID: uuid.New(), Email: "ann@x.com", Name: "Ann Cole", Activated: true})
	store.SeedInvite(auth.UserInvite{ID: uuid.New(), Email: "new@x.com"})

	engine := newEngine(store)
	ctx := context.Background()

	summary, err := engine.CheckAccount(ctx, "ann@x.com")
	require.NoError(t, err)
	assert.False(t, summary.Invited)
	assert.Equal(t, "Ann Cole", summary.Name)

	summary, err = engine.CheckAccount(ctx, "New@X.com")
	require.NoError(t, err)
	assert.True(t, summary.Invited)

	_, err = engine.CheckAccount(ctx, "ghost@x.com")
	assert.ErrorIs(t, err, auth.ErrNoSuchAccount)
}
