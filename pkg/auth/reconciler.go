package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roosthq/identity/pkg/logger"
	"github.com/roosthq/identity/pkg/sanitizer"
)

// Reconciler resolves a verified credential onto a single stable user
// account: it recognizes returning provider logins by subject id, lets
// invited users claim their account by email, silently attaches new
// credential bindings (auto-link), and keeps the cached provider profile
// fields fresh. It never creates users.
type Reconciler struct {
	store   Store
	hasher  PasswordHasher
	policy  PasswordPolicy
	avatars AvatarUploader
	logger  *slog.Logger
	now     func() time.Time
}

// ReconcilerOption configures a Reconciler during construction.
type ReconcilerOption func(*Reconciler)

// WithLogger sets a custom logger for the engine.
func WithLogger(l *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		r.logger = l
	}
}

// WithHasher replaces the slow-hash primitive.
func WithHasher(h PasswordHasher) ReconcilerOption {
	return func(r *Reconciler) {
		r.hasher = h
	}
}

// WithPolicy replaces the password policy consulted on binding creation.
func WithPolicy(p PasswordPolicy) ReconcilerOption {
	return func(r *Reconciler) {
		r.policy = p
	}
}

// WithAvatarUploader wires the asset backend used to re-host provider
// avatars during first-login activation.
func WithAvatarUploader(u AvatarUploader) ReconcilerOption {
	return func(r *Reconciler) {
		r.avatars = u
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) {
		r.now = now
	}
}

// NewReconciler creates the engine with bcrypt hashing, the default
// password policy, passthrough avatars and a discarding logger.
func NewReconciler(store Store, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		store:   store,
		hasher:  NewBcryptHasher(0),
		policy:  NewDefaultPolicy(),
		avatars: PassthroughAvatars{},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

type authSettings struct {
	passwordAutolink bool
	guardOverride    bool
}

// AuthOption configures a single Authenticate call.
type AuthOption func(*authSettings)

// WithoutPasswordAutolink disables silent creation of a password binding
// for an account that has none yet. Login then only succeeds against an
// existing binding.
func WithoutPasswordAutolink() AuthOption {
	return func(s *authSettings) {
		s.passwordAutolink = false
	}
}

// WithLinkGuardOverride bypasses the guard that refuses a password
// binding on a provider-bound account. Reserved for password-reset flows
// that must (re)attach a password regardless.
func WithLinkGuardOverride() AuthOption {
	return func(s *authSettings) {
		s.guardOverride = true
	}
}

// Authenticate executes the login/link/activate algorithm for one
// verified identity and returns the resolved user. The whole call runs
// inside a single store transaction; any failure aborts with no partial
// writes. Failure kinds: ErrInvalidCredential, ErrNoSuchAccount,
// ErrWeakPassword (with the policy reasons attached), ErrLinkingRefused.
// Anything else is an infrastructure failure.
func (r *Reconciler) Authenticate(ctx context.Context, identity VerifiedIdentity, opts ...AuthOption) (*User, error) {
	settings := authSettings{passwordAutolink: true}
	for _, opt := range opts {
		opt(&settings)
	}

	identity.Email = sanitizer.NormalizeEmail(identity.Email)
	identity.Name = sanitizer.TrimName(identity.Name)
	if err := identity.Validate(); err != nil {
		return nil, err
	}

	var resolved *User
	if err := r.store.InTx(ctx, func(tx Tx) error {
		user, err := r.reconcile(ctx, tx, identity, settings)
		if err != nil {
			return err
		}
		resolved = user
		return nil
	}); err != nil {
		return nil, err
	}

	r.logger.Info("login resolved",
		logger.UserID(resolved.ID.String()),
		logger.Method(string(identity.Method)),
		logger.Component("auth"),
	)
	return resolved, nil
}

func (r *Reconciler) reconcile(ctx context.Context, tx Tx, identity VerifiedIdentity, settings authSettings) (*User, error) {
	// Fast path: returning provider logins are recognized by the stable
	// subject id, not by email, so a changed provider email never breaks
	// the link. This path never re-runs activation or the policy.
	if identity.Method.IsProvider() {
		binding, err := tx.FindBindingByExternalID(ctx, identity.Method, identity.ExternalID)
		switch {
		case err == nil:
			return r.syncProfile(ctx, tx, binding, identity)
		case !errors.Is(err, ErrBindingNotFound):
			return nil, fmt.Errorf("lookup binding: %w", err)
		}
	}

	// Email fallback enables implicit claiming: an invited user with no
	// bindings yet resolves here on their very first login.
	user, err := tx.FindUserByEmail(ctx, identity.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrNoSuchAccount
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := r.activate(ctx, tx, user, identity); err != nil {
		return nil, err
	}

	return r.bindOrValidate(ctx, tx, user, identity, settings, true)
}

func (r *Reconciler) syncProfile(ctx context.Context, tx Tx, binding *CredentialBinding, identity VerifiedIdentity) (*User, error) {
	owner, err := tx.FindUserByID(ctx, binding.UserID)
	if err != nil {
		return nil, fmt.Errorf("load binding owner: %w", err)
	}

	// Write only on drift so repeated identical logins leave rows untouched.
	if binding.SyncedEmail != identity.Email || binding.SyncedAvatarURL != identity.AvatarURL {
		if err := tx.UpdateBindingProfile(ctx, binding.ID, identity.Email, identity.AvatarURL); err != nil {
			return nil, fmt.Errorf("sync binding profile: %w", err)
		}
	}

	return owner, nil
}

// activate runs first-login activation and the idempotent name backfill.
// Activated is monotonic: once true it is never revisited, even if the
// name is later cleared externally.
func (r *Reconciler) activate(ctx context.Context, tx Tx, user *User, identity VerifiedIdentity) error {
	changed := false

	if !user.Activated {
		if identity.AvatarURL != "" {
			ref, err := r.avatars.Upload(ctx, identity.AvatarURL)
			if err != nil {
				return fmt.Errorf("upload avatar: %w", err)
			}
			user.AvatarURL = ref
		}
		user.Name = identity.Name
		user.Activated = true
		changed = true
	}

	if user.Name == "" {
		user.Name = identity.Name
		changed = true
	}

	if changed {
		user.UpdatedAt = r.now()
		if err := tx.UpdateUser(ctx, user); err != nil {
			return fmt.Errorf("update user: %w", err)
		}
	}
	return nil
}

// bindOrValidate checks the user's binding for the requested method and
// either validates the credential against it or attempts auto-link.
// Binding creation is a compare-and-swap: losing a create race re-reads
// and validates once instead of hard-failing.
func (r *Reconciler) bindOrValidate(ctx context.Context, tx Tx, user *User, identity VerifiedIdentity, settings authSettings, retry bool) (*User, error) {
	binding, err := tx.FindBindingByUser(ctx, identity.Method, user.ID)
	switch {
	case err == nil:
		return r.validateBinding(user, binding, identity)
	case !errors.Is(err, ErrBindingNotFound):
		return nil, fmt.Errorf("lookup user binding: %w", err)
	}

	binding, err = r.newBinding(ctx, tx, user, identity, settings)
	if err != nil {
		return nil, err
	}

	if err := tx.CreateBinding(ctx, binding); err != nil {
		if errors.Is(err, ErrBindingExists) {
			if retry {
				return r.bindOrValidate(ctx, tx, user, identity, settings, false)
			}
			return nil, ErrLinkingRefused
		}
		return nil, fmt.Errorf("create binding: %w", err)
	}

	return user, nil
}

func (r *Reconciler) newBinding(ctx context.Context, tx Tx, user *User, identity VerifiedIdentity, settings authSettings) (*CredentialBinding, error) {
	now := r.now()

	if identity.Method != MethodPassword {
		return &CredentialBinding{
			ID:              uuid.New(),
			UserID:          user.ID,
			Method:          identity.Method,
			ExternalID:      identity.ExternalID,
			SyncedEmail:     identity.Email,
			SyncedAvatarURL: identity.AvatarURL,
			CreatedAt:       now,
			UpdatedAt:       now,
		}, nil
	}

	if !settings.passwordAutolink {
		return nil, ErrLinkingRefused
	}

	// A provider-bound account never gains a password binding through
	// login: anyone knowing the victim's email could otherwise attach
	// their own password to it. Password reset bypasses this explicitly.
	if !settings.guardOverride {
		bindings, err := tx.ListBindingsByUser(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("list user bindings: %w", err)
		}
		providerBound := false
		for _, b := range bindings {
			if b.Method.IsProvider() {
				providerBound = true
				break
			}
		}
		if providerBound {
			r.logger.Warn("password auto-link refused for provider-bound account",
				logger.UserID(user.ID.String()),
				logger.Component("auth"),
				logger.Event("linking_refused"),
			)
			return nil, ErrLinkingRefused
		}
	}

	if err := r.policy.Validate(identity.ExternalID, PolicyContext{Name: user.Name, Email: user.Email}); err != nil {
		return nil, errors.Join(ErrWeakPassword, err)
	}

	hash, err := r.hasher.Hash(identity.ExternalID)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	return &CredentialBinding{
		ID:         uuid.New(),
		UserID:     user.ID,
		Method:     MethodPassword,
		ExternalID: hash,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (r *Reconciler) validateBinding(user *User, binding *CredentialBinding, identity VerifiedIdentity) (*User, error) {
	if identity.Method == MethodPassword {
		if err := r.hasher.Compare(binding.ExternalID, identity.ExternalID); err != nil {
			return nil, ErrInvalidCredential
		}
		return user, nil
	}

	// Provider kinds were already matched by identifier on the fast path;
	// this only fires on the re-read after a lost create race.
	if binding.ExternalID != identity.ExternalID {
		return nil, ErrInvalidCredential
	}
	return user, nil
}
