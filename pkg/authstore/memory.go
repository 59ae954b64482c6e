package authstore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/roosthq/identity/pkg/auth"
)

// Memory is an in-process auth.Store. A single mutex serializes every
// transaction, which trivially satisfies the engine's single-writer
// requirement; state is snapshotted per transaction so a failed one
// rolls back completely.
type Memory struct {
	mu       sync.Mutex
	users    map[uuid.UUID]auth.User
	bindings map[uuid.UUID]auth.CredentialBinding
	invites  map[string]auth.UserInvite
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:    make(map[uuid.UUID]auth.User),
		bindings: make(map[uuid.UUID]auth.CredentialBinding),
		invites:  make(map[string]auth.UserInvite),
	}
}

// SeedUser inserts a directory record outside any transaction. Intended
// for tests and dev fixtures; provisioning flows own this in production.
func (m *Memory) SeedUser(user auth.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
}

// SeedInvite inserts a pending invite.
func (m *Memory) SeedInvite(invite auth.UserInvite) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invites[invite.Email] = invite
}

// SeedBinding inserts a credential binding.
func (m *Memory) SeedBinding(binding auth.CredentialBinding) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bindings[binding.ID] = binding
}

// InTx runs fn under the store lock against a copy of the state and
// swaps the copy in only when fn succeeds.
func (m *Memory) InTx(_ context.Context, fn func(tx auth.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{
		users:    make(map[uuid.UUID]auth.User, len(m.users)),
		bindings: make(map[uuid.UUID]auth.CredentialBinding, len(m.bindings)),
		invites:  make(map[string]auth.UserInvite, len(m.invites)),
	}
	for id, u := range m.users {
		tx.users[id] = u
	}
	for id, b := range m.bindings {
		tx.bindings[id] = b
	}
	for email, i := range m.invites {
		tx.invites[email] = i
	}

	if err := fn(tx); err != nil {
		return err
	}

	m.users = tx.users
	m.bindings = tx.bindings
	m.invites = tx.invites
	return nil
}

type memTx struct {
	users    map[uuid.UUID]auth.User
	bindings map[uuid.UUID]auth.CredentialBinding
	invites  map[string]auth.UserInvite
}

func (t *memTx) FindUserByEmail(_ context.Context, email string) (*auth.User, error) {
	for _, u := range t.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

func (t *memTx) FindUserByID(_ context.Context, id uuid.UUID) (*auth.User, error) {
	u, ok := t.users[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	user := u
	return &user, nil
}

func (t *memTx) UpdateUser(_ context.Context, user *auth.User) error {
	if _, ok := t.users[user.ID]; !ok {
		return auth.ErrUserNotFound
	}
	t.users[user.ID] = *user
	return nil
}

func (t *memTx) FindBindingByExternalID(_ context.Context, kind auth.MethodKind, externalID string) (*auth.CredentialBinding, error) {
	for _, b := range t.bindings {
		if b.Method == kind && b.ExternalID == externalID {
			binding := b
			return &binding, nil
		}
	}
	return nil, auth.ErrBindingNotFound
}

func (t *memTx) FindBindingByUser(_ context.Context, kind auth.MethodKind, userID uuid.UUID) (*auth.CredentialBinding, error) {
	for _, b := range t.bindings {
		if b.Method == kind && b.UserID == userID {
			binding := b
			return &binding, nil
		}
	}
	return nil, auth.ErrBindingNotFound
}

func (t *memTx) ListBindingsByUser(_ context.Context, userID uuid.UUID) ([]auth.CredentialBinding, error) {
	var bindings []auth.CredentialBinding
	for _, b := range t.bindings {
		if b.UserID == userID {
			bindings = append(bindings, b)
		}
	}
	return bindings, nil
}

func (t *memTx) CreateBinding(_ context.Context, binding *auth.CredentialBinding) error {
	for _, b := range t.bindings {
		if b.Method == binding.Method && b.ExternalID == binding.ExternalID {
			return auth.ErrBindingExists
		}
		if b.Method == binding.Method && b.UserID == binding.UserID {
			return auth.ErrBindingExists
		}
	}
	t.bindings[binding.ID] = *binding
	return nil
}

func (t *memTx) UpdateBindingProfile(_ context.Context, bindingID uuid.UUID, email, avatarURL string) error {
	b, ok := t.bindings[bindingID]
	if !ok {
		return auth.ErrBindingNotFound
	}
	b.SyncedEmail = email
	b.SyncedAvatarURL = avatarURL
	t.bindings[bindingID] = b
	return nil
}

func (t *memTx) UpdateBindingSecret(_ context.Context, bindingID uuid.UUID, externalID string) error {
	b, ok := t.bindings[bindingID]
	if !ok {
		return auth.ErrBindingNotFound
	}
	b.ExternalID = externalID
	t.bindings[bindingID] = b
	return nil
}

func (t *memTx) FindInviteByEmail(_ context.Context, email string) (*auth.UserInvite, error) {
	i, ok := t.invites[email]
	if !ok {
		return nil, auth.ErrInviteNotFound
	}
	invite := i
	return &invite, nil
}

var (
	_ auth.Store = (*Memory)(nil)
	_ auth.Tx    = (*memTx)(nil)
)
