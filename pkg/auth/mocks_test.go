package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// mockStore runs every transaction against a single Tx double. Rollback
// semantics are covered by the store implementations' own tests.
type mockStore struct {
	tx Tx
}

func (s *mockStore) InTx(_ context.Context, fn func(tx Tx) error) error {
	return fn(s.tx)
}

// MockTx is a mock implementation of Tx.
type MockTx struct {
	mock.Mock
}

func (m *MockTx) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockTx) FindUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockTx) UpdateUser(ctx context.Context, user *User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockTx) FindBindingByExternalID(ctx context.Context, kind MethodKind, externalID string) (*CredentialBinding, error) {
	args := m.Called(ctx, kind, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CredentialBinding), args.Error(1)
}

func (m *MockTx) FindBindingByUser(ctx context.Context, kind MethodKind, userID uuid.UUID) (*CredentialBinding, error) {
	args := m.Called(ctx, kind, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CredentialBinding), args.Error(1)
}

func (m *MockTx) ListBindingsByUser(ctx context.Context, userID uuid.UUID) ([]CredentialBinding, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]CredentialBinding), args.Error(1)
}

func (m *MockTx) CreateBinding(ctx context.Context, binding *CredentialBinding) error {
	args := m.Called(ctx, binding)
	return args.Error(0)
}

func (m *MockTx) UpdateBindingProfile(ctx context.Context, bindingID uuid.UUID, email, avatarURL string) error {
	args := m.Called(ctx, bindingID, email, avatarURL)
	return args.Error(0)
}

func (m *MockTx) UpdateBindingSecret(ctx context.Context, bindingID uuid.UUID, externalID string) error {
	args := m.Called(ctx, bindingID, externalID)
	return args.Error(0)
}

func (m *MockTx) FindInviteByEmail(ctx context.Context, email string) (*UserInvite, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*UserInvite), args.Error(1)
}

// MockAvatarUploader is a mock implementation of AvatarUploader.
type MockAvatarUploader struct {
	mock.Mock
}

func (m *MockAvatarUploader) Upload(ctx context.Context, sourceURL string) (string, error) {
	args := m.Called(ctx, sourceURL)
	return args.String(0), args.Error(1)
}
