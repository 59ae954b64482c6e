package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/roosthq/identity/pkg/logger"
	"github.com/roosthq/identity/pkg/sanitizer"
)

// CheckAccount reports whether an email can log in or claim an invite.
// Returns ErrNoSuchAccount when neither a directory record nor a pending
// invite exists. Callers exposing this publicly should rate-limit it.
func (r *Reconciler) CheckAccount(ctx context.Context, email string) (*AccountSummary, error) {
	email = sanitizer.NormalizeEmail(email)

	var summary *AccountSummary
	if err := r.store.InTx(ctx, func(tx Tx) error {
		user, err := tx.FindUserByEmail(ctx, email)
		if err == nil {
			summary = &AccountSummary{Email: user.Email, Name: user.Name}
			return nil
		}
		if !errors.Is(err, ErrUserNotFound) {
			return fmt.Errorf("lookup user: %w", err)
		}

		invite, err := tx.FindInviteByEmail(ctx, email)
		if err == nil {
			summary = &AccountSummary{Email: invite.Email, Invited: true}
			return nil
		}
		if !errors.Is(err, ErrInviteNotFound) {
			return fmt.Errorf("lookup invite: %w", err)
		}
		return ErrNoSuchAccount
	}); err != nil {
		return nil, err
	}

	return summary, nil
}

// ResetPassword generates a fresh random password for the account and
// (re)attaches the password binding with its hash, deliberately bypassing
// the provider-binding guard. The plaintext is returned once for delivery
// to the user and is never stored.
func (r *Reconciler) ResetPassword(ctx context.Context, email string) (string, error) {
	email = sanitizer.NormalizeEmail(email)

	plaintext, err := generatePassword(16)
	if err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	hash, err := r.hasher.Hash(plaintext)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	var userID string
	if err := r.store.InTx(ctx, func(tx Tx) error {
		user, err := tx.FindUserByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return ErrNoSuchAccount
			}
			return fmt.Errorf("lookup user: %w", err)
		}
		userID = user.ID.String()

		binding, err := tx.FindBindingByUser(ctx, MethodPassword, user.ID)
		switch {
		case err == nil:
			if err := tx.UpdateBindingSecret(ctx, binding.ID, hash); err != nil {
				return fmt.Errorf("update binding secret: %w", err)
			}
			return nil
		case !errors.Is(err, ErrBindingNotFound):
			return fmt.Errorf("lookup user binding: %w", err)
		}

		identity := VerifiedIdentity{
			Method:     MethodPassword,
			Name:       user.Name,
			Email:      user.Email,
			ExternalID: plaintext,
		}
		settings := authSettings{passwordAutolink: true, guardOverride: true}
		if _, err := r.bindOrValidate(ctx, tx, user, identity, settings, true); err != nil {
			return err
		}
		return nil
	}); err != nil {
		return "", err
	}

	r.logger.Info("password reset",
		logger.UserID(userID),
		logger.Component("auth"),
		logger.Event("password_reset"),
	)
	return plaintext, nil
}

const (
	passwordLower   = "abcdefghijkmnopqrstuvwxyz"
	passwordUpper   = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	passwordDigits  = "23456789"
	passwordSpecial = "!@#$%^&*-_+="
)

// generatePassword builds a random password with at least one character
// from each class, so it always clears the default policy.
func generatePassword(length int) (string, error) {
	if length < 8 {
		length = 8
	}

	classes := []string{passwordLower, passwordUpper, passwordDigits, passwordSpecial}
	all := passwordLower + passwordUpper + passwordDigits + passwordSpecial

	chars := make([]byte, 0, length)
	for _, class := range classes {
		c, err := randomChar(class)
		if err != nil {
			return "", err
		}
		chars = append(chars, c)
	}
	for len(chars) < length {
		c, err := randomChar(all)
		if err != nil {
			return "", err
		}
		chars = append(chars, c)
	}

	// Fisher-Yates so the guaranteed class characters are not positional.
	for i := len(chars) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		chars[i], chars[j.Int64()] = chars[j.Int64()], chars[i]
	}

	return string(chars), nil
}

func randomChar(charset string) (byte, error) {
	idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
	if err != nil {
		return 0, err
	}
	return charset[idx.Int64()], nil
}
