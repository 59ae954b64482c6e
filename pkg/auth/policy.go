package auth

import (
	"strings"

	"github.com/roosthq/identity/pkg/validator"
)

// PolicyContext carries the account fields a candidate password must not
// be derived from.
type PolicyContext struct {
	Name  string
	Email string
}

// PasswordPolicy validates candidate plaintexts during binding creation.
// It is never consulted when checking an already-bound password. A failed
// validation returns validator.ValidationErrors with the specific reasons;
// the engine wraps them in ErrWeakPassword.
type PasswordPolicy interface {
	Validate(plaintext string, pctx PolicyContext) error
}

// DefaultPolicy enforces strength, entropy, the common-password corpus and
// similarity to the account's own name and email.
type DefaultPolicy struct {
	Strength   validator.PasswordStrengthConfig
	MinEntropy float64
}

// NewDefaultPolicy returns the stock policy: 8-128 chars, 2+ character
// classes, 30 bits of entropy minimum.
func NewDefaultPolicy() *DefaultPolicy {
	return &DefaultPolicy{
		Strength: validator.PasswordStrengthConfig{
			MinLength:      8,
			MaxLength:      128,
			MinCharClasses: 2,
		},
		MinEntropy: 30,
	}
}

func (p *DefaultPolicy) Validate(plaintext string, pctx PolicyContext) error {
	localPart, _, _ := strings.Cut(pctx.Email, "@")

	return validator.Apply(
		validator.StrongPassword("password", plaintext, p.Strength),
		validator.NotCommonPassword("password", plaintext),
		validator.PasswordEntropy("password", plaintext, p.MinEntropy),
		validator.NotDerivedFrom("password", plaintext, pctx.Name, localPart),
	)
}

var _ PasswordPolicy = (*DefaultPolicy)(nil)
