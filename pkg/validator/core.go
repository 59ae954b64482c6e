// Package validator provides composable validation rules. Rules are plain
// values; Apply runs them and collects every failure so callers can show
// users the full list of problems at once.
package validator

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError is a single validation failure.
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors collects every failed rule from one Apply call.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}

	parts := make([]string, 0, len(ve))
	for _, err := range ve {
		parts = append(parts, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Messages returns the human-readable reasons, one per failed rule.
func (ve ValidationErrors) Messages() []string {
	msgs := make([]string, 0, len(ve))
	for _, err := range ve {
		msgs = append(msgs, err.Message)
	}
	return msgs
}

func (ve ValidationErrors) Has(field string) bool {
	for _, err := range ve {
		if err.Field == field {
			return true
		}
	}
	return false
}

// Rule pairs a check with the error reported when the check fails.
type Rule struct {
	Check func() bool
	Error ValidationError
}

// Apply runs every rule and returns the accumulated ValidationErrors,
// or nil when all checks pass.
func Apply(rules ...Rule) error {
	var verrs ValidationErrors

	for _, rule := range rules {
		if !rule.Check() {
			verrs = append(verrs, rule.Error)
		}
	}

	if len(verrs) == 0 {
		return nil
	}
	return verrs
}

// ExtractValidationErrors unwraps ValidationErrors from an error chain,
// returning nil when the error carries none.
func ExtractValidationErrors(err error) ValidationErrors {
	if err == nil {
		return nil
	}

	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		return verrs
	}
	return nil
}
