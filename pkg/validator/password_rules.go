package validator

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"
)

var (
	uppercaseRegex   = regexp.MustCompile(`[A-Z]`)
	lowercaseRegex   = regexp.MustCompile(`[a-z]`)
	digitRegex       = regexp.MustCompile(`[0-9]`)
	specialCharRegex = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>\/?~` + "`" + `]`)

	// Frequently compromised passwords, matched case-insensitively.
	commonPasswords = map[string]bool{
		"password":      true,
		"password1":     true,
		"password123":   true,
		"123456":        true,
		"1234567890":    true,
		"12345678":      true,
		"123456789":     true,
		"1234":          true,
		"12345":         true,
		"123123":        true,
		"111111":        true,
		"000000":        true,
		"654321":        true,
		"qwerty":        true,
		"qwerty1":       true,
		"qwerty12":      true,
		"qwerty123":     true,
		"qwertyuiop":    true,
		"asdfghjkl":     true,
		"zxcvbnm":       true,
		"1q2w3e4r":      true,
		"1qaz2wsx":      true,
		"qazwsx":        true,
		"abc123":        true,
		"abcd1234":      true,
		"a1b2c3":        true,
		"123qwe":        true,
		"qwe123":        true,
		"letmein":       true,
		"welcome":       true,
		"monkey":        true,
		"dragon":        true,
		"sunshine":      true,
		"iloveyou":      true,
		"princess":      true,
		"football":      true,
		"baseball":      true,
		"basketball":    true,
		"superman":      true,
		"batman":        true,
		"admin":         true,
		"admin123":      true,
		"administrator": true,
		"root":          true,
		"toor":          true,
		"guest":         true,
		"test":          true,
		"testing":       true,
		"user":          true,
		"login":         true,
		"pass":          true,
		"master":        true,
		"secret":        true,
		"trustno1":      true,
		"shadow":        true,
		"freedom":       true,
		"computer":      true,
		"internet":      true,
		"google":        true,
		"facebook":      true,
	}
)

// PasswordStrengthConfig controls the StrongPassword rule.
type PasswordStrengthConfig struct {
	MinLength        int
	MaxLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireDigits    bool
	RequireSpecial   bool
	MinCharClasses   int // minimum number of distinct character classes
}

// DefaultPasswordStrength returns the NIST-leaning default: 8-128 chars,
// at least 3 character classes, no per-class hard requirements.
func DefaultPasswordStrength() PasswordStrengthConfig {
	return PasswordStrengthConfig{
		MinLength:      8,
		MaxLength:      128,
		MinCharClasses: 3,
	}
}

func StrongPassword(field, value string, config PasswordStrengthConfig) Rule {
	return Rule{
		Check: func() bool {
			if len(value) < config.MinLength || len(value) > config.MaxLength {
				return false
			}

			hasUpper := uppercaseRegex.MatchString(value)
			hasLower := lowercaseRegex.MatchString(value)
			hasDigit := digitRegex.MatchString(value)
			hasSpecial := specialCharRegex.MatchString(value)

			charClasses := 0
			for _, has := range []bool{hasUpper, hasLower, hasDigit, hasSpecial} {
				if has {
					charClasses++
				}
			}

			if config.RequireUppercase && !hasUpper {
				return false
			}
			if config.RequireLowercase && !hasLower {
				return false
			}
			if config.RequireDigits && !hasDigit {
				return false
			}
			if config.RequireSpecial && !hasSpecial {
				return false
			}

			return charClasses >= config.MinCharClasses
		},
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("password must be %d-%d characters and mix at least %d character types", config.MinLength, config.MaxLength, config.MinCharClasses),
		},
	}
}

func NotCommonPassword(field, value string) Rule {
	return Rule{
		Check: func() bool {
			return !commonPasswords[strings.ToLower(value)]
		},
		Error: ValidationError{
			Field:   field,
			Message: "password is too common, please choose a different one",
		},
	}
}

// NotDerivedFrom rejects passwords trivially derivable from known context
// strings such as the account holder's name or email local part. A source
// matches when either string contains the other, compared case-insensitively
// and ignoring spaces.
func NotDerivedFrom(field, value string, sources ...string) Rule {
	return Rule{
		Check: func() bool {
			candidate := strings.ToLower(strings.ReplaceAll(value, " ", ""))
			if candidate == "" {
				return true
			}

			for _, src := range sources {
				src = strings.ToLower(strings.ReplaceAll(src, " ", ""))
				if len(src) < 3 {
					continue
				}
				if strings.Contains(candidate, src) || strings.Contains(src, candidate) {
					return false
				}
			}
			return true
		},
		Error: ValidationError{
			Field:   field,
			Message: "password is too similar to your name or email",
		},
	}
}

// PasswordEntropy validates password randomness using Shannon entropy.
// 50+ bits indicates strong randomness, 40-49 is moderate, below 40 weak.
func PasswordEntropy(field, value string, minEntropy float64) Rule {
	return Rule{
		Check: func() bool {
			return passwordEntropy(value) >= minEntropy
		},
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("password entropy too low, minimum %.1f bits required", minEntropy),
		},
	}
}

// passwordEntropy estimates strength from length and character set
// diversity, capped by the characters actually used.
func passwordEntropy(password string) float64 {
	if len(password) == 0 {
		return 0
	}

	uniqueChars := make(map[rune]bool)
	hasLower := false
	hasUpper := false
	hasDigit := false
	hasSpecial := false

	for _, char := range password {
		uniqueChars[char] = true

		switch {
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsDigit(char):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}

	charsetSize := 0
	if hasLower {
		charsetSize += 26
	}
	if hasUpper {
		charsetSize += 26
	}
	if hasDigit {
		charsetSize += 10
	}
	if hasSpecial {
		charsetSize += 32
	}
	if charsetSize == 0 {
		return 0
	}

	effective := float64(len(uniqueChars))
	if effective > float64(charsetSize) {
		effective = float64(charsetSize)
	}

	return float64(len(password)) * math.Log2(effective)
}
