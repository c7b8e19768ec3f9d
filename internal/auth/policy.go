// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"strings"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// PasswordSymbols is the set of symbols that satisfy the symbol requirement.
const PasswordSymbols = "!@#$%^&+="

// PasswordPolicyMessage describes the policy to end users.
const PasswordPolicyMessage = "Password should be at least 8 characters long and contain at least one " +
	"uppercase letter, one lowercase letter, one digit, and one special character (!@#$%^&+=)"

// PasswordViolation names a single unmet policy rule.
type PasswordViolation string

// Policy rules.
const (
	ViolationTooShort PasswordViolation = "too_short"
	ViolationNoUpper  PasswordViolation = "no_uppercase"
	ViolationNoLower  PasswordViolation = "no_lowercase"
	ViolationNoDigit  PasswordViolation = "no_digit"
	ViolationNoSymbol PasswordViolation = "no_symbol"
)

// CheckPasswordPolicy returns every rule the password breaks, or nil when
// the password is acceptable. Length is counted in characters, not bytes.
func CheckPasswordPolicy(password string) []PasswordViolation {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(PasswordSymbols, r):
			hasSymbol = true
		}
	}

	var violations []PasswordViolation
	if len([]rune(password)) < MinPasswordLength {
		violations = append(violations, ViolationTooShort)
	}
	if !hasUpper {
		violations = append(violations, ViolationNoUpper)
	}
	if !hasLower {
		violations = append(violations, ViolationNoLower)
	}
	if !hasDigit {
		violations = append(violations, ViolationNoDigit)
	}
	if !hasSymbol {
		violations = append(violations, ViolationNoSymbol)
	}
	return violations
}
