// Copyright (c) 2026 Vidshare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// maxPasswordBytes is bcrypt's input limit; longer passwords are rejected
// rather than silently truncated.
const maxPasswordBytes = 72

// PasswordPolicy describes the strength requirements for new passwords.
type PasswordPolicy struct {
	MinLength     int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
}

// DefaultPasswordPolicy requires 8 characters with mixed case and a digit.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:    8,
		RequireUpper: true,
		RequireLower: true,
		RequireDigit: true,
	}
}

// Check returns one message per unmet requirement, or nil if password is acceptable.
func (policy PasswordPolicy) Check(password string) []string {
	var problems []string

	if utf8.RuneCountInString(password) < policy.MinLength {
		problems = append(problems, fmt.Sprintf("Minimum %d characters", policy.MinLength))
	}
	if len(password) > maxPasswordBytes {
		problems = append(problems, fmt.Sprintf("Maximum %d bytes", maxPasswordBytes))
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, character := range password {
		switch {
		case unicode.IsUpper(character):
			hasUpper = true
		case unicode.IsLower(character):
			hasLower = true
		case unicode.IsDigit(character):
			hasDigit = true
		case unicode.IsPunct(character) || unicode.IsSymbol(character):
			hasSymbol = true
		}
	}

	if policy.RequireUpper && !hasUpper {
		problems = append(problems, "Must contain an uppercase letter")
	}
	if policy.RequireLower && !hasLower {
		problems = append(problems, "Must contain a lowercase letter")
	}
	if policy.RequireDigit && !hasDigit {
		problems = append(problems, "Must contain a digit")
	}
	if policy.RequireSymbol && !hasSymbol {
		problems = append(problems, "Must contain a symbol")
	}

	return problems
}
