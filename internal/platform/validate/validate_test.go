// Copyright (c) 2026 Vidshare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validate_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/vidshare/internal/platform/apperr"
	"github.com/taibuivan/vidshare/internal/platform/validate"
)

/*
TestValidator_Required tests the mandatory field validation logic.
*/
func TestValidator_Required(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		value    string
		hasError bool
	}{
		{"valid_string", "name", "Vidshare", false},
		{"empty_string", "name", "", true},
		{"whitespace_only", "name", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Required(tt.field, tt.value)

			if tt.hasError {
				assert.True(t, v.HasErrors())
				err := v.Err()
				require.NotNil(t, err)

				ae := apperr.As(err)
				require.NotNil(t, ae)
				assert.Equal(t, "VALIDATION_ERROR", ae.Code)
				assert.Equal(t, tt.field, ae.Details[0].Field)
			} else {
				assert.False(t, v.HasErrors())
				assert.Nil(t, v.Err())
			}
		})
	}
}

/*
TestValidator_Email checks the email format validation rule.
*/
func TestValidator_Email(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		isValid bool
	}{
		{"valid_email", "test@example.com", true},
		{"invalid_format", "invalid-email", false},
		{"missing_domain", "test@", false},
		{"display_name", "Alice <alice@example.com>", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Email("email", tt.email)

			if tt.isValid {
				assert.False(t, v.HasErrors())
			} else {
				assert.True(t, v.HasErrors())
			}
		})
	}
}

/*
TestValidator_Chain tests the fluent API (chaining multiple rules).
*/
func TestValidator_Chain(t *testing.T) {
	v := &validate.Validator{}

	// Multi-rule validation
	err := v.
		Required("username", "tai").
		MinLen("username", "tai", 3).
		MaxLen("username", "tai", 10).
		Email("email", "tai@vidshare.app").
		Err()

	assert.NoError(t, err)
	assert.False(t, v.HasErrors())
}

/*
TestValidator_Chain_Failure tests error accumulation in the chain.
*/
func TestValidator_Chain_Failure(t *testing.T) {
	v := &validate.Validator{}

	err := v.
		Required("username", "").       // Fails
		MinLen("username", "a", 5).     // Fails
		Email("email", "not-an-email"). // Fails
		Err()

	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)

	// Should accumulate all 3 errors
	assert.Len(t, ae.Details, 3)
}

/*
TestValidator_Username checks the username length and charset rule.
*/
func TestValidator_Username(t *testing.T) {
	tests := []struct {
		username string
		isValid  bool
	}{
		{"alice", true},
		{"Al_ice-99", true},
		{"ab", false},
		{"this_username_is_way_too_long_x", false},
		{"alice!", false},
		{"al ice", false},
	}

	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			v := &validate.Validator{}
			v.Username("username", tt.username)
			assert.Equal(t, !tt.isValid, v.HasErrors())
		})
	}
}

type stubPolicy []string

func (policy stubPolicy) Check(string) []string { return policy }

/*
TestValidator_Password reports one field error per unmet policy rule.
*/
func TestValidator_Password(t *testing.T) {
	v := &validate.Validator{}
	err := v.Password("password", "weak", stubPolicy{"Minimum 8 characters", "Must contain a digit"}).Err()

	ae := apperr.As(err)
	require.NotNil(t, ae)
	require.Len(t, ae.Details, 2)
	assert.Equal(t, "password", ae.Details[1].Field)
	assert.Equal(t, "Must contain a digit", ae.Details[1].Message)

	assert.NoError(t, (&validate.Validator{}).Password("password", "Strong123", stubPolicy{}).Err())
}

/*
TestValidator_Hex64 accepts only lowercase 64-hex tokens.
*/
func TestValidator_Hex64(t *testing.T) {
	valid := strings.Repeat("ab12", 16)

	assert.False(t, (&validate.Validator{}).Hex64("token", valid).HasErrors())
	assert.True(t, (&validate.Validator{}).Hex64("token", strings.ToUpper(valid)).HasErrors())
	assert.True(t, (&validate.Validator{}).Hex64("token", valid[:63]).HasErrors())
	assert.True(t, (&validate.Validator{}).Hex64("token", "").HasErrors())
}

/*
TestFieldError_Shortcuts builds single-field validation errors.
*/
func TestFieldError_Shortcuts(t *testing.T) {
	err := validate.FieldError("code", "Invalid verification code")
	assert.Equal(t, apperr.CodeValidation, err.Code)
	require.Len(t, err.Details, 1)
	assert.Equal(t, apperr.FieldError{Field: "code", Message: "Invalid verification code"}, err.Details[0])

	required := validate.RequiredError("password")
	require.Len(t, required.Details, 1)
	assert.Equal(t, "password", required.Details[0].Field)
	assert.Equal(t, "This field is required", required.Details[0].Message)
}
