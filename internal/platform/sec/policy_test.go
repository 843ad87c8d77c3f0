// Copyright (c) 2026 Vidshare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/vidshare/internal/platform/sec"
)

func TestPasswordPolicy_Check(t *testing.T) {
	policy := sec.DefaultPasswordPolicy()

	tests := []struct {
		name     string
		password string
		problems int
	}{
		{"strong", "Password123", 0},
		{"too_short", "Pa1", 1},
		{"no_upper", "password123", 1},
		{"no_lower", "PASSWORD123", 1},
		{"no_digit", "Passwordabc", 1},
		{"everything_missing", "", 4},
		{"over_bcrypt_limit", "Aa1" + strings.Repeat("x", 70), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, policy.Check(tt.password), tt.problems)
		})
	}
}

func TestPasswordPolicy_RequireSymbol(t *testing.T) {
	policy := sec.DefaultPasswordPolicy()
	policy.RequireSymbol = true

	assert.Equal(t, []string{"Must contain a symbol"}, policy.Check("Password123"))
	assert.Empty(t, policy.Check("Password123!"))
}

func TestPasswordHasher(t *testing.T) {
	hasher := sec.NewPasswordHasher(4)

	hash, err := hasher.Hash("Password123")
	require.NoError(t, err)
	assert.NotEqual(t, "Password123", hash)

	assert.True(t, hasher.Check("Password123", hash))
	assert.False(t, hasher.Check("Password124", hash))
	assert.False(t, hasher.Check("Password123", "not-a-bcrypt-hash"))
}

func TestOpaqueTokens(t *testing.T) {
	token, err := sec.GenerateSecureToken(32)
	require.NoError(t, err)

	assert.True(t, sec.IsHex64(token))
	assert.False(t, sec.IsHex64(strings.ToUpper(token)))
	assert.False(t, sec.IsHex64(token[:63]))

	digest := sec.HashToken(token)
	assert.True(t, sec.IsHex64(digest))
	assert.NotEqual(t, token, digest)
	assert.Equal(t, digest, sec.HashToken(token))

	assert.True(t, sec.ConstantTimeEqual("abc", "abc"))
	assert.False(t, sec.ConstantTimeEqual("abc", "abd"))
}
