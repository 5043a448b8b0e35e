package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name          string
		password      string
		shouldFail    bool
		errorContains string
	}{
		{name: "exactly minimum length", password: "abcdefgh"},
		{name: "passphrase", password: "correct horse battery staple"},
		{name: "unicode", password: "学习中文很有意思"},
		{name: "too short", password: "abc1234", shouldFail: true, errorContains: "at least 8"},
		{name: "empty", password: "", shouldFail: true, errorContains: "at least 8"},
		{name: "blank", password: "          ", shouldFail: true, errorContains: "blank"},
		{name: "too long", password: strings.Repeat("a", 73), shouldFail: true, errorContains: "at most 72"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)

			if !tt.shouldFail {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			var validationErr *PasswordValidationError
			assert.True(t, errors.As(err, &validationErr))
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestHashAndComparePassword(t *testing.T) {
	password := "SecureP@ss123"

	hash, err := HashPassword(password)
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, password, hash)

	assert.NoError(t, ComparePassword(hash, password))
	assert.Error(t, ComparePassword(hash, "WrongPassword123!"))
}

func TestHashPassword_Empty(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)
}
