package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("Str0ngPass1")
	require.NoError(t, err)
	assert.NotEqual(t, "Str0ngPass1", hash)

	assert.True(t, VerifyPassword("Str0ngPass1", hash))
	assert.False(t, VerifyPassword("WrongPass1", hash))
}

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  string
	}{
		{
			name:     "Valid",
			password: "Str0ngPass1",
		},
		{
			name:     "Too Short",
			password: "Ab1",
			wantErr:  "at least 8",
		},
		{
			name:     "Too Long",
			password: strings.Repeat("Ab1", 50),
			wantErr:  "128",
		},
		{
			name:     "No Uppercase",
			password: "weakpass1",
			wantErr:  "uppercase",
		},
		{
			name:     "No Lowercase",
			password: "WEAKPASS1",
			wantErr:  "lowercase",
		},
		{
			name:     "No Digit",
			password: "WeakPassword",
			wantErr:  "number",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePasswordStrength(tt.password)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, ValidateUsername("john.doe_1"))
	assert.NoError(t, ValidateUsername("jo"))

	assert.Error(t, ValidateUsername("a"))
	assert.Error(t, ValidateUsername(strings.Repeat("a", 31)))
	assert.Error(t, ValidateUsername("john doe"))
	assert.Error(t, ValidateUsername("john@doe"))
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("student@example.com"))
	assert.True(t, IsValidEmail(" student@example.com "))

	assert.False(t, IsValidEmail("not-an-email"))
	assert.False(t, IsValidEmail("missing@tld"))
	assert.False(t, IsValidEmail("@example.com"))
	assert.False(t, IsValidEmail(""))
}
