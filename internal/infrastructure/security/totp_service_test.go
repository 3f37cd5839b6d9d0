package security

import (
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecret(t *testing.T) {
	svc := NewTOTPService("OrbitCart")

	secret, url, err := svc.GenerateSecret("user@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, secret)
	assert.Contains(t, url, "otpauth://totp/OrbitCart:user@example.com")
	assert.Contains(t, url, "issuer=OrbitCart")

	t.Run("secrets are unique", func(t *testing.T) {
		other, _, err := svc.GenerateSecret("user@example.com")
		require.NoError(t, err)
		assert.NotEqual(t, secret, other)
	})

	t.Run("empty account name", func(t *testing.T) {
		_, _, err := svc.GenerateSecret("  ")
		assert.Error(t, err)
	})
}

func TestValidateCode(t *testing.T) {
	svc := NewTOTPService("OrbitCart")
	secret, _, err := svc.GenerateSecret("user@example.com")
	require.NoError(t, err)

	t.Run("current code", func(t *testing.T) {
		code, err := totp.GenerateCode(secret, time.Now().UTC())
		require.NoError(t, err)

		valid, err := svc.ValidateCode(secret, code)
		require.NoError(t, err)
		assert.True(t, valid)
	})

	// The documented tolerance is one 30-second step either side.
	t.Run("previous step accepted", func(t *testing.T) {
		code, err := totp.GenerateCode(secret, time.Now().UTC().Add(-30*time.Second))
		require.NoError(t, err)

		valid, err := svc.ValidateCode(secret, code)
		require.NoError(t, err)
		assert.True(t, valid)
	})

	t.Run("next step accepted", func(t *testing.T) {
		code, err := totp.GenerateCode(secret, time.Now().UTC().Add(30*time.Second))
		require.NoError(t, err)

		valid, err := svc.ValidateCode(secret, code)
		require.NoError(t, err)
		assert.True(t, valid)
	})

	t.Run("distant step rejected", func(t *testing.T) {
		code, err := totp.GenerateCode(secret, time.Now().UTC().Add(-5*time.Minute))
		require.NoError(t, err)

		valid, err := svc.ValidateCode(secret, code)
		require.NoError(t, err)
		assert.False(t, valid)
	})

	t.Run("empty code rejected", func(t *testing.T) {
		valid, err := svc.ValidateCode(secret, "")
		require.NoError(t, err)
		assert.False(t, valid)
	})

	t.Run("empty secret errors", func(t *testing.T) {
		_, err := svc.ValidateCode("", "123456")
		assert.Error(t, err)
	})
}
