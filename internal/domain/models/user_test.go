package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoleOrdering(t *testing.T) {
	assert.True(t, RoleAdmin.AtLeast(RoleUser))
	assert.True(t, RoleAdmin.AtLeast(RoleAdmin))
	assert.True(t, RoleUser.AtLeast(RoleUser))
	assert.False(t, RoleUser.AtLeast(RoleAdmin))

	t.Run("unknown roles rank below everything", func(t *testing.T) {
		assert.False(t, Role("superuser").AtLeast(RoleUser))
		assert.False(t, RoleAdmin.AtLeast(Role("superuser")))
	})
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("").Valid())
	assert.False(t, Role("root").Valid())
}

func TestProfileStripsCredentials(t *testing.T) {
	now := time.Now()
	user := &User{
		Email:              "user@example.com",
		PasswordHash:       "$argon2id$...",
		MFAEnabled:         true,
		MFASecretEncrypted: "ciphertext",
		EmailVerifiedAt:    &now,
	}

	profile := user.Profile()
	assert.Equal(t, user.Email, profile.Email)
	assert.True(t, profile.MFAEnabled)
	assert.Equal(t, &now, profile.EmailVerifiedAt)
}

func TestSessionActive(t *testing.T) {
	now := time.Now()
	session := &Session{ExpiresAt: now.Add(time.Hour)}
	assert.True(t, session.Active(now))

	t.Run("expired", func(t *testing.T) {
		s := &Session{ExpiresAt: now.Add(-time.Second)}
		assert.False(t, s.Active(now))
	})

	t.Run("revoked", func(t *testing.T) {
		revoked := now.Add(-time.Minute)
		s := &Session{ExpiresAt: now.Add(time.Hour), RevokedAt: &revoked}
		assert.False(t, s.Active(now))
	})
}
