package models

import (
	"time"

	"github.com/google/uuid"
)

// MFAEnrollmentChallenge bridges "start setup" and "verify setup". The
// candidate TOTP secret is held encrypted and only moves onto the user record
// once the user proves possession by submitting a valid code.
type MFAEnrollmentChallenge struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	SecretEncrypted string
	ExpiresAt       time.Time
	ConsumedAt      *time.Time
	CreatedAt       time.Time
}

func (c *MFAEnrollmentChallenge) Usable(now time.Time) bool {
	return c.ConsumedAt == nil && now.Before(c.ExpiresAt)
}

// MFALoginChallenge bridges "password verified" and "second factor verified"
// during login. Remember and the client metadata are carried through from the
// original login request so the eventual session is indistinguishable from a
// non-MFA login.
type MFALoginChallenge struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Remember   bool
	UserAgent  string
	IPAddress  string
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

func (c *MFALoginChallenge) Usable(now time.Time) bool {
	return c.ConsumedAt == nil && now.Before(c.ExpiresAt)
}

// BackupCode is a one-time recovery credential. Only the hash is stored; a
// used code keeps its row with UsedAt set so regeneration can invalidate
// whole batches.
type BackupCode struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	CodeHash  string
	UsedAt    *time.Time
	CreatedAt time.Time
}
