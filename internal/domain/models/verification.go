package models

import (
	"time"

	"github.com/google/uuid"
)

// VerificationPurpose distinguishes the two single-use token kinds that share
// one storage shape.
type VerificationPurpose string

const (
	PurposeEmailVerification VerificationPurpose = "email_verification"
	PurposePasswordReset     VerificationPurpose = "password_reset"
)

// VerificationToken is a single-use, hashed, TTL-bound token mailed to the
// user. At most one outstanding (unused) token per user and purpose exists:
// creating a new one invalidates prior outstanding ones.
type VerificationToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Purpose   VerificationPurpose
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

func (t *VerificationToken) Usable(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}
