package models

import (
	"time"

	"github.com/google/uuid"
)

// TrustedDevice grants one browser/user pair the right to skip the MFA step
// for a bounded time. The raw credential presented by the browser is
// "<id>.<token>"; only the token's hash is stored.
type TrustedDevice struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	TokenHash       string
	FingerprintHash string
	CreatedAt       time.Time
	LastUsedAt      *time.Time
	ExpiresAt       time.Time
	RevokedAt       *time.Time
}

func (d *TrustedDevice) Active(now time.Time) bool {
	return d.RevokedAt == nil && now.Before(d.ExpiresAt)
}

// TrustedDeviceInfo is the listing projection for device-management
// endpoints. Current marks the device backing the caller's own trust cookie.
type TrustedDeviceInfo struct {
	ID         uuid.UUID  `json:"id"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt  time.Time  `json:"expires_at"`
	Current    bool       `json:"current"`
}
