package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the user's authorization level. Roles are totally ordered:
// RoleUser < RoleAdmin.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

var roleRank = map[Role]int{
	RoleUser:  0,
	RoleAdmin: 1,
}

// AtLeast reports whether r is equal to or above min in the role order.
// Unknown roles rank below every known role.
func (r Role) AtLeast(min Role) bool {
	rr, ok := roleRank[r]
	if !ok {
		return false
	}
	mr, ok := roleRank[min]
	if !ok {
		return false
	}
	return rr >= mr
}

func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// UserStatus is the account lifecycle state.
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// User is the identity root. The password hash and the encrypted MFA secret
// never leave the service; MFASecretEncrypted is non-empty only while
// MFAEnabled is true.
type User struct {
	ID                 uuid.UUID
	Email              string
	PasswordHash       string
	FullName           string
	Phone              *string
	Role               Role
	Status             UserStatus
	MFAEnabled         bool
	MFASecretEncrypted string
	EmailVerifiedAt    *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Profile is the externally visible projection of a User.
type Profile struct {
	ID              uuid.UUID  `json:"id"`
	Email           string     `json:"email"`
	FullName        string     `json:"full_name"`
	Phone           *string    `json:"phone,omitempty"`
	Role            Role       `json:"role"`
	MFAEnabled      bool       `json:"mfa_enabled"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Profile strips credentials and internal state from the user record.
func (u *User) Profile() Profile {
	return Profile{
		ID:              u.ID,
		Email:           u.Email,
		FullName:        u.FullName,
		Phone:           u.Phone,
		Role:            u.Role,
		MFAEnabled:      u.MFAEnabled,
		EmailVerifiedAt: u.EmailVerifiedAt,
		CreatedAt:       u.CreatedAt,
	}
}
