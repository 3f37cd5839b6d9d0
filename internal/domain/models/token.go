package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token type discriminators. Access and refresh tokens are signed with the
// same key and both carry uid and sid, so the type claim is the only thing
// keeping one kind out of the other's validation path.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// AccessClaims are the claims carried by a short-lived access token.
type AccessClaims struct {
	UserID    uuid.UUID `json:"uid"`
	Role      Role      `json:"role"`
	SessionID uuid.UUID `json:"sid"`
	TokenType string    `json:"token_type"`
	jwt.RegisteredClaims
}

// RefreshClaims are the claims carried by a refresh token. The claims are
// never trusted on their own: rotation re-checks them against the session
// ledger before acting.
type RefreshClaims struct {
	UserID    uuid.UUID `json:"uid"`
	SessionID uuid.UUID `json:"sid"`
	TokenType string    `json:"token_type"`
	jwt.RegisteredClaims
}

// Identity is the resolved caller of an authenticated request, attached to
// the request context by the authorization gate.
type Identity struct {
	UserID    uuid.UUID
	Role      Role
	SessionID uuid.UUID
}

// TokenPair is the result of a successful login or rotation. ExpiresAt is
// the refresh-side expiry, used to scope the cookie max-age.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	SessionID    uuid.UUID
	ExpiresAt    time.Time
}
