package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is one outstanding refresh-token grant. Rows are append-only:
// rotation revokes the old row (setting ReplacedBy) and inserts a new one,
// never rewriting TokenHash in place.
type Session struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	TokenHash  string
	UserAgent  string
	IPAddress  string
	Remember   bool
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	ReplacedBy *uuid.UUID
	CreatedAt  time.Time
}

// Active reports whether the session can still mint access tokens.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// RequestContext carries per-request client metadata stamped onto sessions,
// challenges and trusted devices.
type RequestContext struct {
	UserAgent string
	IPAddress string
}

// SessionInfo is the externally visible projection of a Session, used by the
// session-management endpoints.
type SessionInfo struct {
	ID        uuid.UUID `json:"id"`
	UserAgent string    `json:"user_agent"`
	IPAddress string    `json:"ip_address"`
	Current   bool      `json:"current"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
