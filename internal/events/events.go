package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies an auth security event on the bus.
type EventType string

const (
	UserRegistered  EventType = "auth.user.registered"
	EmailVerified   EventType = "auth.user.email_verified"
	MFAEnabled      EventType = "auth.mfa.enabled"
	MFADisabled     EventType = "auth.mfa.disabled"
	PasswordChanged EventType = "auth.password.changed"
	TokenReuse      EventType = "auth.session.token_reuse"
)

// Event is the envelope published for every auth state change. It follows the
// CloudEvents v1.0 field set.
type Event struct {
	SpecVersion string      `json:"specversion"`
	Type        EventType   `json:"type"`
	Source      string      `json:"source"`
	Subject     string      `json:"subject"`
	ID          string      `json:"id"`
	Time        time.Time   `json:"time"`
	Data        interface{} `json:"data,omitempty"`
}

// Publisher emits auth events. Publishing is best-effort: implementations
// must never block a request on broker availability.
type Publisher interface {
	Publish(eventType EventType, userID uuid.UUID, data interface{})
	Close() error
}

// NopPublisher drops events; used when kafka is not configured and in tests.
type NopPublisher struct{}

func (NopPublisher) Publish(EventType, uuid.UUID, interface{}) {}
func (NopPublisher) Close() error                              { return nil }
