// Package queue defines message payloads exchanged over the message broker
// together with the AMQP publisher and the audit consumer.
package queue

import "time"

// QueueName is the durable queue auth events are routed to.
const QueueName = "auth.events"

// EventType names what happened to an account.
type EventType string

const (
	EventUserRegistered   EventType = "user.registered"
	EventUserLoggedIn     EventType = "user.logged_in"
	EventUserLoggedOut    EventType = "user.logged_out"
	EventTokenRefreshed   EventType = "token.refreshed"
	EventTokenReuse       EventType = "token.reuse_detected"
	EventPasswordChanged  EventType = "user.password_changed"
	EventUserDisabled     EventType = "user.disabled"
	EventUserVerification EventType = "user.verification_changed"
	EventAccountLocked    EventType = "user.locked"
)

// AuthEvent is published after a security-relevant change.  It contains
// enough for downstream consumers to audit or notify without querying the
// primary database.
type AuthEvent struct {
	Type       EventType `json:"type"`
	UserID     string    `json:"user_id,omitempty"`
	Email      string    `json:"email,omitempty"`
	ActorID    string    `json:"actor_id,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
