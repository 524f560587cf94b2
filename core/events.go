package core

import "time"

// AuthEventType identifies a transition in the authentication lifecycle
type AuthEventType string

const (
	EventAuthenticated   AuthEventType = "authenticated"
	EventAuthFailed      AuthEventType = "auth_failed"
	EventDiscoveryOpened AuthEventType = "discovery_opened"
	EventDisconnected    AuthEventType = "disconnected"
	EventSessionRestored AuthEventType = "session_restored"
	EventSessionDropped  AuthEventType = "session_dropped"
)

// AuthEvent is published whenever the controller changes stage in a way other views care about
type AuthEvent struct {
	ID      string        `json:"id"`
	Type    AuthEventType `json:"type"`
	Address string        `json:"address,omitempty"`
	Reason  string        `json:"reason,omitempty"`
	At      time.Time     `json:"at"`
}
