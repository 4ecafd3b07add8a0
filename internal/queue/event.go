// Package queue defines message payloads exchanged over the message broker.
package queue

// RegistrationQueue is the durable queue carrying PrincipalRegisteredEvent.
const RegistrationQueue = "principal.registered"

// PrincipalRegisteredEvent is published after a user or worker account is
// created.  It carries enough to log, notify or run analytics without
// querying the primary database, and never includes credentials.
type PrincipalRegisteredEvent struct {
	PrincipalID  uint64 `json:"principal_id"`
	Kind         string `json:"kind"`
	Role         string `json:"role"`
	Email        string `json:"email"`
	Name         string `json:"name,omitempty"`
	RegisteredAt string `json:"registered_at"`
}
