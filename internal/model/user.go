package model

import (
	"strings"
	"time"
)

// Role is the authorization role embedded in tokens and stored on each
// principal row.  It is fixed when the principal is created.
type Role string

const (
	RoleUser   Role = "user"   // customer accounts (users table)
	RoleWorker Role = "worker" // service providers (workers table)
	RoleAdmin  Role = "admin"  // seeded operators (users table)
)

// ParseRole normalizes a role string.  "service_provider" is accepted as an
// alias for RoleWorker because older clients persisted that name.  Unknown
// values are returned as-is so callers can reject them explicitly.
func ParseRole(s string) Role {
	r := strings.ToLower(strings.TrimSpace(s))
	if r == "service_provider" {
		return RoleWorker
	}
	return Role(r)
}

// Kind reports which principal table a role lives in.
func (r Role) Kind() Kind {
	if r == RoleWorker {
		return KindWorker
	}
	return KindUser
}

// Kind identifies one of the two principal tables.  Email uniqueness is
// enforced per kind, not globally.
type Kind string

const (
	KindUser   Kind = "user"
	KindWorker Kind = "worker"
)

// Valid reports whether k names a known principal table.
func (k Kind) Valid() bool { return k == KindUser || k == KindWorker }

// DefaultRole is the role a self-registered principal of this kind receives.
func (k Kind) DefaultRole() Role {
	if k == KindWorker {
		return RoleWorker
	}
	return RoleUser
}

// Principal is the credential-bearing part of a user or worker row.
//
// Fields:
//
//	ID           – primary key within the kind's table.
//	Email        – unique within the kind, stored trimmed.
//	PasswordHash – bcrypt hash; never serialized.
//	Role         – user, worker or admin.
type Principal struct {
	ID           uint64    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Kind derives the table of the principal from its role.
func (p Principal) Kind() Kind { return p.Role.Kind() }
