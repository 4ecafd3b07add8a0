// Package repository defines the credential store used by the auth flow and
// its three interchangeable backends: MySQL, Postgres and a flat JSON file.
// The sentinel values below let higher layers distinguish failure
// scenarios without knowing which backend is active.
package repository

import "errors"

// ErrNotFound is returned when no principal matches the lookup.
var ErrNotFound = errors.New("record not found")

// ErrEmailExists is returned when a principal of the same kind already owns
// the email.  Handlers translate it into a 400 response.
var ErrEmailExists = errors.New("email already exists")

// ErrUnknownKind is returned for a lookup against a table that does not exist.
var ErrUnknownKind = errors.New("unknown principal kind")
