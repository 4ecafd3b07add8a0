package service

import (
	"errors"
	"fmt"
)

// Auth flow errors.  Handlers map each one to a single HTTP status.
var (
	ErrDuplicateEmail     = errors.New("email already registered")      // 400
	ErrInvalidCredentials = errors.New("invalid credentials")           // 401, unknown email and wrong password alike
	ErrMissingToken       = errors.New("missing token")                 // 401
	ErrInvalidToken       = errors.New("invalid or expired token")      // 401
	ErrUnsupportedRole    = errors.New("unsupported role")              // 401
	ErrForbidden          = errors.New("only users can update profile") // 403
	ErrUnknownKind        = errors.New("unknown principal kind")        // 400
)

// ValidationError reports malformed input for one field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}
