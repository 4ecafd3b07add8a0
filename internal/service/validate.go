package service

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// DefaultPasswordMinLength applies when the service is built without one.
const DefaultPasswordMinLength = 8

// bcrypt rejects longer inputs.
const maxPasswordBytes = 72

func validateRegistration(in RegisterInput, minLen int) error {
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return invalid("email", "email is required")
	}
	if !emailPattern.MatchString(email) {
		return invalid("email", "invalid email format")
	}
	if !utf8.ValidString(in.Password) {
		return invalid("password", "password must be valid UTF-8")
	}
	if utf8.RuneCountInString(in.Password) < minLen {
		return invalid("password", fmt.Sprintf("password must be at least %d characters", minLen))
	}
	if len(in.Password) > maxPasswordBytes {
		return invalid("password", fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes))
	}
	return nil
}
