package utils

import (
	"net/mail"
	"strings"
)

const MaxEmailLength = 320

// NormalizeEmail converts email to the lowercase form used as account key
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail validates an already-normalized email address
func ValidateEmail(email string) error {
	if email == "" {
		return &ValidationError{Field: "email", Message: "Email is required"}
	}
	if len(email) > MaxEmailLength {
		return &ValidationError{Field: "email", Message: "Email is too long"}
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return &ValidationError{Field: "email", Message: "Email is malformed"}
	}
	return nil
}

// ValidatePassword enforces the minimum password length
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return &ValidationError{Field: "password", Message: "Password must be at least 6 characters"}
	}
	return nil
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
