// Package apperr tags failures with the kind of dependency or check that
// produced them so the HTTP layer can map them to a status in one place.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindAuthentication
	KindValidation
	KindStore
	KindIdentityService
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindValidation:
		return "validation"
	case KindStore:
		return "store"
	case KindIdentityService:
		return "identity_service"
	default:
		return "internal"
	}
}

// Error is a failure tagged with its kind and the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Authentication(op string, err error) error  { return newError(KindAuthentication, op, err) }
func Store(op string, err error) error           { return newError(KindStore, op, err) }
func IdentityService(op string, err error) error { return newError(KindIdentityService, op, err) }
func Internal(op string, err error) error        { return newError(KindInternal, op, err) }

// Validation builds a validation failure with a client-facing message.
func Validation(op, message string) error {
	return newError(KindValidation, op, errors.New(message))
}

// KindOf returns the kind of the outermost tagged error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps err to the response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindAuthentication:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the text that may be shown to the caller. Only
// validation failures expose their detail.
func PublicMessage(err error) string {
	switch KindOf(err) {
	case KindAuthentication:
		return "Unauthorized"
	case KindValidation:
		var e *Error
		errors.As(err, &e)
		if e.Err != nil {
			return e.Err.Error()
		}
		return "Invalid request"
	case KindStore:
		return "Document store request failed"
	case KindIdentityService:
		return "Identity service request failed"
	default:
		return "Internal server error"
	}
}
