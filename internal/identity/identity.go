// Package identity is the credential half of a user: accounts with email
// and password, signed ID tokens, and per-account revocation.
//
// ID tokens are HS256 JWTs. Revocation is a timestamp per account: any
// token whose iat is before the account's tokens_valid_after is rejected
// when the caller asks for a revocation check.
package identity

import (
	"errors"
	"time"
)

var (
	ErrInvalidToken    = errors.New("identity: invalid id token")
	ErrTokenExpired    = errors.New("identity: id token expired")
	ErrTokenRevoked    = errors.New("identity: id token revoked")
	ErrUserNotFound    = errors.New("identity: no user record for the given identifier")
	ErrUserDisabled    = errors.New("identity: user account is disabled")
	ErrEmailExists     = errors.New("identity: email address already in use")
	ErrInvalidArgument = errors.New("identity: invalid argument")
	ErrWrongPassword   = errors.New("identity: email or password is incorrect")
	ErrUnavailable     = errors.New("identity: service unavailable")
)

// Token is a verified ID token.
type Token struct {
	UID       string
	Email     string
	Issuer    string
	Audience  []string
	IssuedAt  time.Time
	ExpiresAt time.Time
	AuthTime  time.Time
}

// UserToCreate is the input of CreateUser. Email is normalized by the
// service.
type UserToCreate struct {
	Email    string
	Password string
}

// UserRecord is the public view of an account.
type UserRecord struct {
	UID              string
	Email            string
	Disabled         bool
	TokensValidAfter time.Time
	CreatedAt        time.Time
}

// SignInResult is returned by SignInWithPassword.
type SignInResult struct {
	IDToken   string
	ExpiresAt time.Time
	UID       string
	Email     string
}
