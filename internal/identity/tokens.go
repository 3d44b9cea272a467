package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type idTokenClaims struct {
	jwt.RegisteredClaims
	Email    string `json:"email,omitempty"`
	AuthTime int64  `json:"auth_time,omitempty"`
}

// TokenSigner issues and parses ID tokens.
type TokenSigner struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

func NewTokenSigner(secret, issuer, audience string, ttl time.Duration) *TokenSigner {
	return &TokenSigner{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Issue signs a token for uid valid for the signer's ttl.
func (s *TokenSigner) Issue(uid, email string, authTime time.Time) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	claims := idTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   uid,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email:    email,
		AuthTime: authTime.Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Parse checks signature, algorithm, expiry, issuer and audience. It does
// not look at revocation.
func (s *TokenSigner) Parse(idToken string) (*Token, error) {
	if idToken == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	claims := &idTokenClaims{}
	_, err := jwt.ParseWithClaims(idToken, claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || claims.IssuedAt == nil {
		return nil, fmt.Errorf("%w: missing subject or iat", ErrInvalidToken)
	}

	tok := &Token{
		UID:       claims.Subject,
		Email:     claims.Email,
		Issuer:    claims.Issuer,
		Audience:  claims.Audience,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.AuthTime > 0 {
		tok.AuthTime = time.Unix(claims.AuthTime, 0)
	}
	return tok, nil
}
