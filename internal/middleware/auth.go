package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/AnshRaj112/rpd-backend/internal/identity"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// TokenVerifier checks an ID token and returns its decoded claims.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string, checkRevoked bool) (*identity.Token, error)
}

// ClaimsFromContext returns the claims attached by RequireToken.
func ClaimsFromContext(ctx context.Context) (*identity.Token, bool) {
	tok, ok := ctx.Value(claimsKey).(*identity.Token)
	return tok, ok && tok != nil
}

// WithClaims returns a copy of ctx carrying tok.
func WithClaims(ctx context.Context, tok *identity.Token) context.Context {
	return context.WithValue(ctx, claimsKey, tok)
}

// Credential sources, as recorded in logs.
const (
	sourceHeader = "authorization_header"
	sourceCookie = "cookie"
)

// credential returns the ID token presented with r. The Authorization
// header wins over the session cookie.
func credential(r *http.Request, cookieName string) (token, source string) {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")), sourceHeader
	}
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value, sourceCookie
	}
	return "", ""
}

func unauthorized(w http.ResponseWriter) {
	http.Error(w, "Unauthorized", http.StatusForbidden)
}

// RequireToken rejects requests without a valid, unrevoked ID token with
// 403. On success the claims are available through ClaimsFromContext.
func RequireToken(verifier TokenVerifier, cookieName string, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("module", "auth")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, source := credential(r, cookieName)
			if token == "" {
				log.DebugContext(ctx, "no credential presented", "path", r.URL.Path)
				unauthorized(w)
				return
			}
			log.DebugContext(ctx, "credential found", "source", source, "path", r.URL.Path)

			claims, err := verifier.VerifyIDToken(ctx, token, true)
			if err != nil {
				log.InfoContext(ctx, "credential rejected", "source", source, "error", err)
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(ctx, claims)))
		})
	}
}
