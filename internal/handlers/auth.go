package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/AnshRaj112/rpd-backend/internal/apperr"
	"github.com/AnshRaj112/rpd-backend/internal/identity"
)

// Identity is the subset of the identity service used by the session
// endpoints.
type Identity interface {
	SignInWithPassword(ctx context.Context, email, password string) (*identity.SignInResult, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

type AuthHandler struct {
	identity Identity
	now      func() time.Time
}

func NewAuthHandler(id Identity) *AuthHandler {
	return &AuthHandler{identity: id, now: time.Now}
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInResponse struct {
	IDToken   string `json:"idToken"`
	ExpiresIn int64  `json:"expiresIn"`
	LocalID   string `json:"localId"`
	Email     string `json:"email"`
}

// SignIn handles POST /auth/signin.
func (h *AuthHandler) SignIn(r *http.Request) Response {
	var req signInRequest
	if err := decodeJSON(r, "auth.signin", &req); err != nil {
		return Fail(err)
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return Fail(apperr.Validation("auth.signin", "email and password are required"))
	}

	res, err := h.identity.SignInWithPassword(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, identity.ErrWrongPassword), errors.Is(err, identity.ErrUserDisabled):
		return Fail(apperr.Authentication("auth.signin", err))
	case err != nil:
		return Fail(apperr.IdentityService("auth.signin", err))
	}

	expiresIn := int64(res.ExpiresAt.Sub(h.now()).Seconds())
	if expiresIn < 0 {
		expiresIn = 0
	}
	return JSON(http.StatusOK, signInResponse{
		IDToken:   res.IDToken,
		ExpiresIn: expiresIn,
		LocalID:   res.UID,
		Email:     res.Email,
	})
}

// SignOut handles DELETE /signout by revoking every token of the caller.
func (h *AuthHandler) SignOut(r *http.Request) Response {
	uid, err := callerUID(r, "auth.signout")
	if err != nil {
		return Fail(err)
	}
	if err := h.identity.RevokeRefreshTokens(r.Context(), uid); err != nil {
		return Fail(apperr.IdentityService("auth.signout", err))
	}
	return Status(http.StatusOK)
}

// Health handles GET /health.
func Health(_ *http.Request) Response {
	return Text(http.StatusOK, "OK")
}
