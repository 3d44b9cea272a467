package handlers

import (
	"context"
	"net/http"

	"github.com/AnshRaj112/rpd-backend/internal/apperr"
	"github.com/AnshRaj112/rpd-backend/internal/models"
	"github.com/AnshRaj112/rpd-backend/internal/services"
)

// AccountManager provisions identity accounts together with their profiles.
type AccountManager interface {
	Create(ctx context.Context, in services.NewAccount) (*models.UserProfile, error)
	Delete(ctx context.Context, uid string) error
}

type UsersHandler struct {
	accounts AccountManager
}

func NewUsersHandler(accounts AccountManager) *UsersHandler {
	return &UsersHandler{accounts: accounts}
}

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Name     string `json:"name"`
}

// Create handles POST /users.
func (h *UsersHandler) Create(r *http.Request) Response {
	var req createUserRequest
	if err := decodeJSON(r, "users.create", &req); err != nil {
		return Fail(err)
	}

	_, err := h.accounts.Create(r.Context(), services.NewAccount{
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		Name:     req.Name,
	})
	if err != nil {
		return Fail(err)
	}
	return Status(http.StatusCreated)
}

// Delete handles DELETE /users.
func (h *UsersHandler) Delete(r *http.Request) Response {
	var req deleteRequest
	if err := decodeJSON(r, "users.delete", &req); err != nil {
		return Fail(err)
	}
	if req.ID == "" {
		return Fail(apperr.Validation("users.delete", "id is required"))
	}

	if err := h.accounts.Delete(r.Context(), req.ID); err != nil {
		return Fail(err)
	}
	return Status(http.StatusOK)
}
