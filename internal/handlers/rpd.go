package handlers

import (
	"context"
	"net/http"

	"github.com/AnshRaj112/rpd-backend/internal/apperr"
	"github.com/AnshRaj112/rpd-backend/internal/middleware"
	"github.com/AnshRaj112/rpd-backend/internal/models"
)

// RecordStore persists thought records. caller is the authenticated
// subject; the store decides how far it restricts each operation.
type RecordStore interface {
	List(ctx context.Context, caller string) ([]map[string]interface{}, error)
	Merge(ctx context.Context, id string, fields map[string]string, caller string) error
	Create(ctx context.Context, fields map[string]string, caller string) (string, error)
	Delete(ctx context.Context, id, caller string) error
}

type RPDHandler struct {
	store RecordStore
}

// NewRPDHandler serves /rpd.
func NewRPDHandler(store RecordStore) *RPDHandler {
	return &RPDHandler{store: store}
}

type deleteRequest struct {
	ID string `json:"id"`
}

func callerUID(r *http.Request, op string) (string, error) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok || claims.UID == "" {
		return "", apperr.Authentication(op, nil)
	}
	return claims.UID, nil
}

// List handles GET /rpd.
func (h *RPDHandler) List(r *http.Request) Response {
	caller, err := callerUID(r, "rpd.list")
	if err != nil {
		return Fail(err)
	}

	items, err := h.store.List(r.Context(), caller)
	if err != nil {
		return Fail(err)
	}
	if items == nil {
		items = []map[string]interface{}{}
	}
	return JSON(http.StatusOK, models.ThoughtRecordList{TotalCount: len(items), Items: items})
}

// Upsert handles POST /rpd: merge into the record named by id, or create
// a new record owned by the caller when id is absent. Ids are used
// exactly as sent.
func (h *RPDHandler) Upsert(r *http.Request) Response {
	var in models.ThoughtRecordInput
	if err := decodeJSON(r, "rpd.upsert", &in); err != nil {
		return Fail(err)
	}
	caller, err := callerUID(r, "rpd.upsert")
	if err != nil {
		return Fail(err)
	}

	if in.ID != "" {
		err = h.store.Merge(r.Context(), in.ID, in.Fields(), caller)
	} else {
		_, err = h.store.Create(r.Context(), in.Fields(), caller)
	}
	if err != nil {
		return Fail(err)
	}
	return Status(http.StatusCreated)
}

// Delete handles DELETE /rpd. Deleting an unknown id succeeds.
func (h *RPDHandler) Delete(r *http.Request) Response {
	var req deleteRequest
	if err := decodeJSON(r, "rpd.delete", &req); err != nil {
		return Fail(err)
	}
	if req.ID == "" {
		return Fail(apperr.Validation("rpd.delete", "id is required"))
	}
	caller, err := callerUID(r, "rpd.delete")
	if err != nil {
		return Fail(err)
	}

	if err := h.store.Delete(r.Context(), req.ID, caller); err != nil {
		return Fail(err)
	}
	return Status(http.StatusOK)
}
