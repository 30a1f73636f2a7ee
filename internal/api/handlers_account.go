package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	respond "github.com/worktrace/worktrace/internal/api/respond"
	"github.com/worktrace/worktrace/internal/api/validate"
	"github.com/worktrace/worktrace/internal/model"
	"github.com/worktrace/worktrace/internal/services"
)

// AccountHandler is a thin HTTP transport over AccountService.
type AccountHandler struct {
	svc *services.AccountService
}

func NewAccountHandler(svc *services.AccountService) *AccountHandler {
	return &AccountHandler{svc: svc}
}

// CreateAccount POST /api/accounts
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.CreateAccount(req.Email); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	acct, err := h.svc.CreateAccount(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, model.ErrValidation) {
			respond.WriteBadRequest(w, err.Error())
			return
		}
		if errors.Is(err, model.ErrConflict) {
			respond.WriteError(w, http.StatusConflict, err.Error())
			return
		}
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusCreated, acct)
}

// GetAccount GET /api/accounts/{accountId}
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := h.svc.GetAccount(r.Context(), mux.Vars(r)["accountId"])
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			respond.WriteNotFound(w, err.Error())
			return
		}
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, acct)
}

// RotateAPIKey POST /api/accounts/{accountId}/api-key
// The old key stops working immediately; collectors pick up the new key on
// their next handshake.
func (h *AccountHandler) RotateAPIKey(w http.ResponseWriter, r *http.Request) {
	acct, err := h.svc.RotateAPIKey(r.Context(), mux.Vars(r)["accountId"])
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			respond.WriteNotFound(w, err.Error())
			return
		}
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, acct)
}
