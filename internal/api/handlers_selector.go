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

// SelectorHandler manages selector descriptors from the dashboard side.
// Collector-facing resolution lives on HeartbeatHandler.
type SelectorHandler struct {
	svc *services.SelectorAdminService
}

func NewSelectorHandler(svc *services.SelectorAdminService) *SelectorHandler {
	return &SelectorHandler{svc: svc}
}

// UpsertSelector PUT /api/accounts/{accountId}/selectors
// One descriptor per (account, domain); a repeated PUT replaces it.
func (h *SelectorHandler) UpsertSelector(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountId"]
	var req struct {
		Domain        string  `json:"domain"`
		TitleSelector string  `json:"titleSelector"`
		DocIDPattern  *string `json:"docIdPattern,omitempty"`
		URLTemplate   *string `json:"urlTemplate,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.UpsertSelector(req.Domain, req.TitleSelector, req.DocIDPattern); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	sel := &model.Selector{
		AccountID:     &accountID,
		Domain:        req.Domain,
		TitleSelector: req.TitleSelector,
		DocIDPattern:  req.DocIDPattern,
		URLTemplate:   req.URLTemplate,
	}
	out, err := h.svc.UpsertSelector(r.Context(), sel)
	if err != nil {
		if errors.Is(err, model.ErrValidation) {
			respond.WriteBadRequest(w, err.Error())
			return
		}
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// ListSelectors GET /api/accounts/{accountId}/selectors
func (h *SelectorHandler) ListSelectors(w http.ResponseWriter, r *http.Request) {
	sels, err := h.svc.ListSelectors(r.Context(), mux.Vars(r)["accountId"])
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"selectors": sels, "count": len(sels)})
}

// DeleteSelector DELETE /api/selectors/{selectorId}
func (h *SelectorHandler) DeleteSelector(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteSelector(r.Context(), mux.Vars(r)["selectorId"]); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			respond.WriteNotFound(w, err.Error())
			return
		}
		respond.WriteInternalError(w, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
