package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	respond "github.com/worktrace/worktrace/internal/api/respond"
	"github.com/worktrace/worktrace/internal/model"
	"github.com/worktrace/worktrace/internal/services"
)

// DocumentHandler is a thin HTTP transport over DocumentService.
type DocumentHandler struct {
	svc *services.DocumentService
}

func NewDocumentHandler(svc *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

// ListDocuments GET /api/documents?accountId=&projectId=&domain=&unassigned=&limit=
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := model.ListDocumentsRequest{
		AccountID: q.Get("accountId"),
		Domain:    q.Get("domain"),
	}
	if v := q.Get("projectId"); v != "" {
		req.ProjectID = &v
	}
	if v := q.Get("unassigned"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			respond.WriteBadRequest(w, "unassigned must be a boolean")
			return
		}
		req.Unassigned = b
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respond.WriteBadRequest(w, "limit must be a non-negative integer")
			return
		}
		req.Limit = n
	}

	docs, err := h.svc.ListDocuments(r.Context(), req)
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"documents": docs, "count": len(docs)})
}

// GetDocument GET /api/documents/{documentId}
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.GetDocument(r.Context(), mux.Vars(r)["documentId"])
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			respond.WriteNotFound(w, err.Error())
			return
		}
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, doc)
}

// AssignDocument PATCH /api/documents/{documentId}
// Sets or clears the project and tag. A null projectId detaches the document.
func (h *DocumentHandler) AssignDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProjectID *string `json:"projectId"`
		Tag       *string `json:"tag"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	doc, err := h.svc.AssignDocument(r.Context(), mux.Vars(r)["documentId"], req.ProjectID, req.Tag)
	if err != nil {
		if errors.Is(err, model.ErrValidation) {
			respond.WriteBadRequest(w, err.Error())
			return
		}
		if errors.Is(err, model.ErrNotFound) {
			respond.WriteNotFound(w, err.Error())
			return
		}
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, doc)
}

// DeleteDocument DELETE /api/documents/{documentId}
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteDocument(r.Context(), mux.Vars(r)["documentId"]); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			respond.WriteNotFound(w, err.Error())
			return
		}
		respond.WriteInternalError(w, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
