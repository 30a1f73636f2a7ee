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

// ProjectHandler is a thin HTTP transport over ProjectService.
type ProjectHandler struct {
	svc *services.ProjectService
}

func NewProjectHandler(svc *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{svc: svc}
}

// CreateProject POST /api/accounts/{accountId}/projects
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string   `json:"name"`
		Color    string   `json:"color"`
		Keywords []string `json:"keywords"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.CreateProject(req.Name, req.Color); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	p := &model.Project{
		AccountID: mux.Vars(r)["accountId"],
		Name:      req.Name,
		Color:     req.Color,
		Keywords:  req.Keywords,
	}
	out, err := h.svc.CreateProject(r.Context(), p)
	if err != nil {
		if errors.Is(err, model.ErrValidation) {
			respond.WriteBadRequest(w, err.Error())
			return
		}
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusCreated, out)
}

// ListProjects GET /api/accounts/{accountId}/projects
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	ps, err := h.svc.ListProjects(r.Context(), mux.Vars(r)["accountId"])
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"projects": ps, "count": len(ps)})
}

// DeleteProject DELETE /api/projects/{projectId}
// Documents assigned to the project are detached, not deleted.
func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteProject(r.Context(), mux.Vars(r)["projectId"]); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			respond.WriteNotFound(w, err.Error())
			return
		}
		respond.WriteInternalError(w, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
