package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	respond "github.com/worktrace/worktrace/internal/api/respond"
	"github.com/worktrace/worktrace/internal/api/validate"
	"github.com/worktrace/worktrace/internal/model"
	"github.com/worktrace/worktrace/internal/services"
)

// ReportHandler serves merged daily totals.
type ReportHandler struct {
	svc *services.ReportService
}

func NewReportHandler(svc *services.ReportService) *ReportHandler {
	return &ReportHandler{svc: svc}
}

// DailyReport GET /api/accounts/{accountId}/reports/daily?from=&to=
func (h *ReportHandler) DailyReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if err := validate.DateRange(from, to); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	totals, err := h.svc.DailyTotals(r.Context(), mux.Vars(r)["accountId"], from, to)
	if err != nil {
		if errors.Is(err, model.ErrValidation) {
			respond.WriteBadRequest(w, err.Error())
			return
		}
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"totals": totals, "count": len(totals)})
}
