package api

import (
	"encoding/json"
	"errors"
	"net/http"

	respond "github.com/worktrace/worktrace/internal/api/respond"
	"github.com/worktrace/worktrace/internal/api/validate"
	"github.com/worktrace/worktrace/internal/auth"
	"github.com/worktrace/worktrace/internal/model"
	"github.com/worktrace/worktrace/internal/services"
)

// HeartbeatHandler is the collector-facing transport: heartbeat ingestion and
// selector lookup.
type HeartbeatHandler struct {
	svc *services.IngestService
}

func NewHeartbeatHandler(svc *services.IngestService) *HeartbeatHandler {
	return &HeartbeatHandler{svc: svc}
}

// RecordHeartbeat POST /api/heartbeats
func (h *HeartbeatHandler) RecordHeartbeat(w http.ResponseWriter, r *http.Request) {
	apiKey := auth.ExtractAPIKey(r)

	var req services.HeartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metricHeartbeatsRejected.Inc()
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.Heartbeat(req.DocIdentifier, req.Domain, req.Email, req.Title); err != nil {
		metricHeartbeatsRejected.Inc()
		respond.WriteBadRequest(w, err.Error())
		return
	}

	res, err := h.svc.RecordHeartbeat(r.Context(), apiKey, &req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrValidation):
			metricHeartbeatsRejected.Inc()
			respond.WriteBadRequest(w, err.Error())
		case errors.Is(err, auth.ErrMissingAPIKey), errors.Is(err, auth.ErrInvalidAPIKey):
			metricHeartbeatsRejected.Inc()
			respond.WriteUnauthorized(w, err.Error())
		case errors.Is(err, auth.ErrIdentityMismatch):
			metricHeartbeatsRejected.Inc()
			respond.WriteForbidden(w, err.Error())
		default:
			respond.WriteInternalError(w, err.Error())
		}
		return
	}

	if res.Throttled {
		metricHeartbeatsThrottled.Inc()
	} else {
		metricHeartbeatsAccepted.Inc()
	}
	respond.WriteJSON(w, http.StatusOK, res)
}

// GetSelector GET /api/selectors?domain=docs.google.com
// Responds 200 with an empty object when no descriptor exists; collectors
// fall back to page defaults.
func (h *HeartbeatHandler) GetSelector(w http.ResponseWriter, r *http.Request) {
	apiKey := auth.ExtractAPIKey(r)
	domain := r.URL.Query().Get("domain")
	if domain == "" {
		respond.WriteBadRequest(w, "domain query parameter is required")
		return
	}

	sel, err := h.svc.ResolveSelector(r.Context(), apiKey, domain)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			respond.WriteJSON(w, http.StatusOK, struct{}{})
			return
		}
		if errors.Is(err, model.ErrValidation) {
			respond.WriteBadRequest(w, err.Error())
			return
		}
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, sel)
}
