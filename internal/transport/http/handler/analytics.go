package handler

import (
	"encoding/json"
	"net/http"

	"github.com/clearflow/clearflow-api/internal/application/analytics"
	"github.com/clearflow/clearflow-api/internal/domain"
	"github.com/clearflow/clearflow-api/internal/pkg/validate"
	"github.com/clearflow/clearflow-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// AnalyticsHandler handles water-quality analytics endpoints.
type AnalyticsHandler struct {
	svc analytics.Service
}

func NewAnalyticsHandler(svc analytics.Service) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

func (h *AnalyticsHandler) Record(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.RecordAnalyticsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a, err := h.svc.Record(r.Context(), u.UserID, chi.URLParam(r, "serial"), req)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *AnalyticsHandler) List(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	out, err := h.svc.List(r.Context(), u.UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
