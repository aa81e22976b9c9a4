package handler

import (
	"net/http"

	"github.com/clearflow/clearflow-api/internal/application/alert"
	"github.com/clearflow/clearflow-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// AlertHandler handles unsafe-water alert endpoints.
type AlertHandler struct {
	svc alert.Service
}

func NewAlertHandler(svc alert.Service) *AlertHandler { return &AlertHandler{svc: svc} }

func (h *AlertHandler) ListUnread(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	alerts, err := h.svc.ListUnread(r.Context(), u.UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (h *AlertHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	a, err := h.svc.MarkAsRead(r.Context(), u.UserID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
