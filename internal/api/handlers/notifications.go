package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/qarzdaftar/backend/internal/api/httpx"
	"github.com/qarzdaftar/backend/internal/api/validate"
	"github.com/qarzdaftar/backend/internal/apperr"
	"github.com/qarzdaftar/backend/internal/models"
	"github.com/qarzdaftar/backend/internal/services"
)

type SweepRunner interface {
	Run(ctx context.Context) (services.SweepReport, error)
}

type NotificationHandler struct {
	Svc    *services.NotificationService
	Sweep  SweepRunner
	IsProd bool
}

type notificationList struct {
	Notifications []models.NotificationView `json:"notifications"`
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	limit, ef := validate.OptionalIntRange("limit", r.URL.Query().Get("limit"),
		services.DefaultListLimit, 1, services.MaxListLimit)
	if err := validate.Collect(ef); err != nil {
		httpx.Error(w, r, err)
		return
	}
	list, err := h.Svc.List(r.Context(), uid, limit)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	if list == nil {
		list = []models.NotificationView{}
	}
	httpx.WriteJSON(w, http.StatusOK, notificationList{Notifications: list})
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	n, err := h.Svc.UnreadCount(r.Context(), uid)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.Svc.MarkRead(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, message{"Bildirishnoma o'qildi"})
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	n, err := h.Svc.MarkAllRead(r.Context(), uid)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"message": "Barcha bildirishnomalar o'qildi", "updated": n})
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Delete(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, message{"Bildirishnoma o'chirildi"})
}

func (h *NotificationHandler) ClearAll(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	n, err := h.Svc.ClearAll(r.Context(), uid)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"message": "Barcha bildirishnomalar o'chirildi", "deleted": n})
}

// Trigger runs a global sweep on demand. Disabled in prod.
func (h *NotificationHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if h.IsProd {
		httpx.Error(w, r, apperr.Forbidden("manual sweep is disabled in production"))
		return
	}
	rep, err := h.Sweep.Run(r.Context())
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rep)
}
