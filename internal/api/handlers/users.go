package handlers

import (
	"net/http"

	"github.com/qarzdaftar/backend/internal/api/httpx"
	"github.com/qarzdaftar/backend/internal/api/validate"
	"github.com/qarzdaftar/backend/internal/services"
)

type UserHandler struct {
	Svc *services.UserService
}

type pushTokenReq struct {
	Token string `json:"token"`
}

func (h *UserHandler) SavePushToken(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req pushTokenReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	if err := validate.Collect(
		validate.Required("token", req.Token),
		validate.MaxLen("token", req.Token, 255),
	); err != nil {
		httpx.Error(w, r, err)
		return
	}
	if err := h.Svc.SavePushToken(r.Context(), uid, req.Token); err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, message{"Push token saqlandi"})
}

func (h *UserHandler) RemovePushToken(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.Svc.RemovePushToken(r.Context(), uid); err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, message{"Push token o'chirildi"})
}

func (h *UserHandler) TelegramLink(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	st, err := h.Svc.TelegramLink(r.Context(), uid)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, st)
}

func (h *UserHandler) UnlinkTelegram(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.Svc.UnlinkTelegram(r.Context(), uid); err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, message{"Telegram uzildi"})
}

func (h *UserHandler) NotificationSettings(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	st, err := h.Svc.Settings(r.Context(), uid)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, st)
}
