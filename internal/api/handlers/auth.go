package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/qarzdaftar/backend/internal/api/httpx"
	"github.com/qarzdaftar/backend/internal/api/validate"
	"github.com/qarzdaftar/backend/internal/auth"
)

// AuthHandler mints bearer tokens for local development. The real sign-in
// flow issues the same tokens from another service.
type AuthHandler struct {
	TM *auth.TokenManager
}

type devTokenReq struct {
	UserID string `json:"userId"`
}

type tokenResp struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

func (h *AuthHandler) DevToken(w http.ResponseWriter, r *http.Request) {
	var req devTokenReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	if ef := validate.Required("userId", req.UserID); ef != nil {
		httpx.Error(w, r, validate.Errs{*ef})
		return
	}
	if _, err := uuid.Parse(req.UserID); err != nil {
		httpx.Error(w, r, validate.Errs{{Field: "userId", Msg: "must be a uuid"}})
		return
	}
	tok, exp, err := h.TM.Issue(req.UserID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResp{AccessToken: tok, ExpiresAt: exp})
}
