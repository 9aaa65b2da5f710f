package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/qarzdaftar/backend/internal/api/httpx"
	"github.com/qarzdaftar/backend/internal/services"
)

type CustomerHandler struct {
	Balances *services.BalanceService
}

type balanceResp struct {
	CustomerID string `json:"customerId"`
	Balance    int64  `json:"balance"`
}

func (h *CustomerHandler) Balance(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	bal, err := h.Balances.Balance(r.Context(), uid, id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, balanceResp{CustomerID: id, Balance: bal})
}
