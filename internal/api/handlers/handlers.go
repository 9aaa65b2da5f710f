// Package handlers adapts the services to HTTP. Every route under /api/v1
// runs behind the auth middleware, so a missing user id is a wiring bug.
package handlers

import (
	"net/http"

	"github.com/qarzdaftar/backend/internal/api/httpx"
	"github.com/qarzdaftar/backend/internal/middleware"
)

type message struct {
	Message string `json:"message"`
}

func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid, ok := middleware.UserID(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing user", nil)
	}
	return uid, ok
}
