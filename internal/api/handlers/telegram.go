package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

type UpdateHandler interface {
	HandleUpdate(ctx context.Context, upd tgbotapi.Update)
}

// WebhookHandler receives Bot API updates. Telegram retries anything that is
// not a 200, so every outcome except a bad secret is acknowledged.
type WebhookHandler struct {
	Bot     UpdateHandler
	Secret  string
	Timeout time.Duration
	Log     *slog.Logger
}

func (h *WebhookHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	if h.Secret != "" {
		got := r.Header.Get(secretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.Secret)) != 1 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
	}

	var upd tgbotapi.Update
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&upd); err != nil {
		h.Log.Warn("malformed telegram update", "err", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.Timeout)
	defer cancel()
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				h.Log.Error("telegram update panic", "update_id", upd.UpdateID, "err", rec)
			}
		}()
		h.Bot.HandleUpdate(ctx, upd)
	}()
	w.WriteHeader(http.StatusOK)
}
