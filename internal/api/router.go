package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/qarzdaftar/backend/internal/api/handlers"
	"github.com/qarzdaftar/backend/internal/auth"
	"github.com/qarzdaftar/backend/internal/config"
	"github.com/qarzdaftar/backend/internal/metrics"
	"github.com/qarzdaftar/backend/internal/middleware"
	"github.com/qarzdaftar/backend/internal/services"
)

type RouterDeps struct {
	Cfg           config.Config
	Log           *slog.Logger
	Tokens        *auth.TokenManager
	Notifications *services.NotificationService
	Users         *services.UserService
	Balances      *services.BalanceService
	Sweep         handlers.SweepRunner
	Bot           handlers.UpdateHandler
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics, middleware.RateLimit(d.Cfg.RateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
	}))

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	webhook := &handlers.WebhookHandler{
		Bot:     d.Bot,
		Secret:  d.Cfg.TelegramWebhookSecret,
		Timeout: webhookTimeout(d.Cfg.DeliveryTimeout),
		Log:     d.Log.With("component", "telegram-webhook"),
	}
	r.Post("/api/telegram/webhook", webhook.Webhook)

	authMW := middleware.NewAuthMiddleware(d.Tokens, d.Cfg.Env)
	nh := &handlers.NotificationHandler{Svc: d.Notifications, Sweep: d.Sweep, IsProd: d.Cfg.IsProd()}
	uh := &handlers.UserHandler{Svc: d.Users}
	ch := &handlers.CustomerHandler{Balances: d.Balances}

	r.Route("/api/v1", func(r chi.Router) {
		if d.Cfg.Env == "dev" {
			ah := &handlers.AuthHandler{TM: d.Tokens}
			r.Post("/auth/dev-token", ah.DevToken)
		}

		r.Group(func(r chi.Router) {
			r.Use(authMW.Auth)

			// ---------- notifications ----------
			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", nh.List)
				r.Delete("/", nh.ClearAll)
				r.Get("/unread-count", nh.UnreadCount)
				r.Patch("/read-all", nh.MarkAllRead)
				r.Post("/trigger", nh.Trigger)
				r.Patch("/{id}/read", nh.MarkRead)
				r.Delete("/{id}", nh.Delete)
			})

			// ---------- users ----------
			r.Route("/users", func(r chi.Router) {
				r.Post("/push-token", uh.SavePushToken)
				r.Delete("/push-token", uh.RemovePushToken)
				r.Get("/telegram-link", uh.TelegramLink)
				r.Delete("/telegram-link", uh.UnlinkTelegram)
				r.Get("/notification-settings", uh.NotificationSettings)
			})

			// ---------- customers ----------
			r.Get("/customers/{id}/balance", ch.Balance)
		})
	})

	return r
}

// webhookTimeout leaves room for a summary plus a reply.
func webhookTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 30 * time.Second
	}
	return 2 * d
}
