// Package app wires configuration, storage, delivery channels and services
// into one object shared by the API server and the ops CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/qarzdaftar/backend/internal/api"
	"github.com/qarzdaftar/backend/internal/auth"
	"github.com/qarzdaftar/backend/internal/config"
	"github.com/qarzdaftar/backend/internal/db"
	"github.com/qarzdaftar/backend/internal/push"
	"github.com/qarzdaftar/backend/internal/repository"
	"github.com/qarzdaftar/backend/internal/repository/memory"
	"github.com/qarzdaftar/backend/internal/repository/postgres"
	"github.com/qarzdaftar/backend/internal/services"
	"github.com/qarzdaftar/backend/internal/telegram"
	"github.com/qarzdaftar/backend/internal/worker"
)

type App struct {
	Cfg    config.Config
	Log    *slog.Logger
	Loc    *time.Location
	Repos  repository.Repositories
	Tokens *auth.TokenManager

	// Bot is nil when no bot token is configured.
	Bot    *telegram.BotClient
	Linker *telegram.Linker

	Overdue       *services.OverdueService
	Notifications *services.NotificationService
	Users         *services.UserService
	Balances      *services.BalanceService
	Sweep         *services.SweepService

	pool    *worker.Pool
	closers []func()
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, _ := cfg.Location()

	a := &App{Cfg: cfg, Log: log, Loc: loc}

	switch cfg.Store {
	case "memory":
		log.Warn("using in-memory store; data is lost on restart")
		a.Repos = memory.New().Repositories()
	default:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		if cfg.Migrate {
			if err := db.RunMigrations(ctx, pool); err != nil {
				a.Close()
				return nil, fmt.Errorf("migrations: %w", err)
			}
		}
		a.Repos = postgres.NewRepositories(pool)
	}

	a.pool = worker.NewPool(cfg.DeliveryWorkers)
	a.closers = append(a.closers, a.pool.Stop)

	a.Tokens = auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	a.Overdue = services.NewOverdueService(a.Repos.Customers, a.Repos.Transactions, loc)
	a.Notifications = services.NewNotificationService(a.Repos.Notifications, a.Overdue, log)
	a.Balances = services.NewBalanceService(a.Repos.Customers, a.Repos.Transactions)

	var messenger telegram.Messenger
	if cfg.TelegramConfigured() {
		a.Bot = telegram.NewBotClient(cfg.TelegramBotToken, cfg.TelegramAPIEndpoint, cfg.DeliveryTimeout)
		messenger = a.Bot
	} else {
		log.Warn("TELEGRAM_BOT_TOKEN not set; chat delivery disabled")
	}
	a.Linker = telegram.NewLinker(a.Repos.Users, telegram.NewLinkStore(cfg.LinkTTL), messenger, a.Overdue, log.With("component", "telegram"))
	a.Users = services.NewUserService(a.Repos.Users, a.Linker)

	pusher := push.NewClient(cfg.ExpoPushURL, cfg.PushBatchSize, cfg.DeliveryTimeout, log)
	a.Sweep = services.NewSweepService(a.Overdue, a.Notifications, pusher, a.Linker, a.pool, cfg.DeliveryTimeout, log)
	return a, nil
}

func (a *App) Router() http.Handler {
	return api.NewRouter(api.RouterDeps{
		Cfg:           a.Cfg,
		Log:           a.Log,
		Tokens:        a.Tokens,
		Notifications: a.Notifications,
		Users:         a.Users,
		Balances:      a.Balances,
		Sweep:         a.Sweep,
		Bot:           a.Linker,
	})
}

// RegisterWebhook points Telegram at TELEGRAM_WEBHOOK_URL. It is a no-op
// when either the bot or the URL is missing.
func (a *App) RegisterWebhook(ctx context.Context) error {
	if a.Bot == nil || a.Cfg.TelegramWebhookURL == "" {
		return nil
	}
	return a.Bot.SetWebhook(ctx, a.Cfg.TelegramWebhookURL, a.Cfg.TelegramWebhookSecret)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
