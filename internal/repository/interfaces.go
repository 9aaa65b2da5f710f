package repository

import (
	"context"
	"errors"
	"time"

	"github.com/qarzdaftar/backend/internal/models"
)

// ErrNotFound is returned when a row does not exist or is not owned by the
// requesting user.
var ErrNotFound = errors.New("not found")

type Users interface {
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByTelegramChatID(ctx context.Context, chatID int64) (models.User, error)
	SetPushToken(ctx context.Context, userID string, token *string) error

	// LinkTelegram stores chatID on the user, detaching it from any other
	// user that held it.
	LinkTelegram(ctx context.Context, userID string, chatID int64) error
	UnlinkTelegram(ctx context.Context, userID string) error
}

type Customers interface {
	// Get returns the customer only if userID owns it.
	Get(ctx context.Context, userID, id string) (models.Customer, error)

	// ListOverdue returns the customers of userID that have at least one DEBT
	// due on or before cutoff, each with its full transaction history.
	ListOverdue(ctx context.Context, userID string, cutoff time.Time) ([]models.CustomerLedger, error)
}

type Transactions interface {
	ListByCustomer(ctx context.Context, customerID string) ([]models.Transaction, error)

	// ListDueUnnotified returns DEBT transactions due on or before cutoff that
	// have no PAYMENT_DUE notification yet. An empty userID means all users.
	ListDueUnnotified(ctx context.Context, userID string, cutoff time.Time) ([]models.DueDebt, error)
}

type Notifications interface {
	// InsertSkipDuplicates writes every notification whose (type, transaction)
	// pair is still free and returns only the rows it actually inserted. The
	// check is the storage constraint itself, so concurrent callers never
	// produce two rows for one transaction.
	InsertSkipDuplicates(ctx context.Context, ns []models.Notification) ([]models.Notification, error)

	ListByUser(ctx context.Context, userID string, limit int) ([]models.NotificationView, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, userID, id string) error
	DeleteAll(ctx context.Context, userID string) (int64, error)
}

type Repositories struct {
	Users         Users
	Customers     Customers
	Transactions  Transactions
	Notifications Notifications
}
