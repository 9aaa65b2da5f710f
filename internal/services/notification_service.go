package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/qarzdaftar/backend/internal/apperr"
	"github.com/qarzdaftar/backend/internal/metrics"
	"github.com/qarzdaftar/backend/internal/models"
	repo "github.com/qarzdaftar/backend/internal/repository"
	"github.com/qarzdaftar/backend/internal/summary"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// NotificationService is the user's inbox. Reads detect newly due debts for
// that user first, so the inbox is fresh between sweeps.
type NotificationService struct {
	notes   repo.Notifications
	overdue *OverdueService
	log     *slog.Logger
}

func NewNotificationService(n repo.Notifications, o *OverdueService, log *slog.Logger) *NotificationService {
	return &NotificationService{notes: n, overdue: o, log: log.With("component", "notifications")}
}

// List returns the newest notifications first. A zero limit means the default.
func (s *NotificationService) List(ctx context.Context, userID string, limit int) ([]models.NotificationView, error) {
	if limit == 0 {
		limit = DefaultListLimit
	}
	if limit < 1 || limit > MaxListLimit {
		return nil, apperr.Validation("limit must be between 1 and 100")
	}
	if err := s.refresh(ctx, userID); err != nil {
		return nil, err
	}
	return s.notes.ListByUser(ctx, userID, limit)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	if err := s.refresh(ctx, userID); err != nil {
		return 0, err
	}
	return s.notes.CountUnread(ctx, userID)
}

// MarkRead is idempotent; marking a read notification again is fine.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	if !validID(id) {
		return apperr.Validation("invalid notification id")
	}
	return notificationErr(s.notes.MarkRead(ctx, userID, id))
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.notes.MarkAllRead(ctx, userID)
}

func (s *NotificationService) Delete(ctx context.Context, userID, id string) error {
	if !validID(id) {
		return apperr.Validation("invalid notification id")
	}
	return notificationErr(s.notes.Delete(ctx, userID, id))
}

// ClearAll empties the inbox. Debts that are still due get a fresh
// notification on the next read or sweep.
func (s *NotificationService) ClearAll(ctx context.Context, userID string) (int64, error) {
	return s.notes.DeleteAll(ctx, userID)
}

func (s *NotificationService) refresh(ctx context.Context, userID string) error {
	due, err := s.overdue.DetectDue(ctx, userID)
	if err != nil {
		return err
	}
	_, err = s.record(ctx, due, "inbox")
	return err
}

// record writes one PAYMENT_DUE row per due debt and returns the rows that
// were actually new. Rows another caller wrote first are skipped silently.
func (s *NotificationService) record(ctx context.Context, due []models.DueDebt, source string) ([]models.Notification, error) {
	if len(due) == 0 {
		return nil, nil
	}
	ns := make([]models.Notification, 0, len(due))
	for _, d := range due {
		d := d
		ns = append(ns, models.Notification{
			UserID:        d.UserID,
			CustomerID:    &d.CustomerID,
			TransactionID: &d.TransactionID,
			Type:          models.NotificationPaymentDue,
			Title:         summary.PaymentDueTitle,
			Message:       summary.PaymentDueMessage(d.CustomerName, d.Amount),
		})
	}
	inserted, err := s.notes.InsertSkipDuplicates(ctx, ns)
	if err != nil {
		return nil, err
	}
	if len(inserted) > 0 {
		metrics.NotificationsCreated.WithLabelValues(source).Add(float64(len(inserted)))
		s.log.Debug("notifications created", "source", source, "count", len(inserted), "skipped", len(ns)-len(inserted))
	}
	return inserted, nil
}

func notificationErr(err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return apperr.NotFound("notification not found")
	}
	return err
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
