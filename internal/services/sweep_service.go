package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/qarzdaftar/backend/internal/metrics"
	"github.com/qarzdaftar/backend/internal/models"
	"github.com/qarzdaftar/backend/internal/push"
	"github.com/qarzdaftar/backend/internal/worker"
)

type PushSender interface {
	Send(ctx context.Context, msgs []push.Message) push.Result
}

// ChatNotifier sends a user's overdue summary to their linked chat.
type ChatNotifier interface {
	Configured() bool
	SendSummary(ctx context.Context, userID string, chatID int64) error
}

type SweepReport struct {
	Detected    int         `json:"detected"`
	Created     int         `json:"created"`
	Users       int         `json:"users"`
	FailedUsers int         `json:"failedUsers"`
	Push        push.Result `json:"push"`
	ChatSent    int         `json:"chatSent"`
	ChatFailed  int         `json:"chatFailed"`
}

// SweepService runs the global due-debt sweep. Safe to run repeatedly and
// concurrently with inbox reads; the ledger drops anything already notified.
type SweepService struct {
	overdue *OverdueService
	notes   *NotificationService
	push    PushSender
	chat    ChatNotifier
	pool    *worker.Pool
	timeout time.Duration
	log     *slog.Logger
}

func NewSweepService(o *OverdueService, n *NotificationService, p PushSender, c ChatNotifier, wp *worker.Pool, timeout time.Duration, log *slog.Logger) *SweepService {
	return &SweepService{overdue: o, notes: n, push: p, chat: c, pool: wp, timeout: timeout, log: log.With("component", "sweep")}
}

type userBatch struct {
	userID   string
	token    *string
	chatID   *int64
	due      []models.DueDebt
	inserted []models.Notification
}

// Run detects every due debt in one pass, records notifications user by user
// and then delivers to each affected user. Only detection failing aborts the
// run; a failing user is logged and skipped.
func (s *SweepService) Run(ctx context.Context) (SweepReport, error) {
	start := time.Now()
	var rep SweepReport

	due, err := s.overdue.DetectDue(ctx, "")
	if err != nil {
		metrics.SweepsTotal.WithLabelValues("error").Inc()
		return rep, err
	}
	rep.Detected = len(due)

	var affected []*userBatch
	for _, b := range groupByUser(due) {
		inserted, err := s.notes.record(ctx, b.due, "sweep")
		if err != nil {
			s.log.Error("record notifications", "user_id", b.userID, "err", err)
			rep.FailedUsers++
			continue
		}
		if len(inserted) == 0 {
			continue
		}
		b.inserted = inserted
		rep.Created += len(inserted)
		affected = append(affected, b)
	}
	rep.Users = len(affected)

	s.deliver(ctx, affected, &rep)

	metrics.SweepsTotal.WithLabelValues("ok").Inc()
	s.log.Info("sweep finished",
		"detected", rep.Detected, "created", rep.Created, "users", rep.Users,
		"failed_users", rep.FailedUsers, "push_sent", rep.Push.Sent,
		"chat_sent", rep.ChatSent, "took", time.Since(start))
	return rep, nil
}

// deliver sends pushes in shared batches and one chat summary per linked user.
// Every external call gets its own deadline.
func (s *SweepService) deliver(ctx context.Context, users []*userBatch, rep *SweepReport) {
	var msgs []push.Message
	for _, b := range users {
		if b.token == nil || *b.token == "" {
			continue
		}
		for _, n := range b.inserted {
			msgs = append(msgs, pushMessage(*b.token, n))
		}
	}

	var (
		mu    sync.Mutex
		tasks []func()
	)
	if len(msgs) > 0 && s.push != nil {
		tasks = append(tasks, func() {
			res := s.push.Send(ctx, msgs)
			mu.Lock()
			rep.Push = res
			mu.Unlock()
		})
	}
	if s.chat != nil && s.chat.Configured() {
		for _, b := range users {
			if b.chatID == nil {
				continue
			}
			b := b
			tasks = append(tasks, func() {
				cctx, cancel := context.WithTimeout(ctx, s.timeout)
				defer cancel()
				err := s.chat.SendSummary(cctx, b.userID, *b.chatID)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					s.log.Warn("chat summary failed", "user_id", b.userID, "err", err)
					rep.ChatFailed++
					return
				}
				rep.ChatSent++
			})
		}
	}
	s.pool.RunAll(tasks...)
}

func groupByUser(due []models.DueDebt) []*userBatch {
	idx := map[string]*userBatch{}
	var out []*userBatch
	for _, d := range due {
		b, ok := idx[d.UserID]
		if !ok {
			b = &userBatch{userID: d.UserID, token: d.PushToken, chatID: d.TelegramChatID}
			idx[d.UserID] = b
			out = append(out, b)
		}
		b.due = append(b.due, d)
	}
	return out
}

func pushMessage(token string, n models.Notification) push.Message {
	data := map[string]any{
		"type":           n.Type.String(),
		"notificationId": n.ID,
	}
	if n.CustomerID != nil {
		data["customerId"] = *n.CustomerID
	}
	if n.TransactionID != nil {
		data["transactionId"] = *n.TransactionID
	}
	return push.Message{Token: token, Title: n.Title, Body: n.Message, Data: data}
}
