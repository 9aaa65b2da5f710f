package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/qarzdaftar/backend/internal/logger"
	"github.com/qarzdaftar/backend/internal/models"
	"github.com/qarzdaftar/backend/internal/push"
	repo "github.com/qarzdaftar/backend/internal/repository"
	"github.com/qarzdaftar/backend/internal/repository/memory"
	"github.com/qarzdaftar/backend/internal/telegram"
	"github.com/qarzdaftar/backend/internal/worker"
)

var tashkent = time.FixedZone("UZT", 5*60*60)

type env struct {
	store   *memory.Store
	repos   repo.Repositories
	now     time.Time
	overdue *OverdueService
	notes   *NotificationService
	pusher  *fakePush
	bot     *fakeMessenger
	linker  *telegram.Linker
	sweep   *SweepService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		store:  memory.New(),
		now:    time.Date(2026, 10, 18, 12, 0, 0, 0, tashkent),
		pusher: &fakePush{},
		bot:    &fakeMessenger{fail: map[int64]error{}},
	}
	e.store.SetClock(func() time.Time { return e.now })
	e.repos = e.store.Repositories()

	log := logger.Discard()
	e.overdue = NewOverdueService(e.repos.Customers, e.repos.Transactions, tashkent)
	e.overdue.SetClock(func() time.Time { return e.now })
	e.notes = NewNotificationService(e.repos.Notifications, e.overdue, log)
	e.linker = telegram.NewLinker(e.repos.Users, telegram.NewLinkStore(10*time.Minute), e.bot, e.overdue, log)

	pool := worker.NewPool(4)
	t.Cleanup(pool.Stop)
	e.sweep = NewSweepService(e.overdue, e.notes, e.pusher, e.linker, pool, time.Second, log)
	return e
}

func (e *env) user(t *testing.T, name string) models.User {
	t.Helper()
	return e.store.AddUser(models.User{Name: name, Phone: "+998900000000"})
}

func (e *env) customer(u models.User, name string) models.Customer {
	phone := "+998901112233"
	return e.store.AddCustomer(models.Customer{UserID: u.ID, Name: name, Phone: &phone})
}

// debt adds a DEBT due daysAgo days before today, at 10:00 local.
func (e *env) debt(c models.Customer, amount int64, daysAgo int) models.Transaction {
	y, m, d := e.now.Date()
	due := time.Date(y, m, d-daysAgo, 10, 0, 0, 0, tashkent)
	return e.store.AddTransaction(models.Transaction{CustomerID: c.ID, Kind: models.TxnDebt, Amount: amount, DueDate: &due})
}

func (e *env) payment(c models.Customer, amount int64) models.Transaction {
	return e.store.AddTransaction(models.Transaction{CustomerID: c.ID, Kind: models.TxnPayment, Amount: amount})
}

func (e *env) link(t *testing.T, u models.User, chatID int64) {
	t.Helper()
	if err := e.repos.Users.LinkTelegram(context.Background(), u.ID, chatID); err != nil {
		t.Fatal(err)
	}
}

func (e *env) setToken(t *testing.T, u models.User, token string) {
	t.Helper()
	if err := e.repos.Users.SetPushToken(context.Background(), u.ID, &token); err != nil {
		t.Fatal(err)
	}
}

type fakePush struct {
	mu    sync.Mutex
	calls [][]push.Message
}

func (f *fakePush) Send(_ context.Context, msgs []push.Message) push.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, msgs)
	return push.Result{Sent: len(msgs), Batches: 1}
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent map[int64][]string
	fail map[int64]error
}

func (f *fakeMessenger) SendMessage(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[chatID]; err != nil {
		return err
	}
	if f.sent == nil {
		f.sent = map[int64][]string{}
	}
	f.sent[chatID] = append(f.sent[chatID], text)
	return nil
}

func (f *fakeMessenger) BotUsername(context.Context) (string, error) { return "qarzdaftar_bot", nil }

func (f *fakeMessenger) messages(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent[chatID]...)
}
