// Package memory is an in-process implementation of the repositories. It
// backs APP_STORE=memory and the service tests, and enforces the same
// one-notification-per-transaction rule as the Postgres schema.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qarzdaftar/backend/internal/models"
	"github.com/qarzdaftar/backend/internal/repository"
)

type Store struct {
	mu            sync.RWMutex
	now           func() time.Time
	users         map[string]models.User
	customers     map[string]models.Customer
	transactions  []models.Transaction
	notifications []models.Notification
	notified      map[notifyKey]struct{} // unique (type, transaction_id)
}

type notifyKey struct {
	typ models.NotificationType
	txn string
}

func New() *Store {
	return &Store{
		now:       time.Now,
		users:     map[string]models.User{},
		customers: map[string]models.Customer{},
		notified:  map[notifyKey]struct{}{},
	}
}

// SetClock replaces the clock used for created_at stamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Users:         usersRepo{s},
		Customers:     customersRepo{s},
		Transactions:  transactionsRepo{s},
		Notifications: notificationsRepo{s},
	}
}

// ----------------- Seeding -----------------

func (s *Store) AddUser(u models.User) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
		u.UpdatedAt = u.CreatedAt
	}
	s.users[u.ID] = u
	return u
}

func (s *Store) AddCustomer(c models.Customer) models.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	s.customers[c.ID] = c
	return c
}

// AddTransaction fills UserID from the customer.
func (s *Store) AddTransaction(tx models.Transaction) models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if c, ok := s.customers[tx.CustomerID]; ok && tx.UserID == "" {
		tx.UserID = c.UserID
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.now()
	}
	s.transactions = append(s.transactions, tx)
	return tx
}

// NotificationCount returns how many notifications reference txID.
func (s *Store) NotificationCount(txID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, x := range s.notifications {
		if x.TransactionID != nil && *x.TransactionID == txID {
			n++
		}
	}
	return n
}

// ----------------- Users -----------------

type usersRepo struct{ s *Store }

func (r usersRepo) GetByID(_ context.Context, id string) (models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return models.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (r usersRepo) GetByTelegramChatID(_ context.Context, chatID int64) (models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.TelegramChatID != nil && *u.TelegramChatID == chatID {
			return u, nil
		}
	}
	return models.User{}, repository.ErrNotFound
}

func (r usersRepo) SetPushToken(_ context.Context, userID string, token *string) error {
	return r.s.updateUser(userID, func(u *models.User) { u.PushToken = token })
}

func (r usersRepo) LinkTelegram(_ context.Context, userID string, chatID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	for id, other := range r.s.users {
		if id != userID && other.TelegramChatID != nil && *other.TelegramChatID == chatID {
			other.TelegramChatID = nil
			r.s.users[id] = other
		}
	}
	u.TelegramChatID = &chatID
	u.UpdatedAt = r.s.now()
	r.s.users[userID] = u
	return nil
}

func (r usersRepo) UnlinkTelegram(_ context.Context, userID string) error {
	return r.s.updateUser(userID, func(u *models.User) { u.TelegramChatID = nil })
}

func (s *Store) updateUser(id string, fn func(*models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = s.now()
	s.users[id] = u
	return nil
}

// ----------------- Customers -----------------

type customersRepo struct{ s *Store }

func (r customersRepo) Get(_ context.Context, userID, id string) (models.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.customers[id]
	if !ok || c.UserID != userID {
		return models.Customer{}, repository.ErrNotFound
	}
	return c, nil
}

func (r customersRepo) ListOverdue(_ context.Context, userID string, cutoff time.Time) ([]models.CustomerLedger, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	byCustomer := map[string][]models.Transaction{}
	overdue := map[string]bool{}
	for _, tx := range r.s.transactions {
		if tx.UserID != userID {
			continue
		}
		byCustomer[tx.CustomerID] = append(byCustomer[tx.CustomerID], tx)
		if tx.IsDueBy(cutoff) {
			overdue[tx.CustomerID] = true
		}
	}

	var out []models.CustomerLedger
	for id := range overdue {
		txs := byCustomer[id]
		sort.SliceStable(txs, func(i, j int) bool { return txs[i].CreatedAt.Before(txs[j].CreatedAt) })
		out = append(out, models.CustomerLedger{Customer: r.s.customers[id], Transactions: txs})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Customer.Name != out[j].Customer.Name {
			return out[i].Customer.Name < out[j].Customer.Name
		}
		return out[i].Customer.ID < out[j].Customer.ID
	})
	return out, nil
}

// ----------------- Transactions -----------------

type transactionsRepo struct{ s *Store }

func (r transactionsRepo) ListByCustomer(_ context.Context, customerID string) ([]models.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []models.Transaction
	for _, tx := range r.s.transactions {
		if tx.CustomerID == customerID {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r transactionsRepo) ListDueUnnotified(_ context.Context, userID string, cutoff time.Time) ([]models.DueDebt, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []models.DueDebt
	for _, tx := range r.s.transactions {
		if userID != "" && tx.UserID != userID {
			continue
		}
		if !tx.IsDueBy(cutoff) {
			continue
		}
		if _, done := r.s.notified[notifyKey{models.NotificationPaymentDue, tx.ID}]; done {
			continue
		}
		u := r.s.users[tx.UserID]
		out = append(out, models.DueDebt{
			TransactionID:  tx.ID,
			UserID:         tx.UserID,
			CustomerID:     tx.CustomerID,
			CustomerName:   r.s.customers[tx.CustomerID].Name,
			Amount:         tx.Amount,
			DueDate:        *tx.DueDate,
			PushToken:      u.PushToken,
			TelegramChatID: u.TelegramChatID,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].DueDate.Before(out[j].DueDate)
	})
	return out, nil
}

// ----------------- Notifications -----------------

type notificationsRepo struct{ s *Store }

// InsertSkipDuplicates checks and inserts under one write lock, which is the
// in-memory equivalent of the unique index.
func (r notificationsRepo) InsertSkipDuplicates(_ context.Context, ns []models.Notification) ([]models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var inserted []models.Notification
	for _, n := range ns {
		if n.TransactionID != nil {
			key := notifyKey{n.Type, *n.TransactionID}
			if _, dup := r.s.notified[key]; dup {
				continue
			}
			r.s.notified[key] = struct{}{}
		}
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		n.CreatedAt = r.s.now()
		r.s.notifications = append(r.s.notifications, n)
		inserted = append(inserted, n)
	}
	return inserted, nil
}

func (r notificationsRepo) ListByUser(_ context.Context, userID string, limit int) ([]models.NotificationView, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []models.NotificationView
	// newest first; later inserts win ties
	for i := len(r.s.notifications) - 1; i >= 0; i-- {
		n := r.s.notifications[i]
		if n.UserID != userID {
			continue
		}
		v := models.NotificationView{Notification: n}
		if n.CustomerID != nil {
			if c, ok := r.s.customers[*n.CustomerID]; ok {
				name := c.Name
				v.CustomerName = &name
				v.CustomerPhone = c.Phone
			}
		}
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r notificationsRepo) CountUnread(_ context.Context, userID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, x := range r.s.notifications {
		if x.UserID == userID && !x.IsRead {
			n++
		}
	}
	return n, nil
}

func (r notificationsRepo) MarkRead(_ context.Context, userID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.notifications {
		if r.s.notifications[i].ID == id && r.s.notifications[i].UserID == userID {
			r.s.notifications[i].IsRead = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r notificationsRepo) MarkAllRead(_ context.Context, userID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for i := range r.s.notifications {
		if r.s.notifications[i].UserID == userID && !r.s.notifications[i].IsRead {
			r.s.notifications[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func (r notificationsRepo) Delete(_ context.Context, userID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, x := range r.s.notifications {
		if x.ID == id && x.UserID == userID {
			r.s.removeAt(i)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r notificationsRepo) DeleteAll(_ context.Context, userID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for i := len(r.s.notifications) - 1; i >= 0; i-- {
		if r.s.notifications[i].UserID == userID {
			r.s.removeAt(i)
			n++
		}
	}
	return n, nil
}

// removeAt drops the row and frees its unique key, as deleting the row does
// in Postgres.
func (s *Store) removeAt(i int) {
	n := s.notifications[i]
	if n.TransactionID != nil {
		delete(s.notified, notifyKey{n.Type, *n.TransactionID})
	}
	s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
}
