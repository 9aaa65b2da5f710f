package services

import (
	"context"
	"time"

	"github.com/qarzdaftar/backend/internal/models"
	repo "github.com/qarzdaftar/backend/internal/repository"
	"github.com/qarzdaftar/backend/internal/summary"
)

// OverdueService answers "what is due" questions against the reference
// timezone. A debt due at any moment of today counts as due.
type OverdueService struct {
	customers repo.Customers
	txs       repo.Transactions
	loc       *time.Location
	now       func() time.Time
}

func NewOverdueService(c repo.Customers, t repo.Transactions, loc *time.Location) *OverdueService {
	return &OverdueService{customers: c, txs: t, loc: loc, now: time.Now}
}

func (s *OverdueService) SetClock(now func() time.Time) { s.now = now }

func (s *OverdueService) Today() time.Time { return s.now().In(s.loc) }

// Cutoff is the last instant of today.
func (s *OverdueService) Cutoff() time.Time {
	y, m, d := s.Today().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, s.loc).Add(-time.Nanosecond)
}

// DetectDue lists due debts that have not been notified yet. An empty userID
// scans every user in one query.
func (s *OverdueService) DetectDue(ctx context.Context, userID string) ([]models.DueDebt, error) {
	return s.txs.ListDueUnnotified(ctx, userID, s.Cutoff())
}

// Items returns one line per customer that still owes money and has at least
// one debt due. The amount is the net balance and the date the earliest due
// date. Customers at or below zero are settled and skipped.
func (s *OverdueService) Items(ctx context.Context, userID string) ([]models.OverdueItem, error) {
	cutoff := s.Cutoff()
	ledgers, err := s.customers.ListOverdue(ctx, userID, cutoff)
	if err != nil {
		return nil, err
	}
	items := make([]models.OverdueItem, 0, len(ledgers))
	for _, l := range ledgers {
		bal := l.Balance()
		if bal <= 0 {
			continue
		}
		due, ok := l.EarliestDueBy(cutoff)
		if !ok {
			continue
		}
		items = append(items, models.OverdueItem{
			CustomerName:  l.Customer.Name,
			CustomerPhone: l.Customer.Phone,
			Amount:        bal,
			DueDate:       due,
		})
	}
	return items, nil
}

func (s *OverdueService) OverdueSummary(ctx context.Context, userID string) (string, error) {
	items, err := s.Items(ctx, userID)
	if err != nil {
		return "", err
	}
	return summary.Compose(items, s.Today()), nil
}
