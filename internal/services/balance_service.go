package services

import (
	"context"
	"errors"

	"github.com/qarzdaftar/backend/internal/apperr"
	"github.com/qarzdaftar/backend/internal/models"
	repo "github.com/qarzdaftar/backend/internal/repository"
)

type BalanceService struct {
	customers repo.Customers
	txs       repo.Transactions
}

func NewBalanceService(c repo.Customers, t repo.Transactions) *BalanceService {
	return &BalanceService{customers: c, txs: t}
}

// Balance returns what the customer owes userID. Negative means the customer
// has overpaid.
func (s *BalanceService) Balance(ctx context.Context, userID, customerID string) (int64, error) {
	if !validID(customerID) {
		return 0, apperr.Validation("invalid customer id")
	}
	if _, err := s.customers.Get(ctx, userID, customerID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return 0, apperr.NotFound("customer not found")
		}
		return 0, err
	}
	txs, err := s.txs.ListByCustomer(ctx, customerID)
	if err != nil {
		return 0, err
	}
	return models.NetBalance(txs), nil
}
