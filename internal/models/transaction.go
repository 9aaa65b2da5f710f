package models

import (
	"errors"
	"time"
)

type TransactionKind string

const (
	TxnDebt    TransactionKind = "DEBT"
	TxnPayment TransactionKind = "PAYMENT"
)

func (k TransactionKind) Valid() bool { return k == TxnDebt || k == TxnPayment }

// Transaction is immutable once written. Amount is in whole so'm.
type Transaction struct {
	ID         string          `json:"id"`
	UserID     string          `json:"userId"`
	CustomerID string          `json:"customerId"`
	Kind       TransactionKind `json:"type"`
	Amount     int64           `json:"amount"`
	DueDate    *time.Time      `json:"expectedReturnDate,omitempty"`
	Note       *string         `json:"note,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

func (t Transaction) Validate() error {
	if !t.Kind.Valid() {
		return errors.New("unknown transaction type")
	}
	if t.Amount <= 0 {
		return errors.New("amount must be > 0")
	}
	if t.DueDate != nil && t.Kind != TxnDebt {
		return errors.New("only debts carry a due date")
	}
	return nil
}

// IsDueBy reports whether t is a debt obligation due on or before cutoff.
func (t Transaction) IsDueBy(cutoff time.Time) bool {
	return t.Kind == TxnDebt && t.DueDate != nil && !t.DueDate.After(cutoff)
}
