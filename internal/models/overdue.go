package models

import "time"

// DueDebt is one debt obligation picked up by the due-debt detector, with
// enough of its user and customer to notify about it.
type DueDebt struct {
	TransactionID  string
	UserID         string
	CustomerID     string
	CustomerName   string
	Amount         int64
	DueDate        time.Time
	PushToken      *string
	TelegramChatID *int64
}

// OverdueItem is one customer line of a summary. Amount is the customer's net
// balance, not the amount of a single debt.
type OverdueItem struct {
	CustomerName  string
	CustomerPhone *string
	Amount        int64
	DueDate       time.Time
}
