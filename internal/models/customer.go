package models

import "time"

type Customer struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone,omitempty"`
	Note      *string   `json:"note,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// CustomerLedger is a customer together with its full transaction history,
// oldest first.
type CustomerLedger struct {
	Customer     Customer
	Transactions []Transaction
}

func (l CustomerLedger) Balance() int64 { return NetBalance(l.Transactions) }

// EarliestDueBy returns the earliest due date among DEBT transactions due on
// or before cutoff.
func (l CustomerLedger) EarliestDueBy(cutoff time.Time) (time.Time, bool) {
	var (
		earliest time.Time
		found    bool
	)
	for _, tx := range l.Transactions {
		if !tx.IsDueBy(cutoff) {
			continue
		}
		if !found || tx.DueDate.Before(earliest) {
			earliest = *tx.DueDate
			found = true
		}
	}
	return earliest, found
}
