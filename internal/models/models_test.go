package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func debt(amount int64, due *time.Time) Transaction {
	return Transaction{Kind: TxnDebt, Amount: amount, DueDate: due}
}

func payment(amount int64) Transaction {
	return Transaction{Kind: TxnPayment, Amount: amount}
}

func TestNetBalance(t *testing.T) {
	tests := []struct {
		name string
		txs  []Transaction
		want int64
	}{
		{name: "no transactions", want: 0},
		{name: "single debt", txs: []Transaction{debt(500_000, nil)}, want: 500_000},
		{name: "partially repaid", txs: []Transaction{debt(500_000, nil), payment(200_000)}, want: 300_000},
		{name: "settled", txs: []Transaction{debt(100, nil), payment(100)}, want: 0},
		{name: "overpaid keeps credit", txs: []Transaction{debt(100, nil), payment(250)}, want: -150},
		{name: "payment only", txs: []Transaction{payment(40)}, want: -40},
		{name: "many debts", txs: []Transaction{debt(1, nil), debt(2, nil), debt(3, nil), payment(1)}, want: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NetBalance(tt.txs))
		})
	}
}

func TestTransactionIsDueBy(t *testing.T) {
	cutoff := time.Date(2026, 3, 10, 23, 59, 59, 0, time.UTC)
	today := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)

	assert.True(t, debt(1, &today).IsDueBy(cutoff))
	assert.True(t, debt(1, &cutoff).IsDueBy(cutoff))
	assert.False(t, debt(1, &tomorrow).IsDueBy(cutoff))
	assert.False(t, debt(1, nil).IsDueBy(cutoff))
	assert.False(t, Transaction{Kind: TxnPayment, Amount: 1, DueDate: &today}.IsDueBy(cutoff))
}

func TestTransactionValidate(t *testing.T) {
	due := time.Now()
	assert.NoError(t, debt(10, &due).Validate())
	assert.Error(t, debt(0, nil).Validate())
	assert.Error(t, Transaction{Kind: "LOAN", Amount: 1}.Validate())
	assert.Error(t, Transaction{Kind: TxnPayment, Amount: 1, DueDate: &due}.Validate())
}

func TestEarliestDueBy(t *testing.T) {
	cutoff := time.Date(2026, 3, 10, 23, 59, 59, 0, time.UTC)
	tenAgo := cutoff.AddDate(0, 0, -10)
	twoAgo := cutoff.AddDate(0, 0, -2)
	future := cutoff.AddDate(0, 0, 5)

	l := CustomerLedger{Transactions: []Transaction{debt(1, &twoAgo), debt(1, &future), debt(1, &tenAgo), payment(1)}}
	got, ok := l.EarliestDueBy(cutoff)
	require.True(t, ok)
	assert.Equal(t, tenAgo, got)

	_, ok = CustomerLedger{Transactions: []Transaction{debt(1, &future)}}.EarliestDueBy(cutoff)
	assert.False(t, ok)
}

func TestNotificationTypeText(t *testing.T) {
	b, err := json.Marshal(struct {
		Type NotificationType `json:"type"`
	}{NotificationPaymentDue})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"PAYMENT_DUE"}`, string(b))

	typ, err := ParseNotificationType("PAYMENT_DUE")
	require.NoError(t, err)
	assert.Equal(t, NotificationPaymentDue, typ)

	_, err = ParseNotificationType("SOMETHING")
	assert.Error(t, err)
	assert.Equal(t, "UNKNOWN", NotificationUnknown.String())
}

func TestJSONKeysAreCamelCase(t *testing.T) {
	due := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	values := []any{
		Transaction{ID: "t1", UserID: "u1", CustomerID: "c1", Kind: TxnDebt, Amount: 1, DueDate: &due},
		Customer{ID: "c1", UserID: "u1", Name: "Aziz"},
		User{ID: "u1", Name: "Dilshod"},
		NotificationView{Notification: Notification{ID: "n1", Type: NotificationPaymentDue}},
	}
	for _, v := range values {
		b, err := json.Marshal(v)
		require.NoError(t, err)

		var fields map[string]any
		require.NoError(t, json.Unmarshal(b, &fields))
		for k := range fields {
			assert.NotContains(t, k, "_", "%T has key %q", v, k)
		}
	}

	b, err := json.Marshal(values[0])
	require.NoError(t, err)
	assert.Contains(t, string(b), `"expectedReturnDate"`)
	assert.Contains(t, string(b), `"customerId"`)
}
