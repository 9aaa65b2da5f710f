package models

// NetBalance is sum(DEBT) - sum(PAYMENT). Positive means the customer owes
// money; a negative result is a credit and is kept as is.
func NetBalance(txs []Transaction) int64 {
	var sum int64
	for _, tx := range txs {
		switch tx.Kind {
		case TxnDebt:
			sum += tx.Amount
		case TxnPayment:
			sum -= tx.Amount
		}
	}
	return sum
}
