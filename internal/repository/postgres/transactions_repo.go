package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/qarzdaftar/backend/internal/models"
)

type transactionsRepo struct{ pool *pgxpool.Pool }

func (r *transactionsRepo) ListByCustomer(ctx context.Context, customerID string) ([]models.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, customer_id, kind, amount, due_date, note, created_at
		   FROM transactions
		  WHERE customer_id=$1
		  ORDER BY created_at`,
		customerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var (
			tx   models.Transaction
			kind string
		)
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.CustomerID, &kind, &tx.Amount, &tx.DueDate, &tx.Note, &tx.CreatedAt); err != nil {
			return nil, err
		}
		tx.Kind = models.TransactionKind(kind)
		out = append(out, tx)
	}
	return out, rows.Err()
}

// ListDueUnnotified is a single pass over all users when userID is empty.
func (r *transactionsRepo) ListDueUnnotified(ctx context.Context, userID string, cutoff time.Time) ([]models.DueDebt, error) {
	var scope *string
	if userID != "" {
		scope = &userID
	}
	rows, err := r.pool.Query(ctx, `
		SELECT t.id, t.user_id, t.customer_id, c.name, t.amount, t.due_date,
		       u.push_token, u.telegram_chat_id
		  FROM transactions t
		  JOIN customers c ON c.id = t.customer_id
		  JOIN users u ON u.id = t.user_id
		 WHERE t.kind = 'DEBT'
		   AND t.due_date IS NOT NULL
		   AND t.due_date <= $1
		   AND ($2::uuid IS NULL OR t.user_id = $2::uuid)
		   AND NOT EXISTS (
		        SELECT 1 FROM notifications n
		         WHERE n.transaction_id = t.id
		           AND n.type = $3)
		 ORDER BY t.user_id, t.due_date, t.id`,
		cutoff, scope, models.NotificationPaymentDue.String(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DueDebt
	for rows.Next() {
		var d models.DueDebt
		if err := rows.Scan(
			&d.TransactionID, &d.UserID, &d.CustomerID, &d.CustomerName, &d.Amount, &d.DueDate,
			&d.PushToken, &d.TelegramChatID,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
