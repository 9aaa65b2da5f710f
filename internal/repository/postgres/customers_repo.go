package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/qarzdaftar/backend/internal/models"
)

type customersRepo struct{ pool *pgxpool.Pool }

func (r *customersRepo) Get(ctx context.Context, userID, id string) (models.Customer, error) {
	var c models.Customer
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, name, phone, note, created_at
		  FROM customers
		 WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&c.ID, &c.UserID, &c.Name, &c.Phone, &c.Note, &c.CreatedAt)
	return c, notFound(err)
}

// ListOverdue loads overdue customers and their whole history in one query
// and groups the rows per customer.
func (r *customersRepo) ListOverdue(ctx context.Context, userID string, cutoff time.Time) ([]models.CustomerLedger, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.user_id, c.name, c.phone, c.note, c.created_at,
		       t.id, t.kind, t.amount, t.due_date, t.created_at
		  FROM customers c
		  JOIN transactions t ON t.customer_id = c.id
		 WHERE c.user_id = $1
		   AND EXISTS (
		        SELECT 1 FROM transactions d
		         WHERE d.customer_id = c.id
		           AND d.kind = 'DEBT'
		           AND d.due_date IS NOT NULL
		           AND d.due_date <= $2)
		 ORDER BY c.name, c.id, t.created_at`,
		userID, cutoff,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CustomerLedger
	for rows.Next() {
		var (
			c    models.Customer
			tx   models.Transaction
			kind string
		)
		if err := rows.Scan(
			&c.ID, &c.UserID, &c.Name, &c.Phone, &c.Note, &c.CreatedAt,
			&tx.ID, &kind, &tx.Amount, &tx.DueDate, &tx.CreatedAt,
		); err != nil {
			return nil, err
		}
		tx.Kind = models.TransactionKind(kind)
		tx.UserID = c.UserID
		tx.CustomerID = c.ID

		if n := len(out); n == 0 || out[n-1].Customer.ID != c.ID {
			out = append(out, models.CustomerLedger{Customer: c})
		}
		last := &out[len(out)-1]
		last.Transactions = append(last.Transactions, tx)
	}
	return out, rows.Err()
}
