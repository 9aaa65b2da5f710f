package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/qarzdaftar/backend/internal/models"
	"github.com/qarzdaftar/backend/internal/repository"
)

type notificationsRepo struct{ pool *pgxpool.Pool }

// InsertSkipDuplicates queues one conditional insert per notification in a
// single batch. ON CONFLICT against the (type, transaction_id) unique key is
// what keeps a transaction from being notified twice.
func (r *notificationsRepo) InsertSkipDuplicates(ctx context.Context, ns []models.Notification) ([]models.Notification, error) {
	if len(ns) == 0 {
		return nil, nil
	}
	const q = `
INSERT INTO notifications (id, user_id, customer_id, transaction_id, type, title, message)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (type, transaction_id) DO NOTHING
RETURNING created_at;
`
	b := &pgx.Batch{}
	for i := range ns {
		if ns[i].ID == "" {
			ns[i].ID = uuid.NewString()
		}
		n := ns[i]
		b.Queue(q, n.ID, n.UserID, n.CustomerID, n.TransactionID, n.Type.String(), n.Title, n.Message)
	}

	br := r.pool.SendBatch(ctx, b)
	defer br.Close()

	var inserted []models.Notification
	for _, n := range ns {
		err := br.QueryRow().Scan(&n.CreatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			continue // already notified
		}
		if err != nil {
			return nil, fmt.Errorf("insert notification: %w", err)
		}
		inserted = append(inserted, n)
	}
	return inserted, nil
}

func (r *notificationsRepo) ListByUser(ctx context.Context, userID string, limit int) ([]models.NotificationView, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT n.id, n.user_id, n.customer_id, n.transaction_id, n.type, n.title, n.message,
		       n.is_read, n.created_at, c.name, c.phone
		  FROM notifications n
		  LEFT JOIN customers c ON c.id = n.customer_id
		 WHERE n.user_id = $1
		 ORDER BY n.created_at DESC, n.id DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.NotificationView
	for rows.Next() {
		var (
			v   models.NotificationView
			typ string
		)
		if err := rows.Scan(
			&v.ID, &v.UserID, &v.CustomerID, &v.TransactionID, &typ, &v.Title, &v.Message,
			&v.IsRead, &v.CreatedAt, &v.CustomerName, &v.CustomerPhone,
		); err != nil {
			return nil, err
		}
		if v.Type, err = models.ParseNotificationType(typ); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *notificationsRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM notifications WHERE user_id=$1 AND NOT is_read`, userID,
	).Scan(&n)
	return n, err
}

// MarkRead matches on id and owner together; a foreign id looks missing.
func (r *notificationsRepo) MarkRead(ctx context.Context, userID, id string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE notifications SET is_read=true WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *notificationsRepo) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE notifications SET is_read=true WHERE user_id=$1 AND NOT is_read`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *notificationsRepo) Delete(ctx context.Context, userID, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *notificationsRepo) DeleteAll(ctx context.Context, userID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE user_id=$1`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
