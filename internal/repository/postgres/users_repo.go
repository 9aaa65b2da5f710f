// internal/repository/postgres/users_repo.go
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/qarzdaftar/backend/internal/models"
	"github.com/qarzdaftar/backend/internal/repository"
)

type usersRepo struct{ pool *pgxpool.Pool }

const userColumns = `id, phone, name, push_token, telegram_chat_id, created_at, updated_at`

func scanUser(row pgx.Row) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Phone, &u.Name, &u.PushToken, &u.TelegramChatID, &u.CreatedAt, &u.UpdatedAt)
	return u, notFound(err)
}

func (r *usersRepo) GetByID(ctx context.Context, id string) (models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

func (r *usersRepo) GetByTelegramChatID(ctx context.Context, chatID int64) (models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_chat_id=$1`, chatID))
}

func (r *usersRepo) SetPushToken(ctx context.Context, userID string, token *string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET push_token=$2, updated_at=now() WHERE id=$1`, userID, token)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *usersRepo) LinkTelegram(ctx context.Context, userID string, chatID int64) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE users SET telegram_chat_id=NULL, updated_at=now() WHERE telegram_chat_id=$1 AND id<>$2`,
			chatID, userID,
		); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx,
			`UPDATE users SET telegram_chat_id=$2, updated_at=now() WHERE id=$1`, userID, chatID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return repository.ErrNotFound
		}
		return nil
	})
}

func (r *usersRepo) UnlinkTelegram(ctx context.Context, userID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET telegram_chat_id=NULL, updated_at=now() WHERE id=$1`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
