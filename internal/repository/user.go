package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"telegram-grower-bot/internal/model"
)

// UpsertUser creates the user or refreshes their display name.
func (t *Tx) UpsertUser(ctx context.Context, uid int64, name string, at time.Time) (*model.User, error) {
	const query = `
		INSERT INTO users (uid, name, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (uid) DO UPDATE
		SET name = EXCLUDED.name, updated_at = EXCLUDED.updated_at
		WHERE users.name <> EXCLUDED.name
		RETURNING uid, name, created_at
	`

	var user model.User
	err := t.q.QueryRow(ctx, query, uid, name, at).Scan(&user.UID, &user.Name, &user.CreatedAt)
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	// name unchanged, nothing was written
	const selectQuery = `SELECT uid, name, created_at FROM users WHERE uid = $1`
	if err := t.q.QueryRow(ctx, selectQuery, uid).Scan(&user.UID, &user.Name, &user.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}
