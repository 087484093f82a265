package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"telegram-grower-bot/internal/ledger"
	"telegram-grower-bot/internal/model"
)

// Champion retrieves the champion of a chat for a calendar day.
// Returns ledger.ErrNotFound if none was chosen.
func (r *reader) Champion(ctx context.Context, chatID int64, day time.Time) (*model.Champion, error) {
	const query = `
		SELECT c.chat_id, c.day, c.winner_uid, u.name, c.bonus, c.created_at
		FROM champions c
		JOIN users u ON u.uid = c.winner_uid
		WHERE c.chat_id = $1 AND c.day = $2
	`

	var c model.Champion
	err := r.q.QueryRow(ctx, query, chatID, day).Scan(
		&c.ChatID,
		&c.Day,
		&c.WinnerUID,
		&c.WinnerName,
		&c.Bonus,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}
		return nil, classify(fmt.Errorf("failed to get champion: %w", err))
	}
	return &c, nil
}

// InsertChampion records the champion of the day.
// Returns ledger.ErrConflict when the chat already has one for that day.
func (t *Tx) InsertChampion(ctx context.Context, c model.Champion) error {
	const query = `
		INSERT INTO champions (chat_id, day, winner_uid, bonus, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT DO NOTHING
	`

	result, err := t.q.Exec(ctx, query, c.ChatID, c.Day, c.WinnerUID, c.Bonus, c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ledger.ErrConflict
		}
		return fmt.Errorf("failed to insert champion: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ledger.ErrConflict
	}
	return nil
}
