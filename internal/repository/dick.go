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

const dickColumns = `uid, chat_id, length, bonus_attempts, created_at, updated_at`

// leaderboardOrder is the total order of a chat's top. Names compare bytewise
// so the order does not depend on the database collation.
const leaderboardOrder = `d.length DESC, d.updated_at DESC, u.name COLLATE "C" ASC, d.uid ASC`

func scanDick(row pgx.Row) (*model.Dick, error) {
	var d model.Dick
	err := row.Scan(&d.UID, &d.ChatID, &d.Length, &d.BonusAttempts, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Dick retrieves the record of a player in a chat.
// Returns ledger.ErrNotFound if it does not exist.
func (r *reader) Dick(ctx context.Context, uid, chatID int64) (*model.Dick, error) {
	query := `SELECT ` + dickColumns + ` FROM dicks WHERE uid = $1 AND chat_id = $2` + r.lockClause()

	d, err := scanDick(r.q.QueryRow(ctx, query, uid, chatID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}
		return nil, classify(fmt.Errorf("failed to get dick: %w", err))
	}
	return d, nil
}

// Top returns a slice of the chat's leaderboard with global positions.
func (r *reader) Top(ctx context.Context, chatID int64, offset, limit int) ([]model.TopEntry, error) {
	query := `
		SELECT ROW_NUMBER() OVER (ORDER BY ` + leaderboardOrder + `) AS position,
			d.uid, u.name, d.length, d.updated_at
		FROM dicks d
		JOIN users u ON u.uid = d.uid
		WHERE d.chat_id = $1
		ORDER BY position
		OFFSET $2 LIMIT $3
	`

	rows, err := r.q.Query(ctx, query, chatID, offset, limit)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to get top: %w", err))
	}
	defer rows.Close()

	var entries []model.TopEntry
	for rows.Next() {
		var e model.TopEntry
		if err := rows.Scan(&e.Position, &e.UID, &e.Name, &e.Length, &e.UpdatedAt); err != nil {
			return nil, classify(fmt.Errorf("failed to scan top entry: %w", err))
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("failed to iterate top: %w", err))
	}
	return entries, nil
}

// Position returns the 1-based leaderboard position of a player.
// Returns ledger.ErrNotFound if the player has no record in the chat.
func (r *reader) Position(ctx context.Context, uid, chatID int64) (int, error) {
	query := `
		SELECT position FROM (
			SELECT d.uid, ROW_NUMBER() OVER (ORDER BY ` + leaderboardOrder + `) AS position
			FROM dicks d
			JOIN users u ON u.uid = d.uid
			WHERE d.chat_id = $1
		) ranked
		WHERE uid = $2
	`

	var pos int
	if err := r.q.QueryRow(ctx, query, chatID, uid).Scan(&pos); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ledger.ErrNotFound
		}
		return 0, classify(fmt.Errorf("failed to get position: %w", err))
	}
	return pos, nil
}

// PersonalStats aggregates a player's records across all chats.
func (r *reader) PersonalStats(ctx context.Context, uid int64) (*model.PersonalStats, error) {
	const query = `
		SELECT COUNT(*), COALESCE(MAX(length), 0), COALESCE(SUM(length), 0)::BIGINT
		FROM dicks
		WHERE uid = $1
	`

	var s model.PersonalStats
	if err := r.q.QueryRow(ctx, query, uid).Scan(&s.Chats, &s.MaxLength, &s.TotalLength); err != nil {
		return nil, classify(fmt.Errorf("failed to get personal stats: %w", err))
	}
	return &s, nil
}

// EnsureDick creates the record with length 0 when absent and locks it.
// The boolean result reports whether the record was created.
func (t *Tx) EnsureDick(ctx context.Context, uid, chatID int64, at time.Time) (*model.Dick, bool, error) {
	const query = `
		INSERT INTO dicks (uid, chat_id, length, bonus_attempts, created_at, updated_at)
		VALUES ($1, $2, 0, 0, $3, $4)
		ON CONFLICT (uid, chat_id) DO NOTHING
		RETURNING ` + dickColumns

	d, err := scanDick(t.q.QueryRow(ctx, query, uid, chatID, at, model.NeverGrown))
	if err == nil {
		return d, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to create dick: %w", err)
	}

	d, err = t.Dick(ctx, uid, chatID)
	if err != nil {
		return nil, false, err
	}
	return d, false, nil
}

// ApplyGrowth applies the delta only when the record was not updated since
// the start of the day or a bonus attempt remains. The bonus path consumes
// one attempt. Returns ledger.ErrConflict when the guard rejects the write.
func (t *Tx) ApplyGrowth(ctx context.Context, w ledger.GrowthWrite) (*ledger.GrowthApplied, error) {
	const query = `
		UPDATE dicks d
		SET length = d.length + $3,
			bonus_attempts = CASE WHEN d.updated_at >= $5 THEN d.bonus_attempts - 1 ELSE d.bonus_attempts END,
			updated_at = $4
		FROM dicks old
		WHERE d.uid = $1 AND d.chat_id = $2
			AND old.uid = d.uid AND old.chat_id = d.chat_id
			AND (d.updated_at < $5 OR d.bonus_attempts > 0)
		RETURNING d.uid, d.chat_id, d.length, d.bonus_attempts, d.created_at, d.updated_at,
			old.updated_at >= $5 AS bonus
	`

	var a ledger.GrowthApplied
	err := t.q.QueryRow(ctx, query, w.UID, w.ChatID, w.Delta, w.At, w.DayStart).Scan(
		&a.Dick.UID,
		&a.Dick.ChatID,
		&a.Dick.Length,
		&a.Dick.BonusAttempts,
		&a.Dick.CreatedAt,
		&a.Dick.UpdatedAt,
		&a.Bonus,
	)
	if err == nil {
		return &a, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to apply growth: %w", err)
	}

	if _, err := t.Dick(ctx, w.UID, w.ChatID); err != nil {
		return nil, err
	}
	return nil, ledger.ErrConflict
}

// AwardDick changes the length unconditionally and tops up bonus attempts.
func (t *Tx) AwardDick(ctx context.Context, w ledger.AwardWrite) (*model.Dick, error) {
	const query = `
		UPDATE dicks
		SET length = length + $3, bonus_attempts = bonus_attempts + $4, updated_at = $5
		WHERE uid = $1 AND chat_id = $2
		RETURNING ` + dickColumns

	d, err := scanDick(t.q.QueryRow(ctx, query, w.UID, w.ChatID, w.Delta, w.BonusAttempts, w.At))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}
		return nil, fmt.Errorf("failed to award dick: %w", err)
	}
	return d, nil
}

// ResetDick sets the length to zero and grants a bonus attempt without
// touching updated_at.
func (t *Tx) ResetDick(ctx context.Context, uid, chatID int64) (*model.Dick, error) {
	const query = `
		UPDATE dicks SET length = 0, bonus_attempts = bonus_attempts + 1
		WHERE uid = $1 AND chat_id = $2
		RETURNING ` + dickColumns

	d, err := scanDick(t.q.QueryRow(ctx, query, uid, chatID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}
		return nil, fmt.Errorf("failed to reset dick: %w", err)
	}
	return d, nil
}

// GrowAllDicks adds delta and bonus attempts to every record of a player.
func (t *Tx) GrowAllDicks(ctx context.Context, uid, delta int64, bonusAttempts int) (int, error) {
	const query = `
		UPDATE dicks
		SET length = length + $2, bonus_attempts = bonus_attempts + $3
		WHERE uid = $1
	`

	result, err := t.q.Exec(ctx, query, uid, delta, bonusAttempts)
	if err != nil {
		return 0, fmt.Errorf("failed to grow dicks: %w", err)
	}
	return int(result.RowsAffected()), nil
}

// Candidates returns the chat's players updated after since, in leaderboard order.
func (t *Tx) Candidates(ctx context.Context, chatID int64, since time.Time) ([]model.Candidate, error) {
	const query = `
		SELECT d.uid, u.name, d.length, d.updated_at
		FROM dicks d
		JOIN users u ON u.uid = d.uid
		WHERE d.chat_id = $1 AND d.updated_at > $2
		ORDER BY ` + leaderboardOrder

	rows, err := t.q.Query(ctx, query, chatID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get candidates: %w", err)
	}
	defer rows.Close()

	var candidates []model.Candidate
	for rows.Next() {
		var c model.Candidate
		if err := rows.Scan(&c.UID, &c.Name, &c.Length, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate candidates: %w", err)
	}
	return candidates, nil
}
