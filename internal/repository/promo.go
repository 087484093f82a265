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

// CreatePromo registers a promo code. Codes are unique case-insensitively.
func (s *Store) CreatePromo(ctx context.Context, p model.PromoCode) error {
	const query = `
		INSERT INTO promo_codes (code, bonus_length, capacity, since, until)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT DO NOTHING
	`

	result, err := s.pool.Exec(ctx, query, p.Code, p.BonusLength, p.Capacity, p.Since, p.Until)
	if err != nil {
		if isUniqueViolation(err) {
			return ledger.ErrConflict
		}
		return classify(fmt.Errorf("failed to create promo code: %w", err))
	}
	if result.RowsAffected() == 0 {
		return ledger.ErrConflict
	}
	return nil
}

// ConsumePromo takes one activation from a code live on day.
// Returns ledger.ErrNotFound when the code is unknown, expired or exhausted.
func (t *Tx) ConsumePromo(ctx context.Context, code string, day time.Time) (*model.PromoCode, error) {
	const query = `
		UPDATE promo_codes
		SET capacity = capacity - 1
		WHERE lower(code) = lower($1)
			AND capacity > 0
			AND since <= $2::DATE
			AND (until IS NULL OR until >= $2::DATE)
		RETURNING code, bonus_length, capacity, since, until
	`

	var p model.PromoCode
	err := t.q.QueryRow(ctx, query, code, day).Scan(&p.Code, &p.BonusLength, &p.Capacity, &p.Since, &p.Until)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}
		return nil, fmt.Errorf("failed to consume promo code: %w", err)
	}
	return &p, nil
}

// InsertActivation records a promo activation.
// Returns ledger.ErrConflict when the user already activated the code.
func (t *Tx) InsertActivation(ctx context.Context, a model.PromoActivation) error {
	const query = `
		INSERT INTO promo_code_activations (uid, code, affected_chats, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING
	`

	result, err := t.q.Exec(ctx, query, a.UID, a.Code, a.AffectedChats, a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ledger.ErrConflict
		}
		return fmt.Errorf("failed to insert promo activation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ledger.ErrConflict
	}
	return nil
}
