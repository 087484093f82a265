package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied in order; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		uid BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS dicks (
		uid BIGINT NOT NULL REFERENCES users(uid),
		chat_id BIGINT NOT NULL,
		length BIGINT NOT NULL DEFAULT 0,
		bonus_attempts INTEGER NOT NULL DEFAULT 0 CHECK (bonus_attempts >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (uid, chat_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_dicks_chat_top ON dicks (chat_id, length DESC, updated_at DESC)`,
	`CREATE TABLE IF NOT EXISTS loans (
		id BIGSERIAL PRIMARY KEY,
		uid BIGINT NOT NULL,
		chat_id BIGINT NOT NULL,
		principal BIGINT NOT NULL CHECK (principal >= 0),
		debt BIGINT NOT NULL CHECK (debt >= 0),
		payout_ratio DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		repaid_at TIMESTAMPTZ,
		FOREIGN KEY (uid, chat_id) REFERENCES dicks (uid, chat_id),
		CHECK ((debt = 0) = (repaid_at IS NOT NULL))
	)`,
	`CREATE INDEX IF NOT EXISTS idx_loans_active ON loans (uid, chat_id, created_at) WHERE repaid_at IS NULL`,
	`CREATE TABLE IF NOT EXISTS champions (
		chat_id BIGINT NOT NULL,
		day DATE NOT NULL,
		winner_uid BIGINT NOT NULL REFERENCES users(uid),
		bonus BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (chat_id, day)
	)`,
	`CREATE TABLE IF NOT EXISTS promo_codes (
		code TEXT NOT NULL,
		bonus_length BIGINT NOT NULL,
		capacity INTEGER NOT NULL CHECK (capacity >= 0),
		since DATE NOT NULL DEFAULT CURRENT_DATE,
		until DATE
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_promo_codes_code ON promo_codes (lower(code))`,
	`CREATE TABLE IF NOT EXISTS promo_code_activations (
		uid BIGINT NOT NULL REFERENCES users(uid),
		code TEXT NOT NULL,
		affected_chats INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_promo_activations_uid_code ON promo_code_activations (uid, lower(code))`,
}

// Migrate applies the database schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
