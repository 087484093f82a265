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

const loanColumns = `id, uid, chat_id, principal, debt, payout_ratio, created_at, repaid_at`

func scanLoan(row pgx.Row) (*model.Loan, error) {
	var l model.Loan
	err := row.Scan(&l.ID, &l.UID, &l.ChatID, &l.Principal, &l.Debt, &l.PayoutRatio, &l.CreatedAt, &l.RepaidAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// ActiveLoans returns the player's unrepaid loans, oldest first.
func (r *reader) ActiveLoans(ctx context.Context, uid, chatID int64) ([]model.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE uid = $1 AND chat_id = $2 AND repaid_at IS NULL
		ORDER BY created_at, id` + r.lockClause()

	rows, err := r.q.Query(ctx, query, uid, chatID)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to get active loans: %w", err))
	}
	defer rows.Close()

	var loans []model.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, classify(fmt.Errorf("failed to scan loan: %w", err))
		}
		loans = append(loans, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("failed to iterate loans: %w", err))
	}
	return loans, nil
}

// CreateLoan inserts a loan. A loan with zero debt must carry RepaidAt.
func (t *Tx) CreateLoan(ctx context.Context, loan model.Loan) (*model.Loan, error) {
	const query = `
		INSERT INTO loans (uid, chat_id, principal, debt, payout_ratio, created_at, repaid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + loanColumns

	l, err := scanLoan(t.q.QueryRow(ctx, query,
		loan.UID, loan.ChatID, loan.Principal, loan.Debt, loan.PayoutRatio, loan.CreatedAt, loan.RepaidAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create loan: %w", err)
	}
	return l, nil
}

// RepayLoan lowers the debt by amount. The write that brings the debt to
// zero also sets repaid_at. Returns ledger.ErrConflict when the loan is
// already repaid or amount exceeds the debt.
func (t *Tx) RepayLoan(ctx context.Context, loanID, amount int64, at time.Time) (*model.Loan, error) {
	const query = `
		UPDATE loans
		SET debt = debt - $2,
			repaid_at = CASE WHEN debt = $2 THEN $3::TIMESTAMPTZ ELSE NULL END
		WHERE id = $1 AND repaid_at IS NULL AND $2 > 0 AND debt >= $2
		RETURNING ` + loanColumns

	l, err := scanLoan(t.q.QueryRow(ctx, query, loanID, amount, at))
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to repay loan: %w", err)
	}

	var exists bool
	if err := t.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM loans WHERE id = $1)`, loanID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check loan: %w", err)
	}
	if !exists {
		return nil, ledger.ErrNotFound
	}
	return nil, ledger.ErrConflict
}
