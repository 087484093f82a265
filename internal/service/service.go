// Package service provides the growth economy operations.
//
// Every operation runs as one ledger transaction. Conflicts raised by the
// ledger's guarded writes are expected outcomes and never surface as errors.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"telegram-grower-bot/internal/game"
	"telegram-grower-bot/internal/ledger"
)

// Common errors for service operations.
var (
	ErrNotOwner    = errors.New("only the requester can answer this offer")
	ErrInvalidPage = errors.New("invalid page")
	ErrPromoExists = errors.New("promo code already exists")
	ErrInvariant   = errors.New("ledger invariant violated")
)

// Player identifies the user issuing a command.
type Player struct {
	UID  int64
	Name string
}

// invariant builds and logs an ErrInvariant. The cause is formatted, not
// wrapped, so contract errors inside it never match errors.Is checks.
func invariant(op string, format string, args ...any) error {
	err := fmt.Errorf("%w: %s: %s", ErrInvariant, op, fmt.Sprintf(format, args...))
	log.Error().Bool("invariant", true).Str("op", op).Err(err).Msg("Ledger invariant violated")
	return err
}

// storeFailure wraps an infrastructure error for the caller and logs it.
func storeFailure(op string, err error) error {
	if ledger.IsTransient(err) {
		log.Warn().Err(err).Str("op", op).Msg("Ledger unavailable")
	} else if !errors.Is(err, ErrInvariant) {
		log.Error().Err(err).Str("op", op).Msg("Ledger operation failed")
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// Settlement is the effect of a change that went through the perk pipeline.
type Settlement struct {
	Contributions []game.Contribution
	Delta         int64
	Length        int64
	DebtRepaid    int64
	LoansRetired  int
}

// loadLocation returns loc, or UTC when loc is nil.
func loadLocation(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}

// repay applies the loan payments of a change inside tx.
func repay(ctx context.Context, tx ledger.Tx, op string, change game.Change, at time.Time) (paid int64, retired int, err error) {
	for _, p := range change.Payments {
		loan, err := tx.RepayLoan(ctx, p.LoanID, p.Amount, at)
		if errors.Is(err, ledger.ErrConflict) || errors.Is(err, ledger.ErrNotFound) {
			return 0, 0, invariant(op, "loan %d rejected payment of %d: %v", p.LoanID, p.Amount, err)
		}
		if err != nil {
			return 0, 0, err
		}
		if loan.Debt < 0 {
			return 0, 0, invariant(op, "loan %d debt went negative", loan.ID)
		}
		paid += p.Amount
		if !loan.Active() {
			retired++
		}
	}
	return paid, retired, nil
}
