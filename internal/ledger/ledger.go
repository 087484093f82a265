// Package ledger defines the storage contract the growth economy engine runs against.
//
// A Store offers point lookups, ordered range scans for the leaderboard and
// transactions in which conditional writes either apply fully or not at all.
// Conditional writes whose precondition is already satisfied by another
// writer fail with ErrConflict; that signal is an expected outcome, not a fault.
package ledger

import (
	"context"
	"errors"
	"time"

	"telegram-grower-bot/internal/model"
)

// Contract errors.
var (
	// ErrConflict is returned when a conditional write or uniqueness
	// constraint rejects the mutation because a concurrent writer got there first.
	ErrConflict = errors.New("ledger: conditional write conflict")

	// ErrNotFound is returned by point lookups that match no record.
	ErrNotFound = errors.New("ledger: record not found")

	// ErrUnavailable marks infrastructure failures that are safe to retry.
	ErrUnavailable = errors.New("ledger: store unavailable")
)

// IsTransient reports whether err is a retryable infrastructure failure
// (timeout, cancellation or an unavailable store) rather than a state change.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

// GrowthWrite is the conditional growth mutation of a dick.
// It applies only when the record was not updated since DayStart, or when a
// bonus attempt remains; the bonus path consumes one attempt.
type GrowthWrite struct {
	UID      int64
	ChatID   int64
	Delta    int64
	At       time.Time
	DayStart time.Time
}

// GrowthApplied is the result of a successful GrowthWrite.
type GrowthApplied struct {
	Dick  model.Dick
	Bonus bool // a bonus attempt was consumed
}

// AwardWrite is an unconditional value change that also tops up bonus attempts.
type AwardWrite struct {
	UID           int64
	ChatID        int64
	Delta         int64
	BonusAttempts int
	At            time.Time
}

// Reader is the read side of the contract.
type Reader interface {
	// Dick returns the record of a player in a chat. Inside a transaction the row is locked.
	Dick(ctx context.Context, uid, chatID int64) (*model.Dick, error)
	// ActiveLoans returns unrepaid loans oldest first. Inside a transaction the rows are locked.
	ActiveLoans(ctx context.Context, uid, chatID int64) ([]model.Loan, error)
	// Champion returns the champion record of a chat for a calendar day.
	Champion(ctx context.Context, chatID int64, day time.Time) (*model.Champion, error)
	// Top returns leaderboard rows ordered by length desc, updated_at desc, name, uid.
	Top(ctx context.Context, chatID int64, offset, limit int) ([]model.TopEntry, error)
	// Position returns the 1-based leaderboard position of a player.
	Position(ctx context.Context, uid, chatID int64) (int, error)
	// PersonalStats aggregates a player's records across all chats.
	PersonalStats(ctx context.Context, uid int64) (*model.PersonalStats, error)
}

// Tx is the write side of the contract, valid only inside Store.InTx.
type Tx interface {
	Reader

	UpsertUser(ctx context.Context, uid int64, name string, at time.Time) (*model.User, error)
	// EnsureDick creates the record with length 0 when absent and locks it.
	EnsureDick(ctx context.Context, uid, chatID int64, at time.Time) (*model.Dick, bool, error)
	// ApplyGrowth performs the once-per-day guarded write. Returns ErrConflict when blocked.
	ApplyGrowth(ctx context.Context, w GrowthWrite) (*GrowthApplied, error)
	// AwardDick changes the length unconditionally. Returns ErrNotFound when the record is absent.
	AwardDick(ctx context.Context, w AwardWrite) (*model.Dick, error)
	// ResetDick sets the length to zero and grants one bonus attempt.
	// updated_at is left alone.
	ResetDick(ctx context.Context, uid, chatID int64) (*model.Dick, error)

	CreateLoan(ctx context.Context, loan model.Loan) (*model.Loan, error)
	// RepayLoan lowers the debt by amount and sets repaid_at when it reaches zero.
	// Returns ErrConflict when the loan is repaid or amount exceeds the debt.
	RepayLoan(ctx context.Context, loanID, amount int64, at time.Time) (*model.Loan, error)

	// Candidates returns the players of a chat updated after since.
	Candidates(ctx context.Context, chatID int64, since time.Time) ([]model.Candidate, error)
	// InsertChampion writes the daily champion. Returns ErrConflict when one exists.
	InsertChampion(ctx context.Context, c model.Champion) error

	// ConsumePromo decrements the capacity of a code live on day. Returns ErrNotFound otherwise.
	ConsumePromo(ctx context.Context, code string, day time.Time) (*model.PromoCode, error)
	// GrowAllDicks adds delta and bonus attempts to every record of a player
	// and returns the number of records affected.
	GrowAllDicks(ctx context.Context, uid, delta int64, bonusAttempts int) (int, error)
	// InsertActivation records a promo activation. Returns ErrConflict on a repeat.
	InsertActivation(ctx context.Context, a model.PromoActivation) error
}

// Store is a ledger backend.
type Store interface {
	Reader

	// InTx runs fn in one atomic transaction. Any error returned by fn rolls
	// back every write made through tx and is returned unchanged.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// CreatePromo registers a promo code. Returns ErrConflict when it exists.
	CreatePromo(ctx context.Context, p model.PromoCode) error
}
