package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-grower-bot/internal/game"
	"telegram-grower-bot/internal/game/increment"
	"telegram-grower-bot/internal/game/perk"
	"telegram-grower-bot/internal/ledger"
	"telegram-grower-bot/internal/ledger/memstore"
	"telegram-grower-bot/internal/model"
)

const testChat int64 = -100

var (
	today     = time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	noon      = today.Add(12 * time.Hour)
	yesterday = today.AddDate(0, 0, -1).Add(12 * time.Hour)
	tomorrow  = today.AddDate(0, 0, 1).Add(12 * time.Hour)

	alice = Player{UID: 1, Name: "alice"}
	bob   = Player{UID: 2, Name: "bob"}
)

// testingT is satisfied by both *testing.T and *rapid.T.
type testingT interface {
	require.TestingT
	Helper()
}

// fixedSource always draws the same values.
type fixedSource struct {
	n int
	f float64
}

func (s fixedSource) IntN(n int) int    { return s.n % n }
func (s fixedSource) Float64() float64 { return s.f }

func newPipeline(t testingT, coef float64) *game.Pipeline {
	t.Helper()
	p, err := game.NewPipeline(perk.Default(coef)...)
	require.NoError(t, err)
	return p
}

func newGrowth(t testingT, store ledger.Store, lo, hi int64, draw int) *GrowthService {
	t.Helper()
	gen := increment.New(increment.Config{Min: lo, Max: hi}, fixedSource{n: draw}, time.UTC)
	return NewGrowthService(store, gen, newPipeline(t, 0), time.UTC, true)
}

// seed creates a player with the given length, last grown at updatedAt.
func seed(t testingT, store ledger.Store, p Player, length int64, updatedAt time.Time) {
	t.Helper()
	err := store.InTx(context.Background(), func(ctx context.Context, tx ledger.Tx) error {
		if _, err := tx.UpsertUser(ctx, p.UID, p.Name, updatedAt); err != nil {
			return err
		}
		if _, _, err := tx.EnsureDick(ctx, p.UID, testChat, updatedAt); err != nil {
			return err
		}
		_, err := tx.ApplyGrowth(ctx, ledger.GrowthWrite{
			UID: p.UID, ChatID: testChat, Delta: length, At: updatedAt, DayStart: updatedAt,
		})
		return err
	})
	require.NoError(t, err)
}

func seedLoan(t testingT, store ledger.Store, uid int64, debt int64, ratio float64, at time.Time) *model.Loan {
	t.Helper()
	var loan *model.Loan
	err := store.InTx(context.Background(), func(ctx context.Context, tx ledger.Tx) error {
		var err error
		loan, err = tx.CreateLoan(ctx, model.Loan{
			UID: uid, ChatID: testChat, Principal: debt, Debt: debt, PayoutRatio: ratio, CreatedAt: at,
		})
		return err
	})
	require.NoError(t, err)
	return loan
}

func lengthOf(t testingT, store ledger.Store, uid int64) int64 {
	t.Helper()
	d, err := store.Dick(context.Background(), uid, testChat)
	require.NoError(t, err)
	return d.Length
}

// unavailableStore fails every transaction as unreachable.
type unavailableStore struct {
	ledger.Store
}

func (unavailableStore) InTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	return ledger.ErrUnavailable
}

// brokenStore lets fn run and then fails with a non-transient error.
type brokenStore struct {
	ledger.Store
}

var errBroken = errors.New("disk on fire")

func (brokenStore) InTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	return errBroken
}

func TestStoreFailureKeepsCause(t *testing.T) {
	err := storeFailure("grow", ledger.ErrUnavailable)
	assert.ErrorIs(t, err, ledger.ErrUnavailable)
	assert.True(t, ledger.IsTransient(err))

	err = storeFailure("grow", errBroken)
	assert.ErrorIs(t, err, errBroken)
	assert.False(t, ledger.IsTransient(err))
}

func TestInvariantDoesNotWrapCause(t *testing.T) {
	err := invariant("grow", "loan %d rejected payment: %v", 7, ledger.ErrConflict)
	assert.ErrorIs(t, err, ErrInvariant)
	assert.NotErrorIs(t, err, ledger.ErrConflict)
	assert.Contains(t, err.Error(), "loan 7")
}

func TestLoadLocation(t *testing.T) {
	assert.Equal(t, time.UTC, loadLocation(nil))
	loc := time.FixedZone("MSK", 3*3600)
	assert.Equal(t, loc, loadLocation(loc))
}

func TestRepayInvariantOnOverpayment(t *testing.T) {
	store := memstore.New()
	seed(t, store, alice, -5, yesterday)
	loan := seedLoan(t, store, alice.UID, 3, 0.5, yesterday)

	err := store.InTx(context.Background(), func(ctx context.Context, tx ledger.Tx) error {
		_, _, err := repay(ctx, tx, "grow", game.Change{
			Payments: []game.Payment{{LoanID: loan.ID, Amount: 4}},
		}, noon)
		return err
	})
	assert.ErrorIs(t, err, ErrInvariant)

	loans, err := store.ActiveLoans(context.Background(), alice.UID, testChat)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, int64(3), loans[0].Debt)
}
