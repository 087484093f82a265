// Package ledgertest holds the behavioural test suite every ledger.Store
// implementation must pass.
package ledgertest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-grower-bot/internal/ledger"
	"telegram-grower-bot/internal/model"
)

// Factory returns an empty store for one subtest.
type Factory func(t *testing.T) ledger.Store

var (
	dayStart = time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	morning  = dayStart.Add(9 * time.Hour)
	evening  = dayStart.Add(20 * time.Hour)
	tomorrow = dayStart.AddDate(0, 0, 1)

	errAbort = errors.New("abort")
)

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("GrowthGuard", func(t *testing.T) { testGrowthGuard(t, newStore(t)) })
	t.Run("Rollback", func(t *testing.T) { testRollback(t, newStore(t)) })
	t.Run("Loans", func(t *testing.T) { testLoans(t, newStore(t)) })
	t.Run("Reset", func(t *testing.T) { testReset(t, newStore(t)) })
	t.Run("Champion", func(t *testing.T) { testChampion(t, newStore(t)) })
	t.Run("TopOrder", func(t *testing.T) { testTopOrder(t, newStore(t)) })
	t.Run("Candidates", func(t *testing.T) { testCandidates(t, newStore(t)) })
	t.Run("Promo", func(t *testing.T) { testPromo(t, newStore(t)) })
	t.Run("PersonalStats", func(t *testing.T) { testPersonalStats(t, newStore(t)) })
}

// Seed creates a player with the given length last grown at updatedAt.
func Seed(t *testing.T, store ledger.Store, uid, chatID int64, name string, length int64, updatedAt time.Time) {
	t.Helper()
	ctx := context.Background()
	err := store.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		if _, err := tx.UpsertUser(ctx, uid, name, updatedAt); err != nil {
			return err
		}
		if _, _, err := tx.EnsureDick(ctx, uid, chatID, updatedAt); err != nil {
			return err
		}
		_, err := tx.ApplyGrowth(ctx, ledger.GrowthWrite{
			UID: uid, ChatID: chatID, Delta: length, At: updatedAt, DayStart: updatedAt,
		})
		return err
	})
	require.NoError(t, err)
}

// Grow creates the player when needed and applies one guarded growth.
func Grow(ctx context.Context, store ledger.Store, uid, chatID int64, delta int64, at, start time.Time) (*ledger.GrowthApplied, error) {
	var applied *ledger.GrowthApplied
	err := store.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		if _, err := tx.UpsertUser(ctx, uid, "player", at); err != nil {
			return err
		}
		if _, _, err := tx.EnsureDick(ctx, uid, chatID, at); err != nil {
			return err
		}
		var err error
		applied, err = tx.ApplyGrowth(ctx, ledger.GrowthWrite{
			UID: uid, ChatID: chatID, Delta: delta, At: at, DayStart: start,
		})
		return err
	})
	return applied, err
}

func testGrowthGuard(t *testing.T, store ledger.Store) {
	ctx := context.Background()

	first, err := Grow(ctx, store, 1, 100, 5, morning, dayStart)
	require.NoError(t, err)
	assert.False(t, first.Bonus)
	assert.Equal(t, int64(5), first.Dick.Length)

	_, err = Grow(ctx, store, 1, 100, 5, evening, dayStart)
	assert.ErrorIs(t, err, ledger.ErrConflict)

	err = store.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		_, err := tx.AwardDick(ctx, ledger.AwardWrite{UID: 1, ChatID: 100, Delta: 2, BonusAttempts: 1, At: morning})
		return err
	})
	require.NoError(t, err)

	bonus, err := Grow(ctx, store, 1, 100, 3, evening, dayStart)
	require.NoError(t, err)
	assert.True(t, bonus.Bonus)
	assert.Equal(t, int64(10), bonus.Dick.Length)
	assert.Equal(t, 0, bonus.Dick.BonusAttempts)

	_, err = Grow(ctx, store, 1, 100, 3, evening, dayStart)
	assert.ErrorIs(t, err, ledger.ErrConflict)

	next, err := Grow(ctx, store, 1, 100, -1, tomorrow.Add(time.Hour), tomorrow)
	require.NoError(t, err)
	assert.False(t, next.Bonus)
	assert.Equal(t, int64(9), next.Dick.Length)

	err = store.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		_, err := tx.AwardDick(ctx, ledger.AwardWrite{UID: 404, ChatID: 100, Delta: 1, At: morning})
		return err
	})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func testRollback(t *testing.T, store ledger.Store) {
	ctx := context.Background()
	Seed(t, store, 1, 100, "alice", 7, morning)

	err := store.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		if _, err := tx.ResetDick(ctx, 1, 100); err != nil {
			return err
		}
		if _, err := tx.CreateLoan(ctx, model.Loan{UID: 1, ChatID: 100, Principal: 3, Debt: 3, PayoutRatio: 0.5, CreatedAt: morning}); err != nil {
			return err
		}
		return errAbort
	})
	assert.ErrorIs(t, err, errAbort)

	d, err := store.Dick(ctx, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(7), d.Length)

	loans, err := store.ActiveLoans(ctx, 1, 100)
	require.NoError(t, err)
	assert.Empty(t, loans)

	_, err = store.Dick(ctx, 2, 100)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func testLoans(t *testing.T, store ledger.Store) {
	ctx := context.Background()
	Seed(t, store, 1, 100, "alice", -10, morning)

	var older, newer *model.Loan
	err := store.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		if older, err = tx.CreateLoan(ctx, model.Loan{UID: 1, ChatID: 100, Principal: 5, Debt: 5, PayoutRatio: 0.5, CreatedAt: morning}); err != nil {
			return err
		}
		newer, err = tx.CreateLoan(ctx, model.Loan{UID: 1, ChatID: 100, Principal: 4, Debt: 4, PayoutRatio: 0.5, CreatedAt: evening})
		return err
	})
	require.NoError(t, err)
	assert.NotEqual(t, older.ID, newer.ID)

	loans, err := store.ActiveLoans(ctx, 1, 100)
	require.NoError(t, err)
	require.Len(t, loans, 2)
	assert.Equal(t, older.ID, loans[0].ID)
	assert.Equal(t, newer.ID, loans[1].ID)

	err = store.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		partial, err := tx.RepayLoan(ctx, older.ID, 2, evening)
		if err != nil {
			return err
		}
		assert.Equal(t, int64(3), partial.Debt)
		assert.True(t, partial.Active())

		_, err = tx.RepayLoan(ctx, older.ID, 4, evening)
		assert.ErrorIs(t, err, ledger.ErrConflict)

		full, err := tx.RepayLoan(ctx, older.ID, 3, evening)
		if err != nil {
			return err
		}
		assert.Equal(t, int64(0), full.Debt)
		require.NotNil(t, full.RepaidAt)

		_, err = tx.RepayLoan(ctx, older.ID, 1, evening)
		assert.ErrorIs(t, err, ledger.ErrConflict)
		return nil
	})
	require.NoError(t, err)

	loans, err = store.ActiveLoans(ctx, 1, 100)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, newer.ID, loans[0].ID)
	assert.Equal(t, int64(4), loans[0].Debt)
	assert.InDelta(t, 0.5, loans[0].PayoutRatio, 1e-9)
}

func testReset(t *testing.T, store ledger.Store) {
	ctx := context.Background()
	Seed(t, store, 1, 100, "alice", -10, morning)

	err := store.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		d, err := tx.ResetDick(ctx, 1, 100)
		if err != nil {
			return err
		}
		assert.Zero(t, d.Length)
		assert.Equal(t, 1, d.BonusAttempts)

		_, err = tx.ResetDick(ctx, 2, 100)
		assert.ErrorIs(t, err, ledger.ErrNotFound)
		return nil
	})
	require.NoError(t, err)

	d, err := store.Dick(ctx, 1, 100)
	require.NoError(t, err)
	assert.Zero(t, d.Length)
	assert.Equal(t, 1, d.BonusAttempts)
	assert.True(t, d.UpdatedAt.Equal(morning))

	// the attempt lets the player grow again on the day of the reset
	applied, err := Grow(ctx, store, 1, 100, 3, evening, dayStart)
	require.NoError(t, err)
	assert.True(t, applied.Bonus)
	assert.Equal(t, int64(3), applied.Dick.Length)
}

func testChampion(t *testing.T, store ledger.Store) {
	ctx := context.Background()
	Seed(t, store, 1, 100, "alice", 3, morning)
	day := dayStart

	_, err := store.Champion(ctx, 100, day)
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	insert := func() error {
		return store.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
			return tx.InsertChampion(ctx, model.Champion{ChatID: 100, Day: day, WinnerUID: 1, Bonus: 4, CreatedAt: evening})
		})
	}
	require.NoError(t, insert())
	assert.ErrorIs(t, insert(), ledger.ErrConflict)

	c, err := store.Champion(ctx, 100, day)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.WinnerUID)
	assert.Equal(t, "alice", c.WinnerName)
	assert.Equal(t, int64(4), c.Bonus)

	_, err = store.Champion(ctx, 100, tomorrow)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	_, err = store.Champion(ctx, 200, day)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func testTopOrder(t *testing.T, store ledger.Store) {
	ctx := context.Background()
	yesterday := morning.AddDate(0, 0, -1)
	Seed(t, store, 1, 100, "bob", 5, yesterday)
	Seed(t, store, 2, 100, "alice", 5, morning)
	Seed(t, store, 3, 100, "carol", 9, yesterday)
	Seed(t, store, 4, 100, "dave", 5, yesterday)
	Seed(t, store, 5, 200, "eve", 100, morning)

	rows, err := store.Top(ctx, 100, 0, 10)
	require.NoError(t, err)

	var uids []int64
	var positions []int
	for _, r := range rows {
		uids = append(uids, r.UID)
		positions = append(positions, r.Position)
	}
	assert.Equal(t, []int64{3, 2, 1, 4}, uids)
	assert.Equal(t, []int{1, 2, 3, 4}, positions)

	page, err := store.Top(ctx, 100, 1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(2), page[0].UID)
	assert.Equal(t, 2, page[0].Position)
	assert.Equal(t, "bob", page[1].Name)

	empty, err := store.Top(ctx, 100, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, empty)

	pos, err := store.Position(ctx, 4, 100)
	require.NoError(t, err)
	assert.Equal(t, 4, pos)

	_, err = store.Position(ctx, 5, 100)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func testCandidates(t *testing.T, store ledger.Store) {
	ctx := context.Background()
	Seed(t, store, 1, 100, "alice", 5, morning)
	Seed(t, store, 2, 100, "bob", 1, morning.AddDate(0, 0, -10))
	Seed(t, store, 3, 200, "carol", 1, morning)

	err := store.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		candidates, err := tx.Candidates(ctx, 100, morning.AddDate(0, 0, -7))
		if err != nil {
			return err
		}
		require.Len(t, candidates, 1)
		assert.Equal(t, int64(1), candidates[0].UID)
		assert.Equal(t, "alice", candidates[0].Name)
		assert.Equal(t, int64(5), candidates[0].Length)
		return nil
	})
	require.NoError(t, err)
}

func testPromo(t *testing.T, store ledger.Store) {
	ctx := context.Background()
	Seed(t, store, 1, 100, "alice", 5, morning)
	Seed(t, store, 1, 200, "alice", 1, morning)

	until := dayStart.AddDate(0, 0, 5)
	code := model.PromoCode{Code: "Spring", BonusLength: 3, Capacity: 1, Since: dayStart.AddDate(0, 0, -1), Until: &until}
	require.NoError(t, store.CreatePromo(ctx, code))
	assert.ErrorIs(t, store.CreatePromo(ctx, code), ledger.ErrConflict)

	err := store.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		_, err := tx.ConsumePromo(ctx, "spring", dayStart.AddDate(0, 0, 6))
		assert.ErrorIs(t, err, ledger.ErrNotFound)

		p, err := tx.ConsumePromo(ctx, "SPRING", dayStart)
		if err != nil {
			return err
		}
		assert.Equal(t, int64(3), p.BonusLength)
		assert.Equal(t, 0, p.Capacity)

		affected, err := tx.GrowAllDicks(ctx, 1, p.BonusLength, 1)
		if err != nil {
			return err
		}
		assert.Equal(t, 2, affected)

		if err := tx.InsertActivation(ctx, model.PromoActivation{UID: 1, Code: "spring", AffectedChats: affected, CreatedAt: morning}); err != nil {
			return err
		}
		assert.ErrorIs(t, tx.InsertActivation(ctx, model.PromoActivation{UID: 1, Code: "SPRING", CreatedAt: morning}), ledger.ErrConflict)
		return nil
	})
	require.NoError(t, err)

	d, err := store.Dick(ctx, 1, 200)
	require.NoError(t, err)
	assert.Equal(t, int64(4), d.Length)
	assert.Equal(t, 1, d.BonusAttempts)

	err = store.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		_, err := tx.ConsumePromo(ctx, "spring", dayStart)
		return err
	})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func testPersonalStats(t *testing.T, store ledger.Store) {
	ctx := context.Background()
	Seed(t, store, 1, 100, "alice", -4, morning)
	Seed(t, store, 1, 200, "alice", 9, morning)
	Seed(t, store, 1, 300, "alice", 2, morning)

	stats, err := store.PersonalStats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Chats)
	assert.Equal(t, int64(9), stats.MaxLength)
	assert.Equal(t, int64(7), stats.TotalLength)

	empty, err := store.PersonalStats(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Chats)
}
