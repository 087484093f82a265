package memstore

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-grower-bot/internal/ledger"
	"telegram-grower-bot/internal/ledger/ledgertest"
	"telegram-grower-bot/internal/model"
)

func TestContract(t *testing.T) {
	ledgertest.Run(t, func(t *testing.T) ledger.Store { return New() })
}

func TestInTxCancelledContextDiscardsWrites(t *testing.T) {
	store := New()
	ctx, cancel := context.WithCancel(context.Background())
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	err := store.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		_, _, err := tx.EnsureDick(ctx, 1, 1, now)
		cancel()
		return err
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, ledger.IsTransient(err))

	_, err = store.Dick(context.Background(), 1, 1)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestInTxRejectsDeadContext(t *testing.T) {
	store := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := store.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
}

func TestCloneIsolatesLoans(t *testing.T) {
	s := newState()
	s.loans = append(s.loans, model.Loan{ID: 1, Debt: 10})

	c := s.clone()
	c.loans[0].Debt = 4
	c.nextLoanID = 9

	assert.Equal(t, int64(10), s.loans[0].Debt)
	assert.Equal(t, int64(1), s.nextLoanID)
}

func TestTopBounds(t *testing.T) {
	store := New()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for uid := int64(1); uid <= 3; uid++ {
		ledgertest.Seed(t, store, uid, 1, "p", uid, now)
	}
	ctx := context.Background()

	rows, err := store.Top(ctx, 1, 1, math.MaxInt)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = store.Top(ctx, 1, -5, 2)
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = store.Top(ctx, 1, math.MaxInt, 2)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
