package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-grower-bot/internal/ledger/ledgertest"
	"telegram-grower-bot/internal/ledger/memstore"
)

func TestChatStats(t *testing.T) {
	store := memstore.New()
	seed(t, store, alice, 5, yesterday)
	seed(t, store, bob, 9, yesterday)
	svc := NewStatsService(store)
	ctx := context.Background()

	stats, err := svc.ChatStats(ctx, alice.UID, testChat)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.Length)
	assert.Equal(t, 2, stats.Position)

	absent, err := svc.ChatStats(ctx, 99, testChat)
	require.NoError(t, err)
	assert.Zero(t, absent.Length)
	assert.Zero(t, absent.Position)
}

func TestPersonalStats(t *testing.T) {
	store := memstore.New()
	ledgertest.Seed(t, store, alice.UID, 1, "alice", 7, yesterday)
	ledgertest.Seed(t, store, alice.UID, 2, "alice", -3, yesterday)
	ledgertest.Seed(t, store, bob.UID, 1, "bob", 100, yesterday)

	stats, err := NewStatsService(store).Personal(context.Background(), alice.UID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Chats)
	assert.Equal(t, int64(7), stats.MaxLength)
	assert.Equal(t, int64(4), stats.TotalLength)

	none, err := NewStatsService(store).Personal(context.Background(), 99)
	require.NoError(t, err)
	assert.Zero(t, none.Chats)
}
