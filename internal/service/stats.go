package service

import (
	"context"
	"errors"

	"telegram-grower-bot/internal/ledger"
	"telegram-grower-bot/internal/model"
)

// ChatStats is a player's standing in one chat.
type ChatStats struct {
	Length   int64
	Position int
}

// StatsService reads player statistics.
type StatsService struct {
	store ledger.Store
}

// NewStatsService creates a new StatsService instance.
func NewStatsService(store ledger.Store) *StatsService {
	return &StatsService{store: store}
}

// ChatStats returns the player's length and position in the chat.
// Both are zero when the player never grew there.
func (s *StatsService) ChatStats(ctx context.Context, uid, chatID int64) (*ChatStats, error) {
	d, err := s.store.Dick(ctx, uid, chatID)
	if errors.Is(err, ledger.ErrNotFound) {
		return &ChatStats{}, nil
	}
	if err != nil {
		return nil, storeFailure("get chat stats", err)
	}

	pos, err := s.store.Position(ctx, uid, chatID)
	if err != nil && !errors.Is(err, ledger.ErrNotFound) {
		return nil, storeFailure("get chat stats", err)
	}
	return &ChatStats{Length: d.Length, Position: pos}, nil
}

// Personal aggregates the player's records across all chats.
func (s *StatsService) Personal(ctx context.Context, uid int64) (*model.PersonalStats, error) {
	stats, err := s.store.PersonalStats(ctx, uid)
	if err != nil {
		return nil, storeFailure("get personal stats", err)
	}
	return stats, nil
}
