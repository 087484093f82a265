package service

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"telegram-grower-bot/internal/ledger"
	"telegram-grower-bot/internal/model"
	"telegram-grower-bot/internal/pkg/day"
)

// LeaderboardRow is a top entry annotated for the viewer.
type LeaderboardRow struct {
	model.TopEntry

	IsViewer     bool
	CanGrowToday bool
}

// LeaderboardPage is one page of a chat's top.
type LeaderboardPage struct {
	Page    int
	Size    int
	Rows    []LeaderboardRow
	HasPrev bool
	HasNext bool
}

// LeaderboardService handles the paginated chat top.
// Pages are read independently; a length changing between two page loads
// may shift a row across pages.
type LeaderboardService struct {
	store    ledger.Store
	pageSize int
	timezone *time.Location
}

// NewLeaderboardService creates a new LeaderboardService instance.
func NewLeaderboardService(store ledger.Store, pageSize int, timezone *time.Location) *LeaderboardService {
	return &LeaderboardService{
		store:    store,
		pageSize: pageSize,
		timezone: loadLocation(timezone),
	}
}

// ParsePage parses a page index. Non-numeric and negative input is rejected.
func ParsePage(s string) (int, error) {
	page, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || page < 0 {
		return 0, ErrInvalidPage
	}
	return page, nil
}

// GetPage returns the rows [page×size, (page+1)×size) of the chat's top.
// A size <= 0 falls back to the configured page size.
func (s *LeaderboardService) GetPage(ctx context.Context, chatID, viewerUID int64, page, size int, now time.Time) (*LeaderboardPage, error) {
	if page < 0 {
		return nil, ErrInvalidPage
	}
	if size <= 0 {
		size = s.pageSize
	}
	// the offset and the extra has-next row must fit in an int
	if page > (math.MaxInt-1)/size-1 {
		return nil, ErrInvalidPage
	}

	entries, err := s.store.Top(ctx, chatID, page*size, size+1)
	if err != nil {
		return nil, storeFailure("get top", err)
	}

	result := &LeaderboardPage{
		Page:    page,
		Size:    size,
		HasPrev: page > 0,
		HasNext: len(entries) > size,
	}
	if result.HasNext {
		entries = entries[:size]
	}

	dayStart := day.Start(now, s.timezone)
	result.Rows = make([]LeaderboardRow, 0, len(entries))
	for _, e := range entries {
		result.Rows = append(result.Rows, LeaderboardRow{
			TopEntry:     e,
			IsViewer:     e.UID == viewerUID,
			CanGrowToday: e.UpdatedAt.Before(dayStart),
		})
	}
	return result, nil
}
