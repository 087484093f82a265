// Property-based tests for LeaderboardService.
package service

import (
	"context"
	"testing"
	"time"

	"pgregory.net/rapid"

	"telegram-grower-bot/internal/ledger/memstore"
)

// Property: walking the pages lists every player exactly once, in
// non-increasing length with contiguous positions, and only the last
// page has no successor.
func TestProperty_PagesCoverChat(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		players := rapid.IntRange(0, 25).Draw(rt, "players")
		size := rapid.IntRange(1, 7).Draw(rt, "size")

		store := memstore.New()
		for i := 0; i < players; i++ {
			length := rapid.Int64Range(-10, 10).Draw(rt, "length")
			hours := rapid.IntRange(0, 48).Draw(rt, "hours")
			name := rapid.SampledFrom([]string{"a", "b", "c"}).Draw(rt, "name")
			seed(rt, store, Player{UID: int64(i + 1), Name: name}, length, yesterday.Add(-time.Duration(hours)*time.Hour))
		}
		svc := NewLeaderboardService(store, size, time.UTC)

		seen := make(map[int64]bool)
		var prev *LeaderboardRow
		for page := 0; ; page++ {
			result, err := svc.GetPage(context.Background(), testChat, 0, page, 0, noon)
			if err != nil {
				rt.Fatalf("page %d: %v", page, err)
			}
			if result.HasPrev != (page > 0) {
				rt.Fatalf("page %d: has_prev %v", page, result.HasPrev)
			}
			if len(result.Rows) > size {
				rt.Fatalf("page %d: %d rows exceed size %d", page, len(result.Rows), size)
			}
			for i := range result.Rows {
				row := result.Rows[i]
				if seen[row.UID] {
					rt.Fatalf("uid %d listed twice", row.UID)
				}
				seen[row.UID] = true
				if row.Position != page*size+i+1 {
					rt.Fatalf("uid %d has position %d, expected %d", row.UID, row.Position, page*size+i+1)
				}
				if prev != nil && prev.Length < row.Length {
					rt.Fatalf("length %d ranked above %d", prev.Length, row.Length)
				}
				prev = &row
			}
			if !result.HasNext {
				break
			}
			if len(result.Rows) != size {
				rt.Fatalf("page %d has a successor but only %d rows", page, len(result.Rows))
			}
		}
		if len(seen) != players {
			rt.Fatalf("listed %d of %d players", len(seen), players)
		}
	})
}
