package bot

import (
	"slices"
	"testing"

	"pgregory.net/rapid"

	"telegram-grower-bot/internal/config"
)

// Property: a user is an admin if and only if their id is configured.
func TestProperty_AdminPermissionCheck(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		adminIDs := rapid.SliceOfN(rapid.Int64Range(1, 1000000000), 1, 10).Draw(rt, "adminIDs")
		cfg := &config.Config{Admin: config.AdminConfig{IDs: adminIDs}}

		userID := rapid.OneOf(
			rapid.SampledFrom(adminIDs),
			rapid.Int64Range(1, 1000000000),
		).Draw(rt, "userID")

		if got, want := cfg.IsAdmin(userID), slices.Contains(adminIDs, userID); got != want {
			rt.Fatalf("IsAdmin(%d) = %v, want %v (admins %v)", userID, got, want, adminIDs)
		}
	})
}

// Property: a non-empty whitelist admits exactly the listed group chats.
func TestProperty_WhitelistEnforcement(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		chats := rapid.SliceOfN(rapid.Int64Range(-1000000000, -1), 1, 10).Draw(rt, "chats")
		cfg := &config.Config{Whitelist: config.WhitelistConfig{Chats: chats}}

		chatID := rapid.OneOf(
			rapid.SampledFrom(chats),
			rapid.Int64Range(-1000000000, -1),
		).Draw(rt, "chatID")

		if got, want := cfg.IsChatAllowed(chatID), slices.Contains(chats, chatID); got != want {
			rt.Fatalf("IsChatAllowed(%d) = %v, want %v (whitelist %v)", chatID, got, want, chats)
		}
	})
}

// Property: an empty whitelist admits every chat.
func TestProperty_EmptyWhitelistAllowsAllChats(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		cfg := &config.Config{}
		chatID := rapid.Int64().Draw(rt, "chatID")
		if !cfg.IsChatAllowed(chatID) {
			rt.Fatalf("chat %d rejected by an empty whitelist", chatID)
		}
	})
}

// Property: users added to the private cache are remembered until evicted
// by newer users, and the cache never holds more than its size.
func TestProperty_PrivateUsersKeepRecent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		size := rapid.IntRange(1, 20).Draw(rt, "size")
		users, err := NewPrivateUsers(size)
		if err != nil {
			rt.Fatalf("NewPrivateUsers: %v", err)
		}

		ids := rapid.SliceOfNDistinct(rapid.Int64Range(1, 1000000000), 1, 50, rapid.ID[int64]).Draw(rt, "ids")
		for _, id := range ids {
			users.Allow(id)
		}

		cut := max(len(ids)-size, 0)
		for i, id := range ids {
			if got, want := users.Allowed(id), i >= cut; got != want {
				rt.Fatalf("Allowed(%d) = %v, want %v (size %d, %d users)", id, got, want, size, len(ids))
			}
		}
	})
}

// Property: without refill a user gets exactly burst commands, and one
// user's spending never affects another.
func TestProperty_RateLimitPerUser(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		burst := rapid.IntRange(1, 10).Draw(rt, "burst")
		rl, err := NewRateLimiter(1e-9, burst, 100)
		if err != nil {
			rt.Fatalf("NewRateLimiter: %v", err)
		}

		attempts := rapid.IntRange(0, 20).Draw(rt, "attempts")
		allowed := 0
		for range attempts {
			if rl.Allow(1) {
				allowed++
			}
		}
		if want := min(attempts, burst); allowed != want {
			rt.Fatalf("allowed %d of %d attempts with burst %d, want %d", allowed, attempts, burst, want)
		}
		if !rl.Allow(2) {
			rt.Fatalf("second user throttled by the first")
		}
	})
}
