// Property-based tests for the growth economy.
package service

import (
	"context"
	"testing"
	"time"

	"pgregory.net/rapid"

	"telegram-grower-bot/internal/game/increment"
	"telegram-grower-bot/internal/game/random"
	"telegram-grower-bot/internal/ledger/memstore"
)

// Property: the first grow of a day moves the length by exactly the
// reported delta, and the delta without perks lies in [min, max].
func TestProperty_GrowDeltaInRange(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		lo := rapid.Int64Range(-20, 20).Draw(rt, "min")
		hi := rapid.Int64Range(lo, lo+30).Draw(rt, "max")
		start := rapid.Int64Range(-100, 100).Draw(rt, "start")
		seed1 := rapid.Uint64().Draw(rt, "seed")

		store := memstore.New()
		seed(rt, store, alice, start, yesterday)
		gen := increment.New(increment.Config{Min: lo, Max: hi}, random.Seeded(seed1, 1), time.UTC)
		svc := NewGrowthService(store, gen, newPipeline(rt, 0), time.UTC, false)

		out, err := svc.Grow(context.Background(), alice, testChat, noon)
		if err != nil {
			rt.Fatalf("grow failed: %v", err)
		}
		if out.Status != GrowFirstToday {
			rt.Fatalf("expected first_today, got %s", out.Status)
		}
		if out.Delta < lo || out.Delta > hi {
			rt.Fatalf("delta %d outside [%d, %d]", out.Delta, lo, hi)
		}
		if got := lengthOf(rt, store, alice.UID); got != start+out.Delta || got != out.Length {
			rt.Fatalf("length %d, expected %d + %d (reported %d)", got, start, out.Delta, out.Length)
		}
	})
}

// Property: every grow after the first one of a day is rejected and
// leaves the length untouched.
func TestProperty_GrowOncePerDay(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		attempts := rapid.IntRange(2, 6).Draw(rt, "attempts")
		store := memstore.New()
		svc := newGrowth(rt, store, -5, 5, rapid.IntRange(0, 10).Draw(rt, "draw"))

		first, err := svc.Grow(context.Background(), alice, testChat, noon)
		if err != nil {
			rt.Fatalf("grow failed: %v", err)
		}
		for i := 1; i < attempts; i++ {
			at := noon.Add(time.Duration(rapid.IntRange(0, 11*60).Draw(rt, "minutes")) * time.Minute)
			out, err := svc.Grow(context.Background(), alice, testChat, at)
			if err != nil {
				rt.Fatalf("grow failed: %v", err)
			}
			if out.Status != GrowAlreadyGrown {
				rt.Fatalf("attempt %d: expected already_grown, got %s", i, out.Status)
			}
		}
		if got := lengthOf(rt, store, alice.UID); got != first.Length {
			rt.Fatalf("length changed from %d to %d", first.Length, got)
		}
	})
}

// Property: loan payments never exceed the principal, and once a loan is
// retired the total repaid equals its principal.
func TestProperty_LoanRepaidExactly(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		value := rapid.Int64Range(-200, -1).Draw(rt, "value")
		payout := rapid.Float64Range(0.05, 0.95).Draw(rt, "ratio")
		base := rapid.Int64Range(1, 30).Draw(rt, "base")

		store := memstore.New()
		seed(rt, store, alice, value, yesterday)
		confirmed, err := NewLoanService(store, LoanConfig{PayoutRatio: payout}).
			Confirm(context.Background(), alice, alice.UID, testChat, &payout, yesterday)
		if err != nil {
			rt.Fatalf("confirm failed: %v", err)
		}
		if confirmed.Status != LoanConfirmed {
			rt.Fatalf("expected confirmed, got %s", confirmed.Status)
		}
		principal := confirmed.Debt

		svc := newGrowth(rt, store, base, base, 0)
		var repaid int64
		retired := principal == 0
		for i := 0; i < 400 && !retired; i++ {
			out, err := svc.Grow(context.Background(), alice, testChat, noon.AddDate(0, 0, i))
			if err != nil {
				rt.Fatalf("grow failed: %v", err)
			}
			if out.DebtRepaid < 0 || out.DebtRepaid > base {
				rt.Fatalf("day %d repaid %d from a base of %d", i, out.DebtRepaid, base)
			}
			repaid += out.DebtRepaid
			if repaid > principal {
				rt.Fatalf("repaid %d exceeds principal %d", repaid, principal)
			}
			retired = out.LoansRetired > 0
		}

		loans, err := store.ActiveLoans(context.Background(), alice.UID, testChat)
		if err != nil {
			rt.Fatalf("active loans failed: %v", err)
		}
		if retired && (len(loans) != 0 || repaid != principal) {
			rt.Fatalf("retired with %d active loans, repaid %d of %d", len(loans), repaid, principal)
		}
	})
}
