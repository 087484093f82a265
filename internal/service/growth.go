package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"telegram-grower-bot/internal/game"
	"telegram-grower-bot/internal/game/increment"
	"telegram-grower-bot/internal/ledger"
	"telegram-grower-bot/internal/model"
	"telegram-grower-bot/internal/pkg/day"
)

// GrowStatus tells how a grow attempt ended.
type GrowStatus int

const (
	GrowFirstToday GrowStatus = iota
	GrowBonus
	GrowAlreadyGrown
)

func (s GrowStatus) String() string {
	switch s {
	case GrowFirstToday:
		return "first_today"
	case GrowBonus:
		return "bonus"
	case GrowAlreadyGrown:
		return "already_grown"
	default:
		return "unknown"
	}
}

// GrowOutcome is the result of GrowthService.Grow.
type GrowOutcome struct {
	Settlement

	Status    GrowStatus
	FirstEver bool
	Newcomer  bool
	Base      int64
	// Position is the place in the chat's top, 0 when not reported.
	Position     int
	UntilNextDay time.Duration
}

// GrowthService applies the daily growth action.
type GrowthService struct {
	store        ledger.Store
	gen          *increment.Generator
	perks        *game.Pipeline
	timezone     *time.Location
	showPosition bool
}

// NewGrowthService creates a new GrowthService instance.
func NewGrowthService(
	store ledger.Store,
	gen *increment.Generator,
	perks *game.Pipeline,
	timezone *time.Location,
	showPosition bool,
) *GrowthService {
	return &GrowthService{
		store:        store,
		gen:          gen,
		perks:        perks,
		timezone:     loadLocation(timezone),
		showPosition: showPosition,
	}
}

// Grow performs the player's growth in a chat. A player who already grew
// today and has no bonus attempts gets GrowAlreadyGrown with no state change.
func (s *GrowthService) Grow(ctx context.Context, player Player, chatID int64, now time.Time) (*GrowOutcome, error) {
	var out *GrowOutcome
	err := s.store.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		out = &GrowOutcome{UntilNextDay: day.UntilNext(now, s.timezone)}

		if _, err := tx.UpsertUser(ctx, player.UID, player.Name, now); err != nil {
			return err
		}
		d, _, err := tx.EnsureDick(ctx, player.UID, chatID, now)
		if err != nil {
			return err
		}
		loans, err := tx.ActiveLoans(ctx, player.UID, chatID)
		if err != nil {
			return err
		}

		out.FirstEver = d.UpdatedAt.Equal(model.NeverGrown)
		out.Newcomer = s.gen.Newcomer(d.CreatedAt, now)
		out.Base = s.gen.Base(out.Newcomer)

		change := s.perks.Apply(game.Change{CurrentValue: d.Length, Delta: out.Base, Loans: loans})
		out.Contributions = change.Contributions
		out.Delta = change.Delta
		if out.DebtRepaid, out.LoansRetired, err = repay(ctx, tx, "grow", change, now); err != nil {
			return err
		}

		applied, err := tx.ApplyGrowth(ctx, ledger.GrowthWrite{
			UID:      player.UID,
			ChatID:   chatID,
			Delta:    change.Delta,
			At:       now,
			DayStart: day.Start(now, s.timezone),
		})
		if err != nil {
			return err
		}
		out.Length = applied.Dick.Length
		if applied.Bonus {
			out.Status = GrowBonus
		}

		if s.showPosition {
			if out.Position, err = tx.Position(ctx, player.UID, chatID); err != nil {
				return err
			}
		}
		return nil
	})

	if errors.Is(err, ledger.ErrConflict) {
		log.Debug().Int64("uid", player.UID).Int64("chat_id", chatID).Msg("Already grown today")
		return &GrowOutcome{Status: GrowAlreadyGrown, UntilNextDay: day.UntilNext(now, s.timezone)}, nil
	}
	if err != nil {
		return nil, storeFailure("grow", err)
	}

	log.Debug().
		Int64("uid", player.UID).
		Int64("chat_id", chatID).
		Str("status", out.Status.String()).
		Int64("base", out.Base).
		Int64("delta", out.Delta).
		Int64("length", out.Length).
		Int64("repaid", out.DebtRepaid).
		Msg("Grown")
	return out, nil
}
