package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"telegram-grower-bot/internal/game"
	"telegram-grower-bot/internal/game/champion"
	"telegram-grower-bot/internal/game/random"
	"telegram-grower-bot/internal/ledger"
	"telegram-grower-bot/internal/model"
	"telegram-grower-bot/internal/pkg/day"
)

// ChampionStatus tells how a champion election ended.
type ChampionStatus int

const (
	ChampionChosen ChampionStatus = iota
	ChampionAlreadyChosen
	ChampionNoCandidates
)

func (s ChampionStatus) String() string {
	switch s {
	case ChampionChosen:
		return "chosen"
	case ChampionAlreadyChosen:
		return "already_chosen"
	case ChampionNoCandidates:
		return "no_candidates"
	default:
		return "unknown"
	}
}

// ChampionConfig holds the champion bonus and the active window.
type ChampionConfig struct {
	BonusMin      int64
	BonusMax      int64
	BonusAttempts int
	ActiveWindow  time.Duration
}

// ChampionOutcome is the result of ChampionService.Choose.
type ChampionOutcome struct {
	Settlement

	Status     ChampionStatus
	WinnerUID  int64
	WinnerName string
	// Bonus is the drawn bonus before perks.
	Bonus    int64
	PoolSize int
	Mode     champion.Mode
}

// ChampionService elects the daily champion of a chat.
type ChampionService struct {
	store    ledger.Store
	selector champion.Selector
	perks    *game.Pipeline
	src      random.Source
	cfg      ChampionConfig
	timezone *time.Location
}

// NewChampionService creates a new ChampionService instance.
func NewChampionService(
	store ledger.Store,
	selector champion.Selector,
	perks *game.Pipeline,
	src random.Source,
	cfg ChampionConfig,
	timezone *time.Location,
) *ChampionService {
	return &ChampionService{
		store:    store,
		selector: selector,
		perks:    perks,
		src:      src,
		cfg:      cfg,
		timezone: loadLocation(timezone),
	}
}

// Choose elects the champion of the chat for the calendar day of now.
// Repeated calls on the same day return the first winner with no state change.
func (s *ChampionService) Choose(ctx context.Context, chatID int64, now time.Time) (*ChampionOutcome, error) {
	today := day.Date(now, s.timezone)

	var out *ChampionOutcome
	err := s.store.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		existing, err := tx.Champion(ctx, chatID, today)
		if err == nil {
			out = alreadyChosen(existing)
			return nil
		}
		if !errors.Is(err, ledger.ErrNotFound) {
			return err
		}

		pool, err := tx.Candidates(ctx, chatID, now.Add(-s.cfg.ActiveWindow))
		if err != nil {
			return err
		}
		if len(pool) == 0 {
			out = &ChampionOutcome{Status: ChampionNoCandidates}
			return nil
		}

		winner := s.selector.Select(pool)
		out = &ChampionOutcome{
			Status:     ChampionChosen,
			WinnerUID:  winner.UID,
			WinnerName: winner.Name,
			Bonus:      random.Between(s.src, s.cfg.BonusMin, s.cfg.BonusMax),
			PoolSize:   len(pool),
			Mode:       s.selector.Mode(),
		}

		d, err := tx.Dick(ctx, winner.UID, chatID)
		if errors.Is(err, ledger.ErrNotFound) {
			return invariant("choose champion", "candidate %d has no record in chat %d", winner.UID, chatID)
		}
		if err != nil {
			return err
		}
		loans, err := tx.ActiveLoans(ctx, winner.UID, chatID)
		if err != nil {
			return err
		}

		change := s.perks.Apply(game.Change{CurrentValue: d.Length, Delta: out.Bonus, Loans: loans})
		out.Contributions = change.Contributions
		out.Delta = change.Delta
		if out.DebtRepaid, out.LoansRetired, err = repay(ctx, tx, "choose champion", change, now); err != nil {
			return err
		}

		awarded, err := tx.AwardDick(ctx, ledger.AwardWrite{
			UID:           winner.UID,
			ChatID:        chatID,
			Delta:         change.Delta,
			BonusAttempts: s.cfg.BonusAttempts,
			At:            now,
		})
		if errors.Is(err, ledger.ErrNotFound) {
			return invariant("choose champion", "winner %d record vanished in chat %d", winner.UID, chatID)
		}
		if err != nil {
			return err
		}
		out.Length = awarded.Length

		return tx.InsertChampion(ctx, model.Champion{
			ChatID:     chatID,
			Day:        today,
			WinnerUID:  winner.UID,
			WinnerName: winner.Name,
			Bonus:      out.Bonus,
			CreatedAt:  now,
		})
	})

	if errors.Is(err, ledger.ErrConflict) {
		log.Debug().Int64("chat_id", chatID).Msg("Champion chosen concurrently")
		existing, err := s.store.Champion(ctx, chatID, today)
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, invariant("choose champion", "conflict without a champion in chat %d", chatID)
		}
		if err != nil {
			return nil, storeFailure("choose champion", err)
		}
		return alreadyChosen(existing), nil
	}
	if err != nil {
		return nil, storeFailure("choose champion", err)
	}

	if out.Status == ChampionChosen {
		log.Info().
			Int64("chat_id", chatID).
			Int64("winner", out.WinnerUID).
			Str("mode", string(out.Mode)).
			Int("pool", out.PoolSize).
			Int64("bonus", out.Bonus).
			Msg("Champion chosen")
	}
	return out, nil
}

func alreadyChosen(c *model.Champion) *ChampionOutcome {
	return &ChampionOutcome{
		Status:     ChampionAlreadyChosen,
		WinnerUID:  c.WinnerUID,
		WinnerName: c.WinnerName,
		Bonus:      c.Bonus,
	}
}
