// Package main is the entry point for the dick grower bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"telegram-grower-bot/internal/bot"
	"telegram-grower-bot/internal/config"
	"telegram-grower-bot/internal/game"
	"telegram-grower-bot/internal/game/champion"
	"telegram-grower-bot/internal/game/increment"
	"telegram-grower-bot/internal/game/perk"
	"telegram-grower-bot/internal/game/random"
	"telegram-grower-bot/internal/pkg/db"
	"telegram-grower-bot/internal/pkg/lock"
	"telegram-grower-bot/internal/repository"
	"telegram-grower-bot/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Fatal().Err(err).Str("level", cfg.Log.Level).Msg("Invalid log level")
	}
	zerolog.SetGlobalLevel(level)
	log.Info().Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	if err := repository.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}
	store := repository.NewStore(pool)

	deps, err := buildDependencies(cfg, store)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build services")
	}

	telegramBot, err := bot.New(deps)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return telegramBot.Run(ctx)
	})
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Bot stopped with error")
		return
	}
	log.Info().Msg("Bot stopped gracefully")
}

func buildDependencies(cfg *config.Config, store *repository.Store) (*bot.Dependencies, error) {
	loc, err := cfg.Game.Location()
	if err != nil {
		return nil, err
	}
	src := random.New()

	perks, err := game.NewPipeline(perk.Default(cfg.Perks.HelpPussiesCoef)...)
	if err != nil {
		return nil, err
	}
	selector, err := champion.New(champion.Config{
		Mode:           cfg.Champion.Mode,
		ExclusionRatio: cfg.Champion.RichExclusionRatio,
		WeightScale:    cfg.Champion.WeightScale,
	}, src)
	if err != nil {
		return nil, err
	}
	gen := increment.New(increment.Config{
		Min:       cfg.Growth.Min,
		Max:       cfg.Growth.Max,
		GraceDays: cfg.Growth.GraceDays,
	}, src, loc)

	log.Info().
		Str("timezone", loc.String()).
		Str("champion_mode", string(selector.Mode())).
		Strs("perks", perks.Names()).
		Msg("Game configured")

	return &bot.Dependencies{
		Config:   cfg,
		Growth:   service.NewGrowthService(store, gen, perks, loc, cfg.Leaderboard.ShowPosition),
		Champion: service.NewChampionService(store, selector, perks, src, service.ChampionConfig{
			BonusMin:      cfg.Champion.BonusMin,
			BonusMax:      cfg.Champion.BonusMax,
			BonusAttempts: cfg.Champion.BonusAttempts,
			ActiveWindow:  cfg.Champion.ActiveWindow(),
		}, loc),
		Loans: service.NewLoanService(store, service.LoanConfig{
			PayoutRatio: cfg.Loan.PayoutRatio,
			Multiple:    cfg.Loan.Multiple,
		}),
		Leaderboard: service.NewLeaderboardService(store, cfg.Leaderboard.PageSize, loc),
		Stats:       service.NewStatsService(store),
		Promos:      service.NewPromoService(store, loc),
		UserLock:    lock.NewUserLock(),
		Timezone:    loc,
	}, nil
}
