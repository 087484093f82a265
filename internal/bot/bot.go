// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-grower-bot/internal/config"
	"telegram-grower-bot/internal/handler"
	"telegram-grower-bot/internal/pkg/lock"
	"telegram-grower-bot/internal/service"
)

// userCacheSize bounds the private user cache and the rate limiter buckets.
const userCacheSize = 10_000

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot   *tele.Bot
	cfg   *config.Config
	users *PrivateUsers
	limit *RateLimiter

	growHandler  *handler.GrowHandler
	topHandler   *handler.TopHandler
	loanHandler  *handler.LoanHandler
	statsHandler *handler.StatsHandler
	promoHandler *handler.PromoHandler
	adminHandler *handler.AdminHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config      *config.Config
	Growth      *service.GrowthService
	Champion    *service.ChampionService
	Loans       *service.LoanService
	Leaderboard *service.LeaderboardService
	Stats       *service.StatsService
	Promos      *service.PromoService
	// UserLock serializes loan button presses per user. Nil disables it.
	UserLock *lock.UserLock
	Timezone *time.Location
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, errors.New("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("Unhandled bot error")
		},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return newBot(teleBot, deps)
}

func newBot(teleBot *tele.Bot, deps *Dependencies) (*Bot, error) {
	users, err := NewPrivateUsers(userCacheSize)
	if err != nil {
		return nil, err
	}
	limit, err := NewRateLimiter(deps.Config.Bot.RateLimit, deps.Config.Bot.RateBurst, userCacheSize)
	if err != nil {
		return nil, err
	}

	b := &Bot{
		bot:   teleBot,
		cfg:   deps.Config,
		users: users,
		limit: limit,
	}

	opts := handler.Options{Timeout: deps.Config.Store.Timeout}
	userLock := deps.UserLock
	if !deps.Config.Features.CallbackLocks {
		userLock = nil
	}
	var botName string
	if teleBot.Me != nil {
		botName = teleBot.Me.Username
	}

	b.growHandler = handler.NewGrowHandler(deps.Growth, deps.Champion, opts)
	b.topHandler = handler.NewTopHandler(deps.Leaderboard, deps.Config.Leaderboard.Paging, opts)
	b.loanHandler = handler.NewLoanHandler(deps.Loans, userLock, opts)
	b.statsHandler = handler.NewStatsHandler(deps.Stats, opts)
	b.promoHandler = handler.NewPromoHandler(deps.Promos, opts)
	b.adminHandler = handler.NewAdminHandler(deps.Promos, deps.Timezone, botName, opts)

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(LoggingMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg, b.users))
	b.bot.Use(b.limit.Middleware())
}

// commands is the command menu shown by Telegram clients.
var commands = []tele.Command{
	{Text: "grow", Description: "Grow your dick"},
	{Text: "top", Description: "The chat leaderboard"},
	{Text: "dod", Description: "Choose the dick of the day"},
	{Text: "loan", Description: "Borrow your way out of negative length"},
	{Text: "stats", Description: "Your statistics"},
	{Text: "promo", Description: "Activate a promo code"},
	{Text: "help", Description: "Show help"},
}

// registerHandlers registers all command and callback handlers.
func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.promoHandler.HandleStart)
	b.bot.Handle("/help", b.promoHandler.HandleHelp)
	b.bot.Handle("/promo", b.promoHandler.HandlePromo)

	b.bot.Handle("/grow", b.growHandler.HandleGrow)
	b.bot.Handle("/dod", b.growHandler.HandleDickOfDay)
	b.bot.Handle("/dick_of_day", b.growHandler.HandleDickOfDay)

	b.bot.Handle("/top", b.topHandler.HandleTop)

	b.bot.Handle("/loan", b.loanHandler.HandleLoan)
	b.bot.Handle("/borrow", b.loanHandler.HandleLoan)

	b.bot.Handle("/stats", b.statsHandler.HandleStats)

	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/promo_create", b.adminHandler.HandlePromoCreate)

	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

// handleCallback routes callbacks to appropriate handlers by data prefix.
func (b *Bot) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}

	// telebot prefixes data of buttons with a unique id with \f
	data := strings.TrimPrefix(callback.Data, "\f")

	switch {
	case strings.HasPrefix(data, handler.PrefixTopPage):
		return b.topHandler.HandleTopPage(c)
	case strings.HasPrefix(data, handler.PrefixLoan):
		return b.loanHandler.HandleLoanCallback(c)
	default:
		log.Debug().Str("data", data).Msg("Unknown callback")
		return c.Respond()
	}
}

// Run polls for updates until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.bot.SetCommands(commands); err != nil {
		log.Warn().Err(err).Msg("Failed to set bot commands")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info().Str("bot", b.bot.Me.Username).Msg("Starting bot...")
		b.bot.Start()
	}()

	<-ctx.Done()
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
	<-done
	return nil
}
