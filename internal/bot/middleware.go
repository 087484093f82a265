package bot

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v3"

	"telegram-grower-bot/internal/config"
)

// requestIDKey is the context key under which LoggingMiddleware stores
// the update's request id.
const requestIDKey = "request_id"

// PrivateUsers remembers users seen in whitelisted groups so they may use
// the bot in private chat. Only the most recent users are kept.
type PrivateUsers struct {
	cache *lru.Cache
}

// NewPrivateUsers creates a PrivateUsers remembering up to size users.
func NewPrivateUsers(size int) (*PrivateUsers, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create private user cache: %w", err)
	}
	return &PrivateUsers{cache: cache}, nil
}

// Allow marks a user as allowed to use private chat.
func (p *PrivateUsers) Allow(userID int64) {
	p.cache.Add(userID, struct{}{})
}

// Allowed checks if a user is allowed to use private chat.
func (p *PrivateUsers) Allowed(userID int64) bool {
	return p.cache.Contains(userID)
}

// WhitelistMiddleware creates a middleware that checks if the chat is whitelisted.
func WhitelistMiddleware(cfg *config.Config, users *PrivateUsers) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			sender := c.Sender()

			if chat == nil || sender == nil {
				return nil
			}

			if chat.Type == tele.ChatPrivate {
				if len(cfg.Whitelist.Chats) == 0 || users.Allowed(sender.ID) {
					return next(c)
				}
				log.Debug().
					Int64("user_id", sender.ID).
					Msg("Ignoring private chat from user not in whitelist cache")
				return nil
			}

			if !cfg.IsChatAllowed(chat.ID) {
				log.Debug().
					Int64("chat_id", chat.ID).
					Msg("Ignoring command from non-whitelisted chat")
				return nil
			}

			users.Allow(sender.ID)
			return next(c)
		}
	}
}

// AdminMiddleware creates a middleware that checks if the user is an admin.
func AdminMiddleware(cfg *config.Config) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil {
				return nil
			}

			if !cfg.IsAdmin(sender.ID) {
				log.Warn().
					Int64("user_id", sender.ID).
					Str("command", c.Text()).
					Msg("Non-admin attempted admin command")
				return c.Reply("❌ Permission denied: admin only")
			}

			return next(c)
		}
	}
}

// RateLimiter throttles commands per user with a token bucket each.
// Buckets of the least recently seen users are dropped first.
type RateLimiter struct {
	limiters *lru.Cache
	rate     rate.Limit
	burst    int
}

// NewRateLimiter creates a RateLimiter allowing perSecond commands with
// the given burst, tracking up to size users. A non-positive perSecond
// disables throttling.
func NewRateLimiter(perSecond float64, burst, size int) (*RateLimiter, error) {
	limiters, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limiter cache: %w", err)
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{limiters: limiters, rate: rate.Limit(perSecond), burst: burst}, nil
}

// Allow reports whether the user may issue one more command now.
func (rl *RateLimiter) Allow(userID int64) bool {
	if rl.rate <= 0 {
		return true
	}
	return rl.limiter(userID).Allow()
}

func (rl *RateLimiter) limiter(userID int64) *rate.Limiter {
	if v, ok := rl.limiters.Get(userID); ok {
		return v.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(rl.rate, rl.burst)
	if prev, ok, _ := rl.limiters.PeekOrAdd(userID, limiter); ok {
		return prev.(*rate.Limiter)
	}
	return limiter
}

// Middleware drops updates from users over their rate. Throttled button
// presses get a short notice, throttled messages are ignored.
func (rl *RateLimiter) Middleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil || rl.Allow(sender.ID) {
				return next(c)
			}

			log.Debug().
				Int64("user_id", sender.ID).
				Msg("Rate limit exceeded")
			if c.Callback() != nil {
				return c.Respond(&tele.CallbackResponse{Text: "⏳ Slow down"})
			}
			return nil
		}
	}
}

// LoggingMiddleware creates a middleware that logs all incoming updates
// under a fresh request id.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			requestID := uuid.NewString()
			c.Set(requestIDKey, requestID)

			sender := c.Sender()
			chat := c.Chat()

			logger := log.With().Str("request_id", requestID)
			if sender != nil {
				logger = logger.
					Int64("user_id", sender.ID).
					Str("username", sender.Username)
			}
			if chat != nil {
				logger = logger.
					Int64("chat_id", chat.ID).
					Str("chat_type", string(chat.Type))
			}
			l := logger.Logger()

			text := c.Text()
			if cb := c.Callback(); cb != nil {
				text = cb.Data
			}
			l.Debug().Str("text", text).Msg("Received update")

			start := time.Now()
			err := next(c)
			event := l.Debug()
			if err != nil {
				event = l.Error().Err(err)
			}
			event.Dur("took", time.Since(start)).Msg("Handled update")
			return err
		}
	}
}

// RecoveryMiddleware creates a middleware that recovers from panics.
func RecoveryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Interface("request_id", c.Get(requestIDKey)).
						Msg("Recovered from panic in handler")
					err = c.Reply("❌ Internal error, please try again later")
				}
			}()
			return next(c)
		}
	}
}
