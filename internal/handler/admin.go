package handler

import (
	"errors"
	"fmt"
	"html"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-grower-bot/internal/model"
	"telegram-grower-bot/internal/pkg/day"
	"telegram-grower-bot/internal/service"
)

const promoCreateUsage = "❌ Usage: /promo_create <code> <bonus> <capacity> [days]\nExample: /promo_create SPRING24 5 100 7"

// AdminHandler handles admin-related commands.
type AdminHandler struct {
	promos   *service.PromoService
	timezone *time.Location
	botName  string
	opts     Options
}

// NewAdminHandler creates a new AdminHandler. botName is used to build
// deep links and may be empty.
func NewAdminHandler(promos *service.PromoService, timezone *time.Location, botName string, opts Options) *AdminHandler {
	if timezone == nil {
		timezone = time.UTC
	}
	return &AdminHandler{promos: promos, timezone: timezone, botName: botName, opts: opts}
}

// HandlePromoCreate handles the /promo_create command.
// Format: /promo_create <code> <bonus> <capacity> [days]
func (h *AdminHandler) HandlePromoCreate(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	now := h.opts.now()
	p, err := ParsePromoArgs(c.Args(), day.Date(now, h.timezone))
	if err != nil {
		return c.Reply(err.Error())
	}

	ctx, cancel := h.opts.context()
	defer cancel()
	if err := h.promos.Create(ctx, p); err != nil {
		if errors.Is(err, service.ErrPromoExists) {
			return c.Reply("❌ This promo code already exists")
		}
		return replyFailure(c, "create promo", err)
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Str("code", p.Code).
		Int64("bonus", p.BonusLength).
		Int("capacity", p.Capacity).
		Str("operation", "promo_create").
		Msg("Admin operation executed")

	text := fmt.Sprintf("✅ Promo code <code>%s</code> created: +%d cm, %d activations",
		html.EscapeString(p.Code), p.BonusLength, p.Capacity)
	if p.Until != nil {
		text += fmt.Sprintf(", until %s", p.Until.Format(time.DateOnly))
	}
	if h.botName != "" {
		text += fmt.Sprintf("\n🔗 https://t.me/%s?start=%s", h.botName, service.EncodeDeepLink(p.Code))
	}
	return c.Reply(text, tele.ModeHTML)
}

// ParsePromoArgs parses <code> <bonus> <capacity> [days]. The code is live
// from today; with days it expires after that many days including today.
func ParsePromoArgs(args []string, today time.Time) (model.PromoCode, error) {
	if len(args) < 3 {
		return model.PromoCode{}, errors.New(promoCreateUsage)
	}
	if !service.ValidCode(args[0]) {
		return model.PromoCode{}, errors.New("❌ A code is 4 to 16 letters, digits, '_' or '-'")
	}
	bonus, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || bonus == 0 {
		return model.PromoCode{}, errors.New("❌ The bonus must be a non-zero integer")
	}
	capacity, err := strconv.Atoi(args[2])
	if err != nil || capacity <= 0 {
		return model.PromoCode{}, errors.New("❌ The capacity must be a positive integer")
	}

	p := model.PromoCode{Code: args[0], BonusLength: bonus, Capacity: capacity, Since: today}
	if len(args) > 3 {
		days, err := strconv.Atoi(args[3])
		if err != nil || days <= 0 {
			return model.PromoCode{}, errors.New("❌ The number of days must be a positive integer")
		}
		until := today.AddDate(0, 0, days-1)
		p.Until = &until
	}
	return p, nil
}
