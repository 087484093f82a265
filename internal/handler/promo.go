package handler

import (
	"strings"

	tele "gopkg.in/telebot.v3"

	"telegram-grower-bot/internal/service"
)

const helpText = `🌱 <b>Dick grower</b>

/grow - grow your dick once a day
/top - the chat leaderboard
/dod - choose the dick of the day
/loan - borrow your way out of negative length
/stats - your standing in this chat and overall
/promo &lt;code&gt; - activate a promo code`

// PromoHandler handles promo codes and the start and help commands.
type PromoHandler struct {
	promos *service.PromoService
	opts   Options
}

// NewPromoHandler creates a new PromoHandler.
func NewPromoHandler(promos *service.PromoService, opts Options) *PromoHandler {
	return &PromoHandler{promos: promos, opts: opts}
}

// HandlePromo handles the /promo command.
// Format: /promo <code>
func (h *PromoHandler) HandlePromo(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	args := c.Args()
	if len(args) < 1 {
		return c.Reply("❌ Usage: /promo <code>")
	}
	return h.activate(c, strings.TrimSpace(args[0]))
}

// HandleStart handles /start, activating a promo code carried by a deep link.
func (h *PromoHandler) HandleStart(c tele.Context) error {
	if c.Sender() == nil {
		return nil
	}
	if code, ok := service.DecodeDeepLink(c.Message().Payload); ok {
		return h.activate(c, code)
	}
	return c.Send(helpText, tele.ModeHTML)
}

// HandleHelp handles the /help command.
func (h *PromoHandler) HandleHelp(c tele.Context) error {
	return c.Send(helpText, tele.ModeHTML)
}

func (h *PromoHandler) activate(c tele.Context, code string) error {
	ctx, cancel := h.opts.context()
	defer cancel()

	out, err := h.promos.Activate(ctx, playerOf(c.Sender()), code, h.opts.now())
	if err != nil {
		return replyFailure(c, "activate promo", err)
	}
	return c.Reply(FormatPromo(out), tele.ModeHTML)
}
