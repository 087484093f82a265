package handler

import (
	tele "gopkg.in/telebot.v3"

	"telegram-grower-bot/internal/service"
)

// GrowHandler handles the daily growth and champion commands.
type GrowHandler struct {
	growth   *service.GrowthService
	champion *service.ChampionService
	opts     Options
}

// NewGrowHandler creates a new GrowHandler.
func NewGrowHandler(growth *service.GrowthService, champion *service.ChampionService, opts Options) *GrowHandler {
	return &GrowHandler{growth: growth, champion: champion, opts: opts}
}

// HandleGrow handles the /grow command.
func (h *GrowHandler) HandleGrow(c tele.Context) error {
	sender, chat := c.Sender(), c.Chat()
	if sender == nil || chat == nil {
		return nil
	}
	ctx, cancel := h.opts.context()
	defer cancel()

	out, err := h.growth.Grow(ctx, playerOf(sender), chat.ID, h.opts.now())
	if err != nil {
		return replyFailure(c, "grow", err)
	}
	return c.Reply(FormatGrow(out), tele.ModeHTML)
}

// HandleDickOfDay handles the /dod command.
func (h *GrowHandler) HandleDickOfDay(c tele.Context) error {
	chat := c.Chat()
	if chat == nil {
		return nil
	}
	if chat.Type == tele.ChatPrivate {
		return c.Reply("👥 The dick of the day is chosen in group chats only.")
	}
	ctx, cancel := h.opts.context()
	defer cancel()

	out, err := h.champion.Choose(ctx, chat.ID, h.opts.now())
	if err != nil {
		return replyFailure(c, "choose champion", err)
	}
	return c.Reply(FormatChampion(out), tele.ModeHTML)
}
