package handler

import (
	tele "gopkg.in/telebot.v3"

	"telegram-grower-bot/internal/service"
)

// StatsHandler handles the /stats command.
type StatsHandler struct {
	stats *service.StatsService
	opts  Options
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(stats *service.StatsService, opts Options) *StatsHandler {
	return &StatsHandler{stats: stats, opts: opts}
}

// HandleStats answers with the sender's standing in the current chat and
// across all chats. Private chats only get the latter.
func (h *StatsHandler) HandleStats(c tele.Context) error {
	sender, chat := c.Sender(), c.Chat()
	if sender == nil || chat == nil {
		return nil
	}
	ctx, cancel := h.opts.context()
	defer cancel()

	var chatStats *service.ChatStats
	if chat.Type != tele.ChatPrivate {
		var err error
		if chatStats, err = h.stats.ChatStats(ctx, sender.ID, chat.ID); err != nil {
			return replyFailure(c, "chat stats", err)
		}
	}
	personal, err := h.stats.Personal(ctx, sender.ID)
	if err != nil {
		return replyFailure(c, "personal stats", err)
	}
	return c.Reply(FormatStats(chatStats, personal), tele.ModeHTML)
}
