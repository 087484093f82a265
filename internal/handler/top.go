package handler

import (
	tele "gopkg.in/telebot.v3"

	"telegram-grower-bot/internal/service"
)

// TopHandler handles the chat leaderboard.
type TopHandler struct {
	leaderboard *service.LeaderboardService
	paging      bool
	opts        Options
}

// NewTopHandler creates a new TopHandler. Page buttons are shown only when
// paging is enabled.
func NewTopHandler(leaderboard *service.LeaderboardService, paging bool, opts Options) *TopHandler {
	return &TopHandler{leaderboard: leaderboard, paging: paging, opts: opts}
}

// HandleTop handles the /top command.
func (h *TopHandler) HandleTop(c tele.Context) error {
	sender, chat := c.Sender(), c.Chat()
	if sender == nil || chat == nil {
		return nil
	}
	ctx, cancel := h.opts.context()
	defer cancel()

	page, err := h.leaderboard.GetPage(ctx, chat.ID, sender.ID, 0, 0, h.opts.now())
	if err != nil {
		return replyFailure(c, "top", err)
	}
	return c.Reply(FormatTop(page), h.sendOptions(page)...)
}

// HandleTopPage handles the top:page:<n> callback.
func (h *TopHandler) HandleTopPage(c tele.Context) error {
	sender, chat := c.Sender(), c.Chat()
	if sender == nil || chat == nil {
		return nil
	}
	if !h.paging {
		return c.Respond(&tele.CallbackResponse{Text: msgDisabled, ShowAlert: true})
	}
	n, err := ParseTopPage(callbackData(c))
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: msgBadData, ShowAlert: true})
	}
	ctx, cancel := h.opts.context()
	defer cancel()

	page, err := h.leaderboard.GetPage(ctx, chat.ID, sender.ID, n, 0, h.opts.now())
	if err != nil {
		return respondFailure(c, "top page", err)
	}
	if err := c.Respond(); err != nil {
		return err
	}
	return c.Edit(FormatTop(page), h.sendOptions(page)...)
}

func (h *TopHandler) sendOptions(page *service.LeaderboardPage) []any {
	opts := []any{tele.ModeHTML}
	if markup := TopKeyboard(page, h.paging); markup != nil {
		opts = append(opts, markup)
	}
	return opts
}

// TopKeyboard returns the page buttons for a leaderboard page, or nil when
// there is nowhere to go.
func TopKeyboard(page *service.LeaderboardPage, paging bool) *tele.ReplyMarkup {
	if !paging || (!page.HasPrev && !page.HasNext) {
		return nil
	}
	markup := &tele.ReplyMarkup{}
	var row tele.Row
	if page.HasPrev {
		row = append(row, markup.Data("⬅️", "", TopPageData(page.Page-1)))
	}
	if page.HasNext {
		row = append(row, markup.Data("➡️", "", TopPageData(page.Page+1)))
	}
	markup.Inline(row)
	return markup
}
