package handler

import (
	"errors"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-grower-bot/internal/pkg/lock"
	"telegram-grower-bot/internal/service"
)

// LoanHandler handles loan offers and their buttons.
type LoanHandler struct {
	loans    *service.LoanService
	userLock *lock.UserLock
	opts     Options
}

// NewLoanHandler creates a new LoanHandler. A nil userLock lets overlapping
// presses of the same user through.
func NewLoanHandler(loans *service.LoanService, userLock *lock.UserLock, opts Options) *LoanHandler {
	return &LoanHandler{loans: loans, userLock: userLock, opts: opts}
}

// HandleLoan handles the /loan command.
func (h *LoanHandler) HandleLoan(c tele.Context) error {
	sender, chat := c.Sender(), c.Chat()
	if sender == nil || chat == nil {
		return nil
	}
	ctx, cancel := h.opts.context()
	defer cancel()

	out, err := h.loans.Request(ctx, playerOf(sender), chat.ID)
	if err != nil {
		return replyFailure(c, "request loan", err)
	}
	if out.Status != service.LoanOffer {
		return c.Reply(FormatLoan(out), tele.ModeHTML)
	}
	return c.Reply(FormatLoan(out), tele.ModeHTML, LoanKeyboard(sender.ID, out.Debt, out.Ratio))
}

// LoanKeyboard returns the agree and refuse buttons of an offer.
func LoanKeyboard(uid, debt int64, ratio float64) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(
		markup.Data("✅ Agree", "", LoanConfirmData(uid, debt, ratio)),
		markup.Data("❌ Refuse", "", LoanRefuseData(uid)),
	))
	return markup
}

// HandleLoanCallback handles the loan:<uid>:... buttons.
func (h *LoanHandler) HandleLoanCallback(c tele.Context) error {
	sender, chat := c.Sender(), c.Chat()
	if sender == nil || chat == nil {
		return nil
	}
	cb, err := ParseLoanCallback(callbackData(c))
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: msgBadData, ShowAlert: true})
	}
	if h.userLock == nil {
		return h.answerLoan(c, cb)
	}

	err = h.userLock.TryWithLock(sender.ID, func() error {
		return h.answerLoan(c, cb)
	})
	if errors.Is(err, lock.ErrBusy) {
		log.Debug().Int64("uid", sender.ID).Msg("Dropped overlapping loan answer")
		return c.Respond()
	}
	return err
}

func (h *LoanHandler) answerLoan(c tele.Context, cb *LoanCallback) error {
	requester := playerOf(c.Sender())
	ctx, cancel := h.opts.context()
	defer cancel()

	if cb.Action == LoanActionRefused {
		if err := h.loans.Refuse(ctx, requester, cb.OwnerUID); err != nil {
			return respondFailure(c, "refuse loan", err)
		}
		if err := c.Respond(); err != nil {
			return err
		}
		if err := c.Delete(); err != nil {
			return c.Edit("👌 Loan refused.")
		}
		return nil
	}

	out, err := h.loans.Confirm(ctx, requester, cb.OwnerUID, c.Chat().ID, cb.Ratio, h.opts.now())
	if err != nil {
		return respondFailure(c, "confirm loan", err)
	}
	if out.Status == service.LoanDisabled {
		return c.Respond(&tele.CallbackResponse{Text: msgDisabled, ShowAlert: true})
	}
	if err := c.Respond(); err != nil {
		return err
	}
	return c.Edit(FormatLoan(out), tele.ModeHTML)
}
