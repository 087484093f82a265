// Package handler provides Telegram bot command handlers.
package handler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-grower-bot/internal/ledger"
	"telegram-grower-bot/internal/service"
)

const (
	msgTryLater = "⏳ The ledger is busy right now, please try again later"
	msgFailed   = "❌ Something went wrong, please try again"
	msgNotYours = "🚫 This button is not for you"
	msgBadData  = "❌ Invalid data"
	msgDisabled = "🚫 This feature is disabled"
)

// Clock returns the current time.
type Clock func() time.Time

// Options holds the settings shared by all handlers.
type Options struct {
	// Timeout bounds every ledger operation started by a command.
	Timeout time.Duration
	Now     Clock
}

func (o Options) context() (context.Context, context.CancelFunc) {
	if o.Timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), o.Timeout)
}

func (o Options) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// playerOf identifies the sender by id and display name.
func playerOf(u *tele.User) service.Player {
	return service.Player{UID: u.ID, Name: DisplayName(u)}
}

// DisplayName returns the user's full name, or the username when the
// name is empty.
func DisplayName(u *tele.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	if name == "" {
		name = "anonymous"
	}
	return name
}

// FailureText maps an operation error to the reply shown to the user.
func FailureText(err error) string {
	switch {
	case ledger.IsTransient(err):
		return msgTryLater
	case errors.Is(err, service.ErrNotOwner):
		return msgNotYours
	case errors.Is(err, service.ErrInvalidPage):
		return msgBadData
	default:
		return msgFailed
	}
}

// replyFailure logs err against the command and answers with FailureText.
func replyFailure(c tele.Context, op string, err error) error {
	log.Debug().Err(err).Str("op", op).Msg("Command failed")
	return c.Reply(FailureText(err))
}

// respondFailure answers a callback query with FailureText as an alert.
func respondFailure(c tele.Context, op string, err error) error {
	log.Debug().Err(err).Str("op", op).Msg("Callback failed")
	return c.Respond(&tele.CallbackResponse{Text: FailureText(err), ShowAlert: true})
}

// callbackData returns the callback payload without the telebot unique prefix.
func callbackData(c tele.Context) string {
	cb := c.Callback()
	if cb == nil {
		return ""
	}
	return strings.TrimPrefix(cb.Data, "\f")
}
