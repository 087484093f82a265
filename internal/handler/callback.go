package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"telegram-grower-bot/internal/service"
)

// Callback data prefixes routed by the bot.
const (
	PrefixTopPage = "top:page:"
	PrefixLoan    = "loan:"
)

var errBadCallback = errors.New("malformed callback data")

// TopPageData encodes a leaderboard page button.
func TopPageData(page int) string {
	return PrefixTopPage + strconv.Itoa(page)
}

// ParseTopPage decodes a leaderboard page button.
func ParseTopPage(data string) (int, error) {
	rest, ok := strings.CutPrefix(data, PrefixTopPage)
	if !ok {
		return 0, errBadCallback
	}
	page, err := service.ParsePage(rest)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", errBadCallback, err)
	}
	return page, nil
}

// LoanAction is the answer to a loan offer.
type LoanAction string

const (
	LoanActionConfirmed LoanAction = "confirmed"
	LoanActionRefused   LoanAction = "refused"
)

// LoanCallback is a decoded loan offer button.
type LoanCallback struct {
	OwnerUID int64
	Action   LoanAction
	// Debt and Ratio are what the offer showed. Ratio is nil for buttons
	// sent before the ratio was part of the payload.
	Debt  int64
	Ratio *float64
}

// LoanConfirmData encodes the confirmation button of a loan offer.
func LoanConfirmData(uid, debt int64, ratio float64) string {
	return fmt.Sprintf("%s%d:%s:%d:%s", PrefixLoan, uid, LoanActionConfirmed, debt,
		strconv.FormatFloat(ratio, 'g', -1, 64))
}

// LoanRefuseData encodes the refusal button of a loan offer.
func LoanRefuseData(uid int64) string {
	return fmt.Sprintf("%s%d:%s", PrefixLoan, uid, LoanActionRefused)
}

// ParseLoanCallback decodes loan:<uid>:confirmed:<debt>:<ratio> and
// loan:<uid>:refused.
func ParseLoanCallback(data string) (*LoanCallback, error) {
	parts := strings.Split(data, ":")
	if len(parts) < 3 || parts[0]+":" != PrefixLoan {
		return nil, errBadCallback
	}
	uid, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, errBadCallback
	}

	cb := &LoanCallback{OwnerUID: uid, Action: LoanAction(parts[2])}
	switch cb.Action {
	case LoanActionRefused:
		return cb, nil
	case LoanActionConfirmed:
	default:
		return nil, errBadCallback
	}

	if len(parts) < 5 {
		return cb, nil
	}
	if cb.Debt, err = strconv.ParseInt(parts[3], 10, 64); err != nil {
		return nil, errBadCallback
	}
	ratio, err := strconv.ParseFloat(parts[4], 64)
	if err != nil {
		return nil, errBadCallback
	}
	cb.Ratio = &ratio
	return cb, nil
}
