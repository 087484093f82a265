package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"telegram-grower-bot/internal/ledger"
	"telegram-grower-bot/internal/model"
)

// LoanStatus tells how a loan request or confirmation ended.
type LoanStatus int

const (
	LoanOffer LoanStatus = iota
	LoanConfirmed
	LoanDisabled
	LoanInDebt
	LoanNotNegative
	LoanRatioChanged
)

func (s LoanStatus) String() string {
	switch s {
	case LoanOffer:
		return "offer"
	case LoanConfirmed:
		return "confirmed"
	case LoanDisabled:
		return "disabled"
	case LoanInDebt:
		return "in_debt"
	case LoanNotNegative:
		return "not_negative"
	case LoanRatioChanged:
		return "ratio_changed"
	default:
		return "unknown"
	}
}

// LoanConfig holds the loan settings.
type LoanConfig struct {
	// PayoutRatio is the share of future growth diverted to debt. The
	// feature is on only when it lies strictly between 0 and 1.
	PayoutRatio float64
	Multiple    bool
}

// LoanOutcome is the result of LoanService.Request and LoanService.Confirm.
type LoanOutcome struct {
	Status LoanStatus
	// Value is the player's length when the request was evaluated.
	Value int64
	// Debt is the proposed debt for an offer, the new debt once confirmed,
	// or the outstanding debt when the player is in debt.
	Debt  int64
	Ratio float64
	Loan  *model.Loan
}

// LoanService handles loans against a negative length.
type LoanService struct {
	store ledger.Store
	cfg   LoanConfig
}

// NewLoanService creates a new LoanService instance.
func NewLoanService(store ledger.Store, cfg LoanConfig) *LoanService {
	return &LoanService{store: store, cfg: cfg}
}

// Enabled reports whether loans are offered.
func (s *LoanService) Enabled() bool {
	return s.cfg.PayoutRatio > 0 && s.cfg.PayoutRatio < 1
}

// Ratio returns the configured payout ratio.
func (s *LoanService) Ratio() float64 {
	return s.cfg.PayoutRatio
}

// LoanDebt returns the debt for resetting value to zero at the given ratio.
func LoanDebt(value int64, ratio float64) int64 {
	return int64(math.Round(math.Abs(float64(value)) * (1 - ratio)))
}

// Request evaluates whether the player can take a loan and returns an offer.
func (s *LoanService) Request(ctx context.Context, player Player, chatID int64) (*LoanOutcome, error) {
	out := &LoanOutcome{Ratio: s.cfg.PayoutRatio}
	if !s.Enabled() {
		out.Status = LoanDisabled
		return out, nil
	}

	loans, err := s.store.ActiveLoans(ctx, player.UID, chatID)
	if err != nil {
		return nil, storeFailure("request loan", err)
	}
	if len(loans) > 0 && !s.cfg.Multiple {
		out.Status = LoanInDebt
		out.Debt = totalDebt(loans)
		return out, nil
	}

	d, err := s.store.Dick(ctx, player.UID, chatID)
	if errors.Is(err, ledger.ErrNotFound) {
		out.Status = LoanNotNegative
		return out, nil
	}
	if err != nil {
		return nil, storeFailure("request loan", err)
	}

	out.Value = d.Length
	if d.Length >= 0 {
		out.Status = LoanNotNegative
		return out, nil
	}
	out.Status = LoanOffer
	out.Debt = LoanDebt(d.Length, s.cfg.PayoutRatio)
	return out, nil
}

// Confirm accepts an offer. Only the requester may confirm it, and only
// while the presented ratio matches the configured one. A nil ratio comes
// from offers that predate ratio tracking and counts as changed.
// The length reset grants one bonus attempt.
func (s *LoanService) Confirm(ctx context.Context, requester Player, ownerUID, chatID int64, presented *float64, now time.Time) (*LoanOutcome, error) {
	if requester.UID != ownerUID {
		return nil, ErrNotOwner
	}

	out := &LoanOutcome{Ratio: s.cfg.PayoutRatio}
	if presented == nil {
		out.Status = LoanRatioChanged
		return out, nil
	}
	if !s.Enabled() {
		out.Status = LoanDisabled
		return out, nil
	}
	if *presented != s.cfg.PayoutRatio {
		out.Status = LoanRatioChanged
		return out, nil
	}

	err := s.store.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		if _, err := tx.UpsertUser(ctx, requester.UID, requester.Name, now); err != nil {
			return err
		}
		d, err := tx.Dick(ctx, requester.UID, chatID)
		if errors.Is(err, ledger.ErrNotFound) {
			out.Status = LoanNotNegative
			return nil
		}
		if err != nil {
			return err
		}
		loans, err := tx.ActiveLoans(ctx, requester.UID, chatID)
		if err != nil {
			return err
		}

		out.Value = d.Length
		if len(loans) > 0 && !s.cfg.Multiple {
			out.Status = LoanInDebt
			out.Debt = totalDebt(loans)
			return nil
		}
		if d.Length >= 0 {
			out.Status = LoanNotNegative
			return nil
		}

		if _, err := tx.ResetDick(ctx, requester.UID, chatID); err != nil {
			return err
		}
		debt := LoanDebt(d.Length, s.cfg.PayoutRatio)
		loan := model.Loan{
			UID:         requester.UID,
			ChatID:      chatID,
			Principal:   debt,
			Debt:        debt,
			PayoutRatio: s.cfg.PayoutRatio,
			CreatedAt:   now,
		}
		if debt == 0 {
			loan.RepaidAt = &now
		}
		created, err := tx.CreateLoan(ctx, loan)
		if err != nil {
			return err
		}

		out.Status = LoanConfirmed
		out.Debt = debt
		out.Loan = created
		return nil
	})
	if err != nil {
		return nil, storeFailure("confirm loan", err)
	}

	if out.Status == LoanConfirmed {
		log.Info().
			Int64("uid", requester.UID).
			Int64("chat_id", chatID).
			Int64("value", out.Value).
			Int64("debt", out.Debt).
			Msg("Loan taken")
	}
	return out, nil
}

// Refuse discards an offer. It only checks ownership; the ledger is untouched.
func (s *LoanService) Refuse(ctx context.Context, requester Player, ownerUID int64) error {
	if requester.UID != ownerUID {
		return ErrNotOwner
	}
	return nil
}

func totalDebt(loans []model.Loan) int64 {
	var debt int64
	for _, l := range loans {
		debt += l.Debt
	}
	return debt
}
