// Package perk implements the growth modifiers.
package perk

import (
	"math"
	"slices"

	"telegram-grower-bot/internal/game"
)

// Perk names.
const (
	NameHelpPussies = "help-pussies"
	NameLoanPayout  = "loan-payout"
)

// HelpPussies adds round(Coef × |value|) to the delta of players whose
// length is negative. It is off when Coef <= 0.
type HelpPussies struct {
	Coef float64
}

func (HelpPussies) Name() string { return NameHelpPussies }

func (h HelpPussies) Apply(c game.Change) game.Change {
	if h.Coef <= 0 || c.CurrentValue >= 0 {
		return c
	}
	bonus := int64(math.Round(h.Coef * math.Abs(float64(c.CurrentValue))))
	if bonus == 0 {
		return c
	}
	c.Delta += bonus
	c.Contributions = append(slices.Clone(c.Contributions), game.Contribution{Perk: NameHelpPussies, Amount: bonus})
	return c
}

// LoanPayout diverts part of a positive delta to the player's active loans.
//
// The budget is round(delta × ratio of the oldest loan), capped by the total
// outstanding debt, and is spent oldest loan first.
type LoanPayout struct{}

func (LoanPayout) Name() string { return NameLoanPayout }

func (LoanPayout) Apply(c game.Change) game.Change {
	if len(c.Loans) == 0 || c.Delta <= 0 {
		return c
	}

	var debt int64
	for _, l := range c.Loans {
		debt += l.Debt
	}
	budget := min(int64(math.Round(float64(c.Delta)*c.Loans[0].PayoutRatio)), debt)
	if budget <= 0 {
		return c
	}

	payments := make([]game.Payment, 0, len(c.Loans))
	var paid int64
	for _, l := range c.Loans {
		if budget == 0 {
			break
		}
		amount := min(budget, l.Debt)
		if amount <= 0 {
			continue
		}
		payments = append(payments, game.Payment{LoanID: l.ID, Amount: amount})
		budget -= amount
		paid += amount
	}

	c.Delta -= paid
	c.Payments = append(slices.Clone(c.Payments), payments...)
	c.Contributions = append(slices.Clone(c.Contributions), game.Contribution{Perk: NameLoanPayout, Amount: -paid})
	return c
}

// Default returns the perks in their fixed application order.
func Default(helpPussiesCoef float64) []game.Perk {
	return []game.Perk{
		HelpPussies{Coef: helpPussiesCoef},
		LoanPayout{},
	}
}
