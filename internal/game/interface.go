// Package game defines the perk pipeline shared by daily growth and the
// daily champion bonus.
package game

import "telegram-grower-bot/internal/model"

// Contribution is the amount a single perk added to (or took from) the delta.
type Contribution struct {
	Perk   string
	Amount int64
}

// Payment is a part of the delta diverted to a loan.
type Payment struct {
	LoanID int64
	Amount int64
}

// Change is the value a perk takes and returns.
type Change struct {
	// CurrentValue is the player's length before the change.
	CurrentValue int64
	// Delta is the amount the length will move by.
	Delta int64
	// Loans are the player's active loans, oldest first.
	Loans []model.Loan

	Payments      []Payment
	Contributions []Contribution
}

// Paid returns the total amount diverted to loans.
func (c Change) Paid() int64 {
	var total int64
	for _, p := range c.Payments {
		total += p.Amount
	}
	return total
}

// Perk is a pure modifier of a Change.
// Implementations must not mutate slices of their input in place.
type Perk interface {
	// Name identifies the perk in outcomes and logs (e.g. "help-pussies").
	Name() string

	// Apply returns the modified change. A perk that does not apply returns its input.
	Apply(c Change) Change
}
