package perk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"telegram-grower-bot/internal/game"
	"telegram-grower-bot/internal/model"
)

func TestHelpPussies(t *testing.T) {
	tests := []struct {
		name     string
		coef     float64
		value    int64
		delta    int64
		expected int64
	}{
		{"disabled", 0, -10, 3, 3},
		{"positive value", 0.5, 10, 3, 3},
		{"zero value", 0.5, 0, 3, 3},
		{"negative value", 0.5, -10, 3, 8},
		{"rounds half away from zero", 0.5, -3, -2, 0},
		{"rounds to nothing", 0.01, -10, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := HelpPussies{Coef: tt.coef}.Apply(game.Change{CurrentValue: tt.value, Delta: tt.delta})
			assert.Equal(t, tt.expected, out.Delta)
		})
	}
}

func TestLoanPayoutSkipsNonPositiveDelta(t *testing.T) {
	in := game.Change{Delta: -3, Loans: []model.Loan{{ID: 1, Debt: 10, PayoutRatio: 0.5}}}
	out := LoanPayout{}.Apply(in)
	assert.Equal(t, in.Delta, out.Delta)
	assert.Empty(t, out.Payments)
}

func TestLoanPayoutFIFO(t *testing.T) {
	in := game.Change{
		Delta: 10,
		Loans: []model.Loan{
			{ID: 1, Debt: 2, PayoutRatio: 0.8},
			{ID: 2, Debt: 10, PayoutRatio: 0.1},
		},
	}

	out := LoanPayout{}.Apply(in)

	require.Len(t, out.Payments, 2)
	assert.Equal(t, game.Payment{LoanID: 1, Amount: 2}, out.Payments[0])
	assert.Equal(t, game.Payment{LoanID: 2, Amount: 6}, out.Payments[1])
	assert.Equal(t, int64(2), out.Delta)
	assert.Equal(t, int64(8), out.Paid())
	assert.Equal(t, []game.Contribution{{Perk: NameLoanPayout, Amount: -8}}, out.Contributions)
	assert.Empty(t, in.Payments)
}

func TestLoanPayoutCappedByDebt(t *testing.T) {
	out := LoanPayout{}.Apply(game.Change{
		Delta: 10,
		Loans: []model.Loan{{ID: 1, Debt: 3, PayoutRatio: 0.9}},
	})
	assert.Equal(t, int64(3), out.Paid())
	assert.Equal(t, int64(7), out.Delta)
}

// TestLoanPayoutConservesDelta checks that the delta is only moved, never created.
// Property: Payout Conservation
func TestLoanPayoutConservesDelta(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		delta := rapid.Int64Range(-20, 100).Draw(t, "delta")
		ratio := rapid.Float64Range(0.01, 0.99).Draw(t, "ratio")
		n := rapid.IntRange(0, 4).Draw(t, "loans")

		var loans []model.Loan
		var debt int64
		for i := 0; i < n; i++ {
			d := rapid.Int64Range(1, 50).Draw(t, "debt")
			loans = append(loans, model.Loan{ID: int64(i + 1), Debt: d, PayoutRatio: ratio})
			debt += d
		}

		out := LoanPayout{}.Apply(game.Change{Delta: delta, Loans: loans})

		if out.Delta+out.Paid() != delta {
			t.Fatalf("delta %d + paid %d != %d", out.Delta, out.Paid(), delta)
		}
		if out.Paid() > debt {
			t.Fatalf("paid %d exceeds debt %d", out.Paid(), debt)
		}
		if delta > 0 && out.Delta < 0 {
			t.Fatalf("positive delta %d turned negative %d", delta, out.Delta)
		}
		for i, p := range out.Payments {
			if p.Amount > loans[p.LoanID-1].Debt {
				t.Fatalf("payment %d overpays loan %d", i, p.LoanID)
			}
			if i > 0 && loans[out.Payments[i-1].LoanID-1].Debt != out.Payments[i-1].Amount {
				t.Fatalf("loan %d paid before loan %d was retired", p.LoanID, out.Payments[i-1].LoanID)
			}
		}
	})
}

func TestDefaultPipelineOrder(t *testing.T) {
	p, err := game.NewPipeline(Default(0.5)...)
	require.NoError(t, err)
	assert.Equal(t, []string{NameHelpPussies, NameLoanPayout}, p.Names())

	// help-pussies turns the delta positive, so the payout applies afterwards
	out := p.Apply(game.Change{
		CurrentValue: -10,
		Delta:        -1,
		Loans:        []model.Loan{{ID: 1, Debt: 100, PayoutRatio: 0.5}},
	})
	assert.Equal(t, int64(2), out.Delta)
	assert.Equal(t, int64(2), out.Paid())
	assert.Equal(t, []game.Contribution{
		{Perk: NameHelpPussies, Amount: 5},
		{Perk: NameLoanPayout, Amount: -2},
	}, out.Contributions)
}
