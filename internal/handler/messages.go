package handler

import (
	"fmt"
	"html"
	"strings"
	"time"

	"telegram-grower-bot/internal/game"
	"telegram-grower-bot/internal/game/perk"
	"telegram-grower-bot/internal/model"
	"telegram-grower-bot/internal/service"
)

var perkTitles = map[string]string{
	perk.NameHelpPussies: "🤝 help for the shrunk",
	perk.NameLoanPayout:  "💳 loan payout",
}

// FormatGrow renders the /grow answer.
func FormatGrow(out *service.GrowOutcome) string {
	if out.Status == service.GrowAlreadyGrown {
		return fmt.Sprintf("⏳ You have already grown today. Next try in %s.", FormatDuration(out.UntilNextDay))
	}

	var b strings.Builder
	if out.FirstEver {
		b.WriteString("🌱 Welcome to the game!\n")
	}
	if out.Status == service.GrowBonus {
		b.WriteString("🎁 Bonus attempt used.\n")
	}

	switch {
	case out.Delta > 0:
		fmt.Fprintf(&b, "📈 Your dick has grown by <b>%d</b> cm", out.Delta)
	case out.Delta < 0:
		fmt.Fprintf(&b, "📉 Your dick has shrunk by <b>%d</b> cm", -out.Delta)
	default:
		b.WriteString("😐 Your dick has not changed")
	}
	fmt.Fprintf(&b, " and is now <b>%d</b> cm long.", out.Length)

	writeContributions(&b, out.Contributions)
	if out.DebtRepaid > 0 {
		fmt.Fprintf(&b, "\n💳 Repaid %d cm of debt.", out.DebtRepaid)
	}
	if out.LoansRetired > 0 {
		b.WriteString("\n🎉 Your debt is fully paid off!")
	}
	if out.Position > 0 {
		fmt.Fprintf(&b, "\n🏆 Your position in the top is <b>%d</b>.", out.Position)
	}
	fmt.Fprintf(&b, "\n⏳ Next growth in %s.", FormatDuration(out.UntilNextDay))
	return b.String()
}

// FormatChampion renders the /dod answer.
func FormatChampion(out *service.ChampionOutcome) string {
	name := html.EscapeString(out.WinnerName)
	switch out.Status {
	case service.ChampionNoCandidates:
		return "🤷 Nobody in this chat has grown recently, there is no one to choose from."
	case service.ChampionAlreadyChosen:
		return fmt.Sprintf("👑 The dick of the day has already been chosen: <b>%s</b>.", name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "👑 The dick of the day is <b>%s</b>!\n", name)
	fmt.Fprintf(&b, "🎁 Bonus: <b>%d</b> cm, it is now <b>%d</b> cm long.", out.Delta, out.Length)
	writeContributions(&b, out.Contributions)
	if out.DebtRepaid > 0 {
		fmt.Fprintf(&b, "\n💳 Repaid %d cm of debt.", out.DebtRepaid)
	}
	return b.String()
}

// FormatTop renders one leaderboard page.
func FormatTop(page *service.LeaderboardPage) string {
	if len(page.Rows) == 0 {
		if page.Page > 0 {
			return "📭 This page is empty."
		}
		return "📭 Nobody has grown in this chat yet. Try /grow!"
	}

	var b strings.Builder
	b.WriteString("🏆 <b>Top of the chat</b>\n\n")
	for _, row := range page.Rows {
		name := html.EscapeString(row.Name)
		if row.IsViewer {
			name = "<u>" + name + "</u>"
		}
		fmt.Fprintf(&b, "%d. %s: %d cm", row.Position, name, row.Length)
		if row.CanGrowToday {
			b.WriteString(" [+]")
		}
		b.WriteString("\n")
	}
	b.WriteString("\n[+] can grow today")
	return b.String()
}

// FormatLoan renders the /loan answer.
func FormatLoan(out *service.LoanOutcome) string {
	switch out.Status {
	case service.LoanDisabled:
		return msgDisabled
	case service.LoanInDebt:
		return fmt.Sprintf("💳 You still owe <b>%d</b> cm.", out.Debt)
	case service.LoanNotNegative:
		return "🙅 Loans are only for those whose length is below zero."
	case service.LoanOffer:
		return fmt.Sprintf(
			"💳 Your length will be reset to zero and you will owe <b>%d</b> cm.\n"+
				"%s of every future growth goes to the debt until it is repaid. Agree?",
			out.Debt, FormatPercent(out.Ratio))
	case service.LoanConfirmed:
		return fmt.Sprintf("✅ Done! Your length is zero and you owe <b>%d</b> cm.", out.Debt)
	case service.LoanRatioChanged:
		return "🔄 The loan terms have changed, please request a new loan."
	default:
		return msgFailed
	}
}

// FormatStats renders the /stats answer.
func FormatStats(chat *service.ChatStats, personal *model.PersonalStats) string {
	var b strings.Builder
	if chat != nil {
		if chat.Position > 0 {
			fmt.Fprintf(&b, "📏 Length: <b>%d</b> cm, position <b>%d</b>.\n", chat.Length, chat.Position)
		} else {
			b.WriteString("📏 You have not grown in this chat yet.\n")
		}
	}
	if personal != nil {
		fmt.Fprintf(&b, "🌍 Chats: <b>%d</b>, longest: <b>%d</b> cm, total: <b>%d</b> cm.",
			personal.Chats, personal.MaxLength, personal.TotalLength)
	}
	return strings.TrimSpace(b.String())
}

// FormatPromo renders a promo activation result.
func FormatPromo(out *service.PromoOutcome) string {
	switch out.Status {
	case service.PromoActivated:
		return fmt.Sprintf("🎉 Promo code activated! +%d cm in %d %s.",
			out.Bonus, out.AffectedChats, plural(out.AffectedChats, "chat", "chats"))
	case service.PromoAlreadyActivated:
		return "🙅 You have already activated this promo code."
	case service.PromoNoDicks:
		return "🌱 You have no dicks yet. Use /grow in a chat first."
	default:
		return "🙅 This promo code is invalid or has no activations left."
	}
}

// FormatDuration renders a wait as hours and minutes.
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

// FormatPercent renders a ratio as a whole percentage.
func FormatPercent(ratio float64) string {
	return fmt.Sprintf("%.0f%%", ratio*100)
}

func writeContributions(b *strings.Builder, contributions []game.Contribution) {
	for _, c := range contributions {
		title, ok := perkTitles[c.Perk]
		if !ok {
			title = c.Perk
		}
		fmt.Fprintf(b, "\n%s: %+d cm", title, c.Amount)
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
