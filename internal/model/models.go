// Package model defines the data models for the grower bot ledger.
package model

import "time"

// NeverGrown is the updated_at sentinel of a dick row that has been created
// but whose first growth has not been committed yet.
var NeverGrown = time.Unix(0, 0).UTC()

// User represents a Telegram user known to the bot.
type User struct {
	UID       int64     `db:"uid"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

// Dick is the per-chat record of a player. At most one exists per (uid, chat_id).
type Dick struct {
	UID           int64     `db:"uid"`
	ChatID        int64     `db:"chat_id"`
	Length        int64     `db:"length"`
	BonusAttempts int       `db:"bonus_attempts"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// GrownSince reports whether the record was updated at or after dayStart.
func (d *Dick) GrownSince(dayStart time.Time) bool {
	return !d.UpdatedAt.Before(dayStart)
}

// Loan is a debt taken in exchange for resetting a negative length to zero.
type Loan struct {
	ID          int64      `db:"id"`
	UID         int64      `db:"uid"`
	ChatID      int64      `db:"chat_id"`
	Principal   int64      `db:"principal"`
	Debt        int64      `db:"debt"`
	PayoutRatio float64    `db:"payout_ratio"`
	CreatedAt   time.Time  `db:"created_at"`
	RepaidAt    *time.Time `db:"repaid_at"`
}

// Active reports whether the loan still has outstanding debt.
func (l *Loan) Active() bool {
	return l.RepaidAt == nil
}

// Champion is the daily champion record of a chat. Immutable once written.
type Champion struct {
	ChatID     int64     `db:"chat_id"`
	Day        time.Time `db:"day"`
	WinnerUID  int64     `db:"winner_uid"`
	WinnerName string    `db:"name"`
	Bonus      int64     `db:"bonus"`
	CreatedAt  time.Time `db:"created_at"`
}

// Candidate is an active player eligible for the daily champion draw.
type Candidate struct {
	UID       int64     `db:"uid"`
	Name      string    `db:"name"`
	Length    int64     `db:"length"`
	UpdatedAt time.Time `db:"updated_at"`
}

// TopEntry is a row of the chat leaderboard.
type TopEntry struct {
	Position  int       `db:"position"`
	UID       int64     `db:"uid"`
	Name      string    `db:"name"`
	Length    int64     `db:"length"`
	UpdatedAt time.Time `db:"updated_at"`
}

// PersonalStats aggregates a player's records across all chats.
type PersonalStats struct {
	Chats       int   `db:"chats"`
	MaxLength   int64 `db:"max_length"`
	TotalLength int64 `db:"total_length"`
}

// PromoCode is a redeemable code granting bonus length in every chat.
type PromoCode struct {
	Code        string     `db:"code"`
	BonusLength int64      `db:"bonus_length"`
	Capacity    int        `db:"capacity"`
	Since       time.Time  `db:"since"`
	Until       *time.Time `db:"until"`
}

// LiveOn reports whether the code can be activated on the given day.
func (p *PromoCode) LiveOn(day time.Time) bool {
	if p.Capacity <= 0 || day.Before(p.Since) {
		return false
	}
	return p.Until == nil || !day.After(*p.Until)
}

// PromoActivation records a user's redemption of a promo code.
type PromoActivation struct {
	UID           int64     `db:"uid"`
	Code          string    `db:"code"`
	AffectedChats int       `db:"affected_chats"`
	CreatedAt     time.Time `db:"created_at"`
}
