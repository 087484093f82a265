package memstore

import (
	"context"
	"strings"
	"time"

	"telegram-grower-bot/internal/ledger"
	"telegram-grower-bot/internal/model"
)

var _ ledger.Tx = (*tx)(nil)

type tx struct {
	st *state
}

func (t *tx) Dick(ctx context.Context, uid, chatID int64) (*model.Dick, error) {
	return t.st.dick(uid, chatID)
}

func (t *tx) ActiveLoans(ctx context.Context, uid, chatID int64) ([]model.Loan, error) {
	return t.st.activeLoans(uid, chatID), nil
}

func (t *tx) Champion(ctx context.Context, chatID int64, day time.Time) (*model.Champion, error) {
	return t.st.champion(chatID, day)
}

func (t *tx) Top(ctx context.Context, chatID int64, offset, limit int) ([]model.TopEntry, error) {
	return t.st.top(chatID, offset, limit), nil
}

func (t *tx) Position(ctx context.Context, uid, chatID int64) (int, error) {
	return t.st.position(uid, chatID)
}

func (t *tx) PersonalStats(ctx context.Context, uid int64) (*model.PersonalStats, error) {
	return t.st.personalStats(uid), nil
}

func (t *tx) UpsertUser(ctx context.Context, uid int64, name string, at time.Time) (*model.User, error) {
	u, ok := t.st.users[uid]
	if !ok {
		u = model.User{UID: uid, CreatedAt: at}
	}
	u.Name = name
	t.st.users[uid] = u
	return &u, nil
}

func (t *tx) EnsureDick(ctx context.Context, uid, chatID int64, at time.Time) (*model.Dick, bool, error) {
	key := dickKey{uid, chatID}
	if d, ok := t.st.dicks[key]; ok {
		return &d, false, nil
	}
	d := model.Dick{
		UID:       uid,
		ChatID:    chatID,
		CreatedAt: at,
		UpdatedAt: model.NeverGrown,
	}
	t.st.dicks[key] = d
	return &d, true, nil
}

func (t *tx) ApplyGrowth(ctx context.Context, w ledger.GrowthWrite) (*ledger.GrowthApplied, error) {
	key := dickKey{w.UID, w.ChatID}
	d, ok := t.st.dicks[key]
	if !ok {
		return nil, ledger.ErrNotFound
	}

	bonus := d.GrownSince(w.DayStart)
	if bonus && d.BonusAttempts <= 0 {
		return nil, ledger.ErrConflict
	}
	if bonus {
		d.BonusAttempts--
	}
	d.Length += w.Delta
	d.UpdatedAt = w.At
	t.st.dicks[key] = d

	return &ledger.GrowthApplied{Dick: d, Bonus: bonus}, nil
}

func (t *tx) AwardDick(ctx context.Context, w ledger.AwardWrite) (*model.Dick, error) {
	key := dickKey{w.UID, w.ChatID}
	d, ok := t.st.dicks[key]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	d.Length += w.Delta
	d.BonusAttempts += w.BonusAttempts
	d.UpdatedAt = w.At
	t.st.dicks[key] = d
	return &d, nil
}

func (t *tx) ResetDick(ctx context.Context, uid, chatID int64) (*model.Dick, error) {
	key := dickKey{uid, chatID}
	d, ok := t.st.dicks[key]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	d.Length = 0
	d.BonusAttempts++
	t.st.dicks[key] = d
	return &d, nil
}

func (t *tx) CreateLoan(ctx context.Context, loan model.Loan) (*model.Loan, error) {
	loan.ID = t.st.nextLoanID
	t.st.nextLoanID++
	t.st.loans = append(t.st.loans, loan)
	return &loan, nil
}

func (t *tx) RepayLoan(ctx context.Context, loanID, amount int64, at time.Time) (*model.Loan, error) {
	for i := range t.st.loans {
		l := t.st.loans[i]
		if l.ID != loanID {
			continue
		}
		if !l.Active() || amount <= 0 || amount > l.Debt {
			return nil, ledger.ErrConflict
		}
		l.Debt -= amount
		if l.Debt == 0 {
			repaidAt := at
			l.RepaidAt = &repaidAt
		}
		t.st.loans[i] = l
		return &l, nil
	}
	return nil, ledger.ErrNotFound
}

func (t *tx) Candidates(ctx context.Context, chatID int64, since time.Time) ([]model.Candidate, error) {
	var candidates []model.Candidate
	for _, row := range t.st.ranking(chatID) {
		if !row.UpdatedAt.After(since) {
			continue
		}
		candidates = append(candidates, model.Candidate{
			UID:       row.UID,
			Name:      row.Name,
			Length:    row.Length,
			UpdatedAt: row.UpdatedAt,
		})
	}
	return candidates, nil
}

func (t *tx) InsertChampion(ctx context.Context, c model.Champion) error {
	key := newChampionKey(c.ChatID, c.Day)
	if _, ok := t.st.champions[key]; ok {
		return ledger.ErrConflict
	}
	if c.WinnerName == "" {
		c.WinnerName = t.st.users[c.WinnerUID].Name
	}
	t.st.champions[key] = c
	return nil
}

func (t *tx) ConsumePromo(ctx context.Context, code string, day time.Time) (*model.PromoCode, error) {
	key := strings.ToLower(code)
	p, ok := t.st.promos[key]
	if !ok || !p.LiveOn(day) {
		return nil, ledger.ErrNotFound
	}
	p.Capacity--
	t.st.promos[key] = p
	return &p, nil
}

func (t *tx) GrowAllDicks(ctx context.Context, uid, delta int64, bonusAttempts int) (int, error) {
	affected := 0
	for k, d := range t.st.dicks {
		if k.uid != uid {
			continue
		}
		d.Length += delta
		d.BonusAttempts += bonusAttempts
		t.st.dicks[k] = d
		affected++
	}
	return affected, nil
}

func (t *tx) InsertActivation(ctx context.Context, a model.PromoActivation) error {
	key := activationKey{uid: a.UID, code: strings.ToLower(a.Code)}
	if _, ok := t.st.activations[key]; ok {
		return ledger.ErrConflict
	}
	t.st.activations[key] = a
	return nil
}
