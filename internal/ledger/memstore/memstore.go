// Package memstore is an in-memory ledger.Store used by engine tests.
//
// Transactions are serialized behind one mutex. Each transaction works on a
// copy of the state, which replaces the committed state only when the
// callback returns nil and the context is still alive.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"telegram-grower-bot/internal/ledger"
	"telegram-grower-bot/internal/model"
)

var _ ledger.Store = (*Store)(nil)

type dickKey struct {
	uid    int64
	chatID int64
}

type championKey struct {
	chatID int64
	day    string
}

func newChampionKey(chatID int64, day time.Time) championKey {
	return championKey{chatID: chatID, day: day.Format(time.DateOnly)}
}

type activationKey struct {
	uid  int64
	code string
}

type state struct {
	users       map[int64]model.User
	dicks       map[dickKey]model.Dick
	loans       []model.Loan
	nextLoanID  int64
	champions   map[championKey]model.Champion
	promos      map[string]model.PromoCode
	activations map[activationKey]model.PromoActivation
}

func newState() *state {
	return &state{
		users:       make(map[int64]model.User),
		dicks:       make(map[dickKey]model.Dick),
		nextLoanID:  1,
		champions:   make(map[championKey]model.Champion),
		promos:      make(map[string]model.PromoCode),
		activations: make(map[activationKey]model.PromoActivation),
	}
}

func (s *state) clone() *state {
	c := &state{
		users:       make(map[int64]model.User, len(s.users)),
		dicks:       make(map[dickKey]model.Dick, len(s.dicks)),
		loans:       make([]model.Loan, len(s.loans)),
		nextLoanID:  s.nextLoanID,
		champions:   make(map[championKey]model.Champion, len(s.champions)),
		promos:      make(map[string]model.PromoCode, len(s.promos)),
		activations: make(map[activationKey]model.PromoActivation, len(s.activations)),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.dicks {
		c.dicks[k] = v
	}
	copy(c.loans, s.loans)
	for k, v := range s.champions {
		c.champions[k] = v
	}
	for k, v := range s.promos {
		c.promos[k] = v
	}
	for k, v := range s.activations {
		c.activations[k] = v
	}
	return c
}

// Store is the in-memory ledger.
type Store struct {
	mu sync.Mutex
	st *state
}

// New creates an empty store.
func New() *Store {
	return &Store{st: newState()}
}

// InTx runs fn against a private copy of the state and commits it on success.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(ctx, &tx{st: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = work
	return nil
}

// CreatePromo registers a promo code.
func (s *Store) CreatePromo(ctx context.Context, p model.PromoCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(p.Code)
	if _, ok := s.st.promos[key]; ok {
		return ledger.ErrConflict
	}
	s.st.promos[key] = p
	return nil
}

func (s *Store) Dick(ctx context.Context, uid, chatID int64) (*model.Dick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.dick(uid, chatID)
}

func (s *Store) ActiveLoans(ctx context.Context, uid, chatID int64) ([]model.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.activeLoans(uid, chatID), nil
}

func (s *Store) Champion(ctx context.Context, chatID int64, day time.Time) (*model.Champion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.champion(chatID, day)
}

func (s *Store) Top(ctx context.Context, chatID int64, offset, limit int) ([]model.TopEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.top(chatID, offset, limit), nil
}

func (s *Store) Position(ctx context.Context, uid, chatID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.position(uid, chatID)
}

func (s *Store) PersonalStats(ctx context.Context, uid int64) (*model.PersonalStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.personalStats(uid), nil
}

func (s *state) dick(uid, chatID int64) (*model.Dick, error) {
	d, ok := s.dicks[dickKey{uid, chatID}]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &d, nil
}

func (s *state) activeLoans(uid, chatID int64) []model.Loan {
	var loans []model.Loan
	for _, l := range s.loans {
		if l.UID == uid && l.ChatID == chatID && l.Active() {
			loans = append(loans, l)
		}
	}
	sort.SliceStable(loans, func(i, j int) bool {
		if !loans[i].CreatedAt.Equal(loans[j].CreatedAt) {
			return loans[i].CreatedAt.Before(loans[j].CreatedAt)
		}
		return loans[i].ID < loans[j].ID
	})
	return loans
}

func (s *state) champion(chatID int64, day time.Time) (*model.Champion, error) {
	c, ok := s.champions[newChampionKey(chatID, day)]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &c, nil
}

// ranking returns the whole chat in leaderboard order.
func (s *state) ranking(chatID int64) []model.TopEntry {
	var rows []model.TopEntry
	for k, d := range s.dicks {
		if k.chatID != chatID {
			continue
		}
		rows = append(rows, model.TopEntry{
			UID:       d.UID,
			Name:      s.users[d.UID].Name,
			Length:    d.Length,
			UpdatedAt: d.UpdatedAt,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Length != b.Length {
			return a.Length > b.Length
		}
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.UID < b.UID
	})
	for i := range rows {
		rows[i].Position = i + 1
	}
	return rows
}

func (s *state) top(chatID int64, offset, limit int) []model.TopEntry {
	rows := s.ranking(chatID)
	if offset < 0 || limit <= 0 || offset >= len(rows) {
		return nil
	}
	end := len(rows)
	if limit < end-offset {
		end = offset + limit
	}
	return rows[offset:end]
}

func (s *state) position(uid, chatID int64) (int, error) {
	for _, row := range s.ranking(chatID) {
		if row.UID == uid {
			return row.Position, nil
		}
	}
	return 0, ledger.ErrNotFound
}

func (s *state) personalStats(uid int64) *model.PersonalStats {
	stats := &model.PersonalStats{}
	for k, d := range s.dicks {
		if k.uid != uid {
			continue
		}
		if stats.Chats == 0 || d.Length > stats.MaxLength {
			stats.MaxLength = d.Length
		}
		stats.Chats++
		stats.TotalLength += d.Length
	}
	return stats
}
